package runner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/pipeline"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

func newInstantPipeline(name string) *pipeline.Pipeline {
	task := taskgraph.NewSimpleTask("noop", func(ctx context.Context, it *item.Item) error {
		return nil
	})
	return pipeline.NewBuilder(name).Then(task).Build()
}

func TestRunnerFinishesAfterMaxItems(t *testing.T) {
	p := newInstantPipeline("chain")
	r := New(Config{Concurrent: 2, MaxItems: 3, DataDir: t.TempDir(), KeepData: true}, p)

	finished := make(chan struct{})
	r.OnFinish = func() { close(finished) }

	go r.Run()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never finished")
	}
	assert.Equal(t, 0, r.ActiveCount())
}

func TestRunnerStopGracefullyWaitsForInFlight(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	task := taskgraph.NewSimpleTask("blocking", func(ctx context.Context, it *item.Item) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	p := pipeline.NewBuilder("chain").Then(task).Build()
	r := New(Config{Concurrent: 1, MaxItems: 0, DataDir: t.TempDir(), KeepData: true}, p)

	finished := make(chan struct{})
	r.OnFinish = func() { close(finished) }

	go r.Run()
	<-started

	r.StopGracefully()

	select {
	case <-finished:
		t.Fatal("runner finished before the in-flight item completed")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("runner never finished after the in-flight item completed")
	}
}

func TestRunnerStopFileTriggersGracefulStop(t *testing.T) {
	stopFile := filepath.Join(t.TempDir(), "stop")

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	task := taskgraph.NewSimpleTask("blocking", func(ctx context.Context, it *item.Item) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	p := pipeline.NewBuilder("chain").Then(task).Build()
	r := New(Config{Concurrent: 1, MaxItems: 2, StopFile: stopFile, DataDir: t.TempDir(), KeepData: true}, p)

	finished := make(chan struct{})
	r.OnFinish = func() { close(finished) }

	go r.Run()
	<-started

	require.NoError(t, os.WriteFile(stopFile, []byte("stop"), 0o644))

	// Poll interval is 5s; wait past it, then release the in-flight item.
	time.Sleep(stopFilePollInterval + 200*time.Millisecond)
	close(release)

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never finished after stop-file graceful stop")
	}
	assert.Equal(t, 0, r.ActiveCount())
}

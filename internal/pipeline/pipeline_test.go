package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

func newTestItem(t *testing.T) *item.Item {
	t.Helper()
	it, err := item.New("item-1", 1, t.TempDir(), false)
	require.NoError(t, err)
	return it
}

func TestPipelineAdvancesThroughAllTasksOnSuccess(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) taskgraph.Task {
		return taskgraph.NewSimpleTask(name, func(ctx context.Context, it *item.Item) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	p := NewBuilder("chain").ThenAll(record("a"), record("b"), record("c")).Build()

	finished := make(chan *item.Item, 1)
	p.OnItemFinished = func(it *item.Item) { finished <- it }

	it := newTestItem(t)
	p.Enqueue(context.Background(), it)

	select {
	case got := <-finished:
		assert.Equal(t, it.ID(), got.ID())
	case <-time.After(time.Second):
		t.Fatal("pipeline never finished the item")
	}
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, p.InFlightCount())
	assert.Equal(t, item.StateCompleted, it.State())
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	track := func(name string, err error) taskgraph.Task {
		return taskgraph.NewSimpleTask(name, func(ctx context.Context, it *item.Item) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return err
		})
	}

	p := NewBuilder("chain").
		ThenAll(track("first", nil), track("bad", errors.New("boom")), track("never", nil)).
		Build()

	finished := make(chan *item.Item, 1)
	p.OnItemFinished = func(it *item.Item) { finished <- it }

	it := newTestItem(t)
	p.Enqueue(context.Background(), it)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("pipeline never finished the item")
	}
	assert.Equal(t, []string{"first", "bad"}, ran)
	assert.Equal(t, item.StateFailed, it.State())
}

// panickyTask is not a SimpleTask, so its panic is caught only by the
// pipeline's own guard, not SimpleTask's.
type panickyTask struct{}

func (panickyTask) Name() string { return "panicky" }

func (panickyTask) Enqueue(ctx context.Context, it *item.Item, ev taskgraph.Events) {
	panic("kaboom")
}

func TestPipelineSurvivesPanicInNonSimpleTask(t *testing.T) {
	p := NewBuilder("chain").Then(panickyTask{}).Build()

	finished := make(chan *item.Item, 1)
	p.OnItemFinished = func(it *item.Item) { finished <- it }

	it := newTestItem(t)
	p.Enqueue(context.Background(), it)

	select {
	case got := <-finished:
		assert.Equal(t, it.ID(), got.ID())
	case <-time.After(time.Second):
		t.Fatal("pipeline never finished the item after a panic")
	}
	assert.Equal(t, item.StateFailed, it.State())
	assert.Equal(t, 0, p.InFlightCount())
}

func TestPipelineCancelItemsStopsInFlightWork(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := taskgraph.NewSimpleTask("blocking", func(ctx context.Context, it *item.Item) error {
		it.SetMayBeCanceled(true)
		defer it.SetMayBeCanceled(false)
		close(started)
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	p := NewBuilder("chain").Then(blocking).Build()
	it := newTestItem(t)
	done := make(chan struct{})
	go func() {
		p.Enqueue(context.Background(), it)
		close(done)
	}()

	<-started
	assert.Equal(t, 1, p.InFlightCount())
	p.CancelItems()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("canceled item's task never returned")
	}
}

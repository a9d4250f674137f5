package taskgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

func newTestItem(t *testing.T) *item.Item {
	t.Helper()
	it, err := item.New("item-1", 1, t.TempDir(), false)
	require.NoError(t, err)
	return it
}

func collectEvents() (*Events, *[]string) {
	order := &[]string{}
	ev := &Events{
		OnStartItem:    func(it *item.Item) { *order = append(*order, "start") },
		OnCompleteItem: func(it *item.Item) { *order = append(*order, "complete") },
		OnFailItem:     func(it *item.Item) { *order = append(*order, "fail") },
		OnFinishItem:   func(it *item.Item) { *order = append(*order, "finish") },
	}
	return ev, order
}

func TestSimpleTaskSuccess(t *testing.T) {
	it := newTestItem(t)
	ev, order := collectEvents()

	task := NewSimpleTask("set-key", func(ctx context.Context, it *item.Item) error {
		it.Set("done", true)
		return nil
	})
	task.Enqueue(context.Background(), it, *ev)

	assert.Equal(t, []string{"start", "complete", "finish"}, *order)
	status, ok := it.TaskStatusOf("set-key")
	require.True(t, ok)
	assert.Equal(t, item.TaskStatusCompleted, status)
	v, _ := it.Property("done")
	assert.Equal(t, true, v)
}

func TestSimpleTaskFailure(t *testing.T) {
	it := newTestItem(t)
	ev, order := collectEvents()

	task := NewSimpleTask("bad", func(ctx context.Context, it *item.Item) error {
		return errors.New("boom")
	})
	task.Enqueue(context.Background(), it, *ev)

	assert.Equal(t, []string{"start", "fail", "finish"}, *order)
	status, _ := it.TaskStatusOf("bad")
	assert.Equal(t, item.TaskStatusFailed, status)
}

func TestSimpleTaskPanicIsCaught(t *testing.T) {
	it := newTestItem(t)
	ev, order := collectEvents()

	task := NewSimpleTask("panicky", func(ctx context.Context, it *item.Item) error {
		panic("kaboom")
	})
	task.Enqueue(context.Background(), it, *ev)

	assert.Equal(t, []string{"start", "fail", "finish"}, *order)
}

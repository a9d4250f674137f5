package taskgraph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

func TestConditionalTaskRunsInnerWhenTrue(t *testing.T) {
	it := newTestItem(t)
	ev, order := collectEvents()
	var innerRan bool

	inner := NewSimpleTask("inner", func(ctx context.Context, it *item.Item) error {
		innerRan = true
		return nil
	})
	task := NewConditionalTask("cond", func(it *item.Item) bool { return true }, inner)
	task.Enqueue(context.Background(), it, *ev)

	assert.True(t, innerRan)
	assert.Equal(t, []string{"start", "complete", "finish"}, *order)
}

func TestConditionalTaskSkipsInnerWhenFalse(t *testing.T) {
	it := newTestItem(t)
	ev, order := collectEvents()
	var innerRan bool

	inner := NewSimpleTask("inner", func(ctx context.Context, it *item.Item) error {
		innerRan = true
		return nil
	})
	task := NewConditionalTask("cond", func(it *item.Item) bool { return false }, inner)
	task.Enqueue(context.Background(), it, *ev)

	assert.False(t, innerRan)
	assert.Equal(t, []string{"start", "complete", "finish"}, *order)
	status, ok := it.TaskStatusOf("cond")
	assert.True(t, ok)
	assert.Equal(t, item.TaskStatusCompleted, status)
}

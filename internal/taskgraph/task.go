// Package taskgraph implements the pipeline stage variants: SimpleTask,
// ExternalProcess, TrackerRequest, LimitConcurrent and ConditionalTask.
package taskgraph

import (
	"context"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

// Events are the four lifecycle callbacks a task fires for an item
// passing through it. Tasks are shared across items and must not hold
// per-item state on themselves — callers scope Events to one Enqueue
// call, and a task keeps any retry/attempt counters local to that call.
type Events struct {
	OnStartItem    func(it *item.Item)
	OnCompleteItem func(it *item.Item)
	OnFailItem     func(it *item.Item)
	OnFinishItem   func(it *item.Item)
}

// Task is a polymorphic pipeline stage. Enqueue is not re-entrant for a
// given item: an item passes through any given task at most once per
// pipeline traversal.
type Task interface {
	Name() string
	Enqueue(ctx context.Context, it *item.Item, ev Events)
}

func start(ev Events, it *item.Item) {
	if ev.OnStartItem != nil {
		ev.OnStartItem(it)
	}
}

// succeed fires on_complete_item then on_finish_item, in that order.
func succeed(ev Events, it *item.Item) {
	if ev.OnCompleteItem != nil {
		ev.OnCompleteItem(it)
	}
	if ev.OnFinishItem != nil {
		ev.OnFinishItem(it)
	}
}

// fail fires on_fail_item then on_finish_item, in that order.
func fail(ev Events, it *item.Item) {
	if ev.OnFailItem != nil {
		ev.OnFailItem(it)
	}
	if ev.OnFinishItem != nil {
		ev.OnFinishItem(it)
	}
}

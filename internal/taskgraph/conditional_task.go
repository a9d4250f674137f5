package taskgraph

import (
	"context"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

// PredicateFunc decides whether ConditionalTask should run its inner task.
type PredicateFunc func(it *item.Item) bool

// ConditionalTask wraps Inner with a predicate evaluated against the
// item: true enqueues Inner, false completes the wrapper immediately,
// skipping Inner entirely.
type ConditionalTask struct {
	TaskName  string
	Predicate PredicateFunc
	Inner     Task
}

// NewConditionalTask wraps inner so it only runs when predicate(item) is true.
func NewConditionalTask(name string, predicate PredicateFunc, inner Task) *ConditionalTask {
	return &ConditionalTask{TaskName: name, Predicate: predicate, Inner: inner}
}

func (t *ConditionalTask) Name() string { return t.TaskName }

func (t *ConditionalTask) Enqueue(ctx context.Context, it *item.Item, ev Events) {
	if !t.Predicate(it) {
		it.SetTaskStatus(t.TaskName, item.TaskStatusRunning)
		start(ev, it)
		it.SetTaskStatus(t.TaskName, item.TaskStatusCompleted)
		succeed(ev, it)
		return
	}
	t.Inner.Enqueue(ctx, it, ev)
}

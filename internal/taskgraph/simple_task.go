package taskgraph

import (
	"context"
	"fmt"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

// ProcessFunc is a SimpleTask body. It is expected to be short and
// non-blocking; long-running work belongs in an ExternalProcess.
type ProcessFunc func(ctx context.Context, it *item.Item) error

// SimpleTask runs Process synchronously for each item.
type SimpleTask struct {
	TaskName string
	Process  ProcessFunc
}

// NewSimpleTask builds a SimpleTask named name running process.
func NewSimpleTask(name string, process ProcessFunc) *SimpleTask {
	return &SimpleTask{TaskName: name, Process: process}
}

func (t *SimpleTask) Name() string { return t.TaskName }

func (t *SimpleTask) Enqueue(ctx context.Context, it *item.Item, ev Events) {
	it.SetTaskStatus(t.TaskName, item.TaskStatusRunning)
	start(ev, it)

	defer func() {
		if r := recover(); r != nil {
			it.LogError(t.TaskName, fmt.Sprintf("panic: %v", r))
			it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
			fail(ev, it)
		}
	}()

	if err := t.Process(ctx, it); err != nil {
		it.LogError(t.TaskName, err.Error())
		it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
		fail(ev, it)
		return
	}

	it.LogOutput([]byte("Finished "+t.TaskName), true)
	it.SetTaskStatus(t.TaskName, item.TaskStatusCompleted)
	succeed(ev, it)
}

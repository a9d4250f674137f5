// Package pipeline routes items through an ordered task chain.
package pipeline

import (
	"context"
	"sync"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/log"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

// Config describes a pipeline's fixed task chain.
type Config struct {
	Name  string
	Tasks []taskgraph.Task
}

// inFlightEntry is one item's record in the in-flight set.
type inFlightEntry struct {
	cancel context.CancelFunc
	item   *item.Item
}

// Pipeline enqueues each item into Tasks[0] and advances it to the next
// task on completion; a failure at any stage fails the item for the
// whole pipeline. The router guarantees on_finish fires exactly once
// per item, regardless of which stage it failed or completed at.
type Pipeline struct {
	name  string
	tasks []taskgraph.Task

	mu       sync.Mutex
	inFlight map[string]inFlightEntry
	metrics  *Metrics

	OnItemFinished func(it *item.Item)
}

// New creates a pipeline from cfg. Tasks must be non-empty.
func New(cfg Config) *Pipeline {
	return &Pipeline{
		name:     cfg.Name,
		tasks:    cfg.Tasks,
		inFlight: make(map[string]inFlightEntry),
		metrics:  NewMetrics(cfg.Name),
	}
}

// Enqueue admits it into the pipeline, starting at the first task. ctx
// governs the item's entire traversal; Enqueue derives a child of ctx
// per item so CancelItem can cancel one item without affecting others.
func (p *Pipeline) Enqueue(ctx context.Context, it *item.Item) {
	itemCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	p.inFlight[it.ID()] = inFlightEntry{cancel: cancel, item: it}
	p.mu.Unlock()

	p.metrics.ItemsStarted.Add(1)
	go p.watchCancellation(itemCtx, it)
	p.advance(itemCtx, it, 0)
}

// watchCancellation marks it canceled and finishes it once itemCtx
// ends. A task whose wait is interrupted by ctx returns without firing
// either event (it does not own the terminal transition), so the
// pipeline itself must close out the item here. finish also cancels
// itemCtx on a normal completion/failure to release this goroutine, so
// the terminal-state check below guards against treating that release
// as an actual cancellation.
func (p *Pipeline) watchCancellation(itemCtx context.Context, it *item.Item) {
	<-itemCtx.Done()
	if it.State().Terminal() {
		return
	}
	it.Cancel()
	p.finish(it)
}

// CancelItem unconditionally cancels the context governing id's
// traversal, if it is still in flight. watchCancellation then marks the
// item canceled and finishes it, unless it is already terminal.
func (p *Pipeline) CancelItem(id string) {
	p.mu.Lock()
	entry, ok := p.inFlight[id]
	p.mu.Unlock()
	if ok {
		entry.cancel()
	}
}

// CancelItems cancels every in-flight item currently inside a
// cancellable wait (may_be_canceled). Items mid-subprocess or otherwise
// uncancelable are left to finish naturally.
func (p *Pipeline) CancelItems() {
	p.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(p.inFlight))
	for _, e := range p.inFlight {
		if e.item.MayBeCanceled() {
			cancels = append(cancels, e.cancel)
		}
	}
	p.mu.Unlock()
	for _, c := range cancels {
		c()
	}
}

// InFlightCount reports how many items are currently mid-traversal.
func (p *Pipeline) InFlightCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inFlight)
}

func (p *Pipeline) advance(ctx context.Context, it *item.Item, taskIndex int) {
	if taskIndex >= len(p.tasks) {
		it.Complete()
		p.finish(it)
		return
	}

	task := p.tasks[taskIndex]
	p.enqueueGuarded(ctx, it, task, taskIndex)
}

// enqueueGuarded calls task.Enqueue under a recover, mirroring
// seesaw's _enqueue_with_except: any panic escaping a task's Enqueue
// (synchronously, before it hands off to a background goroutine) is
// translated into a failed item instead of crashing the runner. This is
// independent of SimpleTask's own guard, which only covers panics
// inside a SimpleTask's Process body.
func (p *Pipeline) enqueueGuarded(ctx context.Context, it *item.Item, task taskgraph.Task, taskIndex int) {
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().WithFields(map[string]interface{}{
				"pipeline": p.name,
				"item_id":  it.ID(),
				"task":     task.Name(),
			}).Errorf("pipeline: recovered panic in task enqueue: %v", r)
			it.Fail()
			p.finish(it)
		}
	}()

	task.Enqueue(ctx, it, taskgraph.Events{
		OnCompleteItem: func(it *item.Item) {
			p.advance(ctx, it, taskIndex+1)
		},
		OnFailItem: func(it *item.Item) {
			log.GetLogger().WithFields(map[string]interface{}{
				"pipeline": p.name,
				"item_id":  it.ID(),
				"task":     task.Name(),
			}).Warn("pipeline: item failed, not advancing")
			it.Fail()
			p.finish(it)
		},
	})
}

// finish removes it from the in-flight set and fires OnItemFinished
// exactly once. Called from whichever stage the item last completed or
// failed at, so it is guarded against being invoked twice for the same
// item (e.g. a canceled item whose current task still reports
// completion after the cancellation already finished it).
func (p *Pipeline) finish(it *item.Item) {
	p.mu.Lock()
	entry, ok := p.inFlight[it.ID()]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.inFlight, it.ID())
	p.mu.Unlock()

	entry.cancel()

	p.metrics.ItemsFinished.Add(1)
	if p.OnItemFinished != nil {
		p.OnItemFinished(it)
	}
}

// Name returns the pipeline's declared name.
func (p *Pipeline) Name() string { return p.name }

package taskgraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/metrics"
	"github.com/archiveteam/warrior-pipeline/internal/realize"
)

// queuedItem is one admission-queue entry.
type queuedItem struct {
	ctx context.Context
	it  *item.Item
	ev  Events
}

// LimitConcurrent wraps Inner with a per-stage in-flight cap N, which
// may itself be a realize descriptor (e.g. a ConfigValue) re-evaluated
// per admission decision. Queued items dequeue in FIFO order; items
// already admitted into Inner complete independently of queue order.
type LimitConcurrent struct {
	TaskName string
	Inner    Task
	N        interface{} // int literal or realize descriptor
	Config   realize.ConfigLookup

	mu      sync.Mutex
	running int
	queue   []queuedItem
}

// NewLimitConcurrent wraps inner with an admission cap of n (literal
// or realize descriptor).
func NewLimitConcurrent(name string, n interface{}, inner Task, cfg realize.ConfigLookup) *LimitConcurrent {
	return &LimitConcurrent{TaskName: name, Inner: inner, N: n, Config: cfg}
}

func (t *LimitConcurrent) Name() string { return t.TaskName }

func (t *LimitConcurrent) Enqueue(ctx context.Context, it *item.Item, ev Events) {
	limit, err := t.limit(it)
	if err != nil {
		it.LogError(t.TaskName, err.Error())
		it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
		fail(ev, it)
		return
	}

	t.mu.Lock()
	if t.running < limit {
		t.running++
		t.mu.Unlock()
		t.admit(ctx, it, ev)
		return
	}
	t.queue = append(t.queue, queuedItem{ctx: ctx, it: it, ev: ev})
	depth := len(t.queue)
	t.mu.Unlock()
	metrics.LimitConcurrentQueueDepth.WithLabelValues(t.TaskName).Set(float64(depth))
}

func (t *LimitConcurrent) limit(it *item.Item) (int, error) {
	rctx := &realize.Context{Item: it, Config: t.Config}
	raw, err := realize.Realize(t.N, rctx)
	if err != nil {
		return 0, err
	}
	switch n := raw.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("limit_concurrent: N must realize to an integer, got %T", raw)
	}
}

// admit enqueues it on Inner with events wrapped so this wrapper can
// release the slot and promote the next queued item on completion.
func (t *LimitConcurrent) admit(ctx context.Context, it *item.Item, ev Events) {
	wrapped := ev
	wrapped.OnCompleteItem = func(i *item.Item) {
		t.release()
		if ev.OnCompleteItem != nil {
			ev.OnCompleteItem(i)
		}
	}
	wrapped.OnFailItem = func(i *item.Item) {
		t.release()
		if ev.OnFailItem != nil {
			ev.OnFailItem(i)
		}
	}
	t.Inner.Enqueue(ctx, it, wrapped)
}

// release frees the finished item's slot: if an item is queued, the
// oldest one takes the slot over (the running count is unchanged);
// otherwise the running count is decremented.
func (t *LimitConcurrent) release() {
	t.mu.Lock()
	var next *queuedItem
	if len(t.queue) > 0 {
		q := t.queue[0]
		t.queue = t.queue[1:]
		next = &q
	} else {
		t.running--
	}
	depth := len(t.queue)
	t.mu.Unlock()
	metrics.LimitConcurrentQueueDepth.WithLabelValues(t.TaskName).Set(float64(depth))

	if next != nil {
		t.admit(next.ctx, next.it, next.ev)
	}
}

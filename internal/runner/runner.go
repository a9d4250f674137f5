// Package runner implements the top-level admission loop: it creates
// items, feeds them into a pipeline up to a concurrency cap, watches a
// stop file for graceful shutdown, and tears down on completion.
package runner

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/log"
	"github.com/archiveteam/warrior-pipeline/internal/pipeline"
	"github.com/archiveteam/warrior-pipeline/internal/procsup"
)

const (
	stopFilePollInterval = 5 * time.Second
	failedItemDebounce   = 10 * time.Second
)

// Config controls a Runner's admission policy.
type Config struct {
	Concurrent int    // target in-flight item count
	MaxItems   int    // 0 = unlimited
	StopFile   string // path polled for graceful-stop signals; "" disables
	DataDir    string
	KeepData   bool
}

// Runner owns the active-item set and the top-level event loop. A
// Runner drives exactly one Pipeline, fixed at New; addItems creates a
// new item for every admission.
type Runner struct {
	cfg      Config
	pipeline *pipeline.Pipeline

	mu            sync.Mutex
	active        map[string]*item.Item
	itemCount     int
	stopRequested bool
	forceStopped  bool
	finished      bool

	initialStopFileMtime time.Time
	stopFileExists       bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	OnStopRequested func()
	OnStopCanceled  func()
	OnFinish        func()
}

// New creates a Runner that admits items into p.
func New(cfg Config, p *pipeline.Pipeline) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		cfg:      cfg,
		pipeline: p,
		active:   make(map[string]*item.Item),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	p.OnItemFinished = r.onItemFinished
	return r
}

// Run starts the stop-file poller (if configured) and the initial
// admission pass, then blocks until on_finish fires or the runner is
// force-stopped.
func (r *Runner) Run() {
	if r.cfg.StopFile != "" {
		if info, err := os.Stat(r.cfg.StopFile); err == nil {
			r.initialStopFileMtime = info.ModTime()
			r.stopFileExists = true
		}
		go r.pollStopFile()
	}

	r.addItems()
	<-r.done
}

// pollStopFile checks the stop file's mtime every 5 seconds; any
// increase relative to the initial mtime (or the file appearing where
// none existed) triggers a graceful stop. Removing the file has no
// effect: resuming requires an explicit call to Resume.
func (r *Runner) pollStopFile() {
	ticker := time.NewTicker(stopFilePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			info, err := os.Stat(r.cfg.StopFile)
			if err != nil {
				continue
			}
			if !r.stopFileExists || info.ModTime().After(r.initialStopFileMtime) {
				r.stopFileExists = true
				r.initialStopFileMtime = info.ModTime()
				log.GetLogger().Info("runner: stop file changed, stopping gracefully")
				r.StopGracefully()
			}
		case <-r.ctx.Done():
			return
		}
	}
}

// StopGracefully sets stop_flag, cancels every cancellable in-flight
// item, and fires OnStopRequested. Existing non-cancellable items
// finish naturally; OnFinish fires once the active set empties.
func (r *Runner) StopGracefully() {
	r.mu.Lock()
	if r.stopRequested {
		r.mu.Unlock()
		return
	}
	r.stopRequested = true
	empty := len(r.active) == 0
	r.mu.Unlock()

	r.pipeline.CancelItems()
	if r.OnStopRequested != nil {
		r.OnStopRequested()
	}
	if empty {
		r.finish()
	}
}

// Resume clears stop_flag, fires OnStopCanceled, and resumes admission.
func (r *Runner) Resume() {
	r.mu.Lock()
	r.stopRequested = false
	r.mu.Unlock()

	if r.OnStopCanceled != nil {
		r.OnStopCanceled()
	}
	r.addItems()
}

// ForceStop immediately ends the event loop without waiting for
// in-flight items; surviving subprocess children are left to the
// process-wide SIGTERM/SIGKILL registry.
func (r *Runner) ForceStop() {
	r.mu.Lock()
	if r.forceStopped {
		r.mu.Unlock()
		return
	}
	r.forceStopped = true
	r.mu.Unlock()

	r.cancel()
	procsup.KillAll(2 * time.Second)
	r.finish()
}

// addItems implements the admission loop: while the active set is
// below Concurrent and (MaxItems is 0 or item_count < MaxItems),
// allocate a fresh item and enqueue it into the pipeline.
func (r *Runner) addItems() {
	for {
		r.mu.Lock()
		if r.stopRequested || r.forceStopped || r.finished {
			r.mu.Unlock()
			return
		}
		if len(r.active) >= r.cfg.Concurrent {
			r.mu.Unlock()
			return
		}
		if r.cfg.MaxItems != 0 && r.itemCount >= r.cfg.MaxItems {
			r.mu.Unlock()
			return
		}
		r.itemCount++
		number := int64(r.itemCount)
		r.mu.Unlock()

		id := uuid.NewString()
		it, err := item.New(id, number, r.cfg.DataDir, r.cfg.KeepData)
		if err != nil {
			log.GetLogger().WithError(err).Error("runner: failed to create item")
			r.mu.Lock()
			r.itemCount--
			r.mu.Unlock()
			return
		}

		r.mu.Lock()
		r.active[id] = it
		r.mu.Unlock()

		// Enqueue on its own goroutine: a task variant may run its body
		// synchronously (SimpleTask), and the admission loop must not
		// block on one item's traversal while others could be admitted.
		go r.pipeline.Enqueue(r.ctx, it)
	}
}

// onItemFinished is the pipeline's completion hook. A failed item is
// kept in the active set for 10 seconds (rate-limiting failure churn)
// before being removed, off the calling goroutine so other items keep
// flowing in the meantime; a completed or canceled item is removed
// immediately. Either way, admission is retried and OnFinish fires if
// the runner should now stop.
func (r *Runner) onItemFinished(it *item.Item) {
	if it.State() == item.StateFailed {
		go func() {
			time.Sleep(failedItemDebounce)
			r.retireItem(it)
		}()
		return
	}
	r.retireItem(it)
}

func (r *Runner) retireItem(it *item.Item) {
	r.mu.Lock()
	delete(r.active, it.ID())
	empty := len(r.active) == 0
	r.mu.Unlock()

	if r.shouldStop() {
		if empty {
			r.finish()
		}
		return
	}

	r.addItems()

	r.mu.Lock()
	stillEmpty := len(r.active) == 0
	reachedMax := r.cfg.MaxItems != 0 && r.itemCount >= r.cfg.MaxItems
	r.mu.Unlock()
	if stillEmpty && reachedMax {
		r.finish()
	}
}

// shouldStop reports whether a graceful or forced stop is in effect.
func (r *Runner) shouldStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopRequested || r.forceStopped
}

// ActiveCount reports how many items are currently active.
func (r *Runner) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

func (r *Runner) finish() {
	r.mu.Lock()
	if r.finished {
		r.mu.Unlock()
		return
	}
	r.finished = true
	r.mu.Unlock()

	if r.OnFinish != nil {
		r.OnFinish()
	}
	close(r.done)
}

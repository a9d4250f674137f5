// Package procsup tracks live child processes spawned by ExternalProcess
// tasks and guarantees they are terminated on engine shutdown: the
// at-exit obligation described for subprocess supervision. This is a
// process-wide singleton, mirroring the event loop's own process-wide
// scope.
package procsup

import (
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/archiveteam/warrior-pipeline/internal/log"
)

var (
	mu       sync.Mutex
	children = make(map[int]*os.Process)
)

// Register adds p to the live-children set. Call once the process has
// successfully started.
func Register(p *os.Process) {
	if p == nil {
		return
	}
	mu.Lock()
	children[p.Pid] = p
	mu.Unlock()
}

// Unregister removes p from the live-children set. Call once Wait has
// returned, regardless of outcome.
func Unregister(p *os.Process) {
	if p == nil {
		return
	}
	mu.Lock()
	delete(children, p.Pid)
	mu.Unlock()
}

// Count reports how many children are currently tracked. Exposed for tests.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return len(children)
}

// KillAll signals every tracked process with SIGTERM, waits up to grace
// for them to exit, then SIGKILLs any survivor. Called once from the
// runner's shutdown path.
func KillAll(grace time.Duration) {
	mu.Lock()
	procs := make([]*os.Process, 0, len(children))
	for _, p := range children {
		procs = append(procs, p)
	}
	mu.Unlock()

	if len(procs) == 0 {
		return
	}

	for _, p := range procs {
		if err := p.Signal(syscall.SIGTERM); err != nil {
			log.GetLogger().WithError(err).Warn("procsup: failed to send SIGTERM to child")
		}
	}

	time.Sleep(grace)

	mu.Lock()
	survivors := make([]*os.Process, 0, len(children))
	for _, p := range children {
		survivors = append(survivors, p)
	}
	mu.Unlock()

	for _, p := range survivors {
		log.GetLogger().WithField("pid", p.Pid).Warn("procsup: killing child that ignored SIGTERM")
		_ = p.Kill()
	}
}

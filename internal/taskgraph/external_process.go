package taskgraph

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/log"
	"github.com/archiveteam/warrior-pipeline/internal/metrics"
	"github.com/archiveteam/warrior-pipeline/internal/procsup"
	"github.com/archiveteam/warrior-pipeline/internal/realize"
)

// StdinDataFunc supplies the blob written to a spawned process's stdin.
// A non-nil error is treated the same as a failed write: it counts
// toward tries and is retry-eligible.
type StdinDataFunc func(it *item.Item) ([]byte, error)

// ExternalProcess spawns a subprocess with realized argv/env, streams
// its merged stdout/stderr into the item's output log, writes an
// optional stdin blob, and applies a retry/backoff policy to the exit
// code.
type ExternalProcess struct {
	TaskName string

	// Args and Env may contain realize descriptors (ItemValue,
	// ItemInterpolation, ConfigValue); they are realized fresh on every
	// attempt so retries see up-to-date item state.
	Args []interface{}
	Env  map[string]interface{}
	Dir  string // working directory; empty = item's data dir

	StdinData StdinDataFunc

	MaxTries         *int // nil = unbounded
	RetryDelay       time.Duration
	AcceptOnExitCode []int // default {0}
	RetryOnExitCode  []int // nil = retry on any non-accepted code

	Config realize.ConfigLookup
}

func (t *ExternalProcess) Name() string { return t.TaskName }

func (t *ExternalProcess) Enqueue(ctx context.Context, it *item.Item, ev Events) {
	it.SetTaskStatus(t.TaskName, item.TaskStatusRunning)
	start(ev, it)
	go t.run(ctx, it, ev)
}

func (t *ExternalProcess) run(ctx context.Context, it *item.Item, ev Events) {
	tries := 0
	for {
		exitCode, stdinErr, spawnErr := t.attempt(ctx, it)
		tries++

		if spawnErr == nil && stdinErr == nil && t.accepts(exitCode) {
			metrics.TaskInvocationsTotal.WithLabelValues(t.TaskName, metrics.OutcomeSuccess).Inc()
			it.SetTaskStatus(t.TaskName, item.TaskStatusCompleted)
			succeed(ev, it)
			return
		}

		if spawnErr != nil {
			it.LogOutput([]byte(fmt.Sprintf("%s: spawn failed: %v", t.TaskName, spawnErr)), true)
		}

		if t.retryEligible(tries, exitCode, stdinErr, spawnErr) {
			metrics.TaskRetriesTotal.WithLabelValues(t.TaskName).Inc()
			if !t.wait(ctx) {
				return
			}
			continue
		}

		it.LogError(t.TaskName, fmt.Sprintf("exit code %d after %d attempt(s)", exitCode, tries))
		metrics.TaskInvocationsTotal.WithLabelValues(t.TaskName, metrics.OutcomeFailure).Inc()
		it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
		fail(ev, it)
		return
	}
}

func (t *ExternalProcess) wait(ctx context.Context) bool {
	select {
	case <-time.After(t.RetryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (t *ExternalProcess) accepts(code int) bool {
	accept := t.AcceptOnExitCode
	if len(accept) == 0 {
		accept = []int{0}
	}
	return containsInt(accept, code)
}

// retryEligible implements: (tries < max_tries or max_tries is nil) and
// (retry_on_exit_code is nil or exit_code in retry_on_exit_code or a
// stdin write error occurred).
func (t *ExternalProcess) retryEligible(tries, exitCode int, stdinErr, spawnErr error) bool {
	if t.MaxTries != nil && tries >= *t.MaxTries {
		return false
	}
	if t.RetryOnExitCode == nil {
		return true
	}
	return containsInt(t.RetryOnExitCode, exitCode) || stdinErr != nil || spawnErr != nil
}

func containsInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// attempt spawns and runs the subprocess once. spawnErr is non-nil for
// a failure to start (binary missing, permission denied) or an
// abnormal Wait error that yields no exit code (both are treated as a
// non-accepted exit by the caller).
func (t *ExternalProcess) attempt(ctx context.Context, it *item.Item) (exitCode int, stdinErr error, spawnErr error) {
	rctx := &realize.Context{Item: it, Config: t.Config}

	rawArgs, err := realize.Realize([]interface{}(t.Args), rctx)
	if err != nil {
		return -1, nil, fmt.Errorf("realize args: %w", err)
	}
	argv, err := toStringSlice(rawArgs)
	if err != nil {
		return -1, nil, err
	}
	if len(argv) == 0 {
		return -1, nil, errors.New("external process: empty argv")
	}

	rawEnv, err := realize.Realize(map[string]interface{}(t.Env), rctx)
	if err != nil {
		return -1, nil, fmt.Errorf("realize env: %w", err)
	}
	envPairs, err := toEnvPairs(rawEnv)
	if err != nil {
		return -1, nil, err
	}

	dir := t.Dir
	if dir == "" {
		dir = it.DataDir()
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(envPairs) > 0 {
		cmd.Env = append(baseEnv(), envPairs...)
	}

	w := &logWriter{it: it}
	cmd.Stdout = w
	cmd.Stderr = w

	var stdinPipe interface {
		Write([]byte) (int, error)
		Close() error
	}
	if t.StdinData != nil {
		pipe, perr := cmd.StdinPipe()
		if perr != nil {
			return -1, nil, fmt.Errorf("open stdin pipe: %w", perr)
		}
		stdinPipe = pipe
	}

	if err := cmd.Start(); err != nil {
		return -1, nil, err
	}
	procsup.Register(cmd.Process)
	defer procsup.Unregister(cmd.Process)

	if t.StdinData != nil {
		data, derr := t.StdinData(it)
		if derr != nil {
			stdinErr = derr
		} else if _, werr := stdinPipe.Write(data); werr != nil {
			stdinErr = werr
		}
		if cerr := stdinPipe.Close(); cerr != nil && stdinErr == nil {
			stdinErr = cerr
		}
	}

	waitErr := cmd.Wait()
	if waitErr == nil {
		return 0, stdinErr, nil
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return exitErr.ExitCode(), stdinErr, nil
	}

	log.GetLogger().WithError(waitErr).WithField("task", t.TaskName).Warn("external process: wait failed without an exit code")
	return -1, stdinErr, waitErr
}

// logWriter streams subprocess output into an item's output log as
// partial (non-newline-normalized) chunks.
type logWriter struct {
	it *item.Item
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.it.LogOutput(p, false)
	return len(p), nil
}

package procsup

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterUnregisterTracksCount(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	Register(cmd.Process)

	assert.GreaterOrEqual(t, Count(), 1)

	Unregister(cmd.Process)
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

func TestKillAllTerminatesChildren(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	require.NoError(t, cmd.Start())
	Register(cmd.Process)
	defer Unregister(cmd.Process)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	KillAll(100 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("child process was not terminated")
	}
}

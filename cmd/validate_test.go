package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePipelineFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRunValidateCommandAcceptsWellFormedPipeline(t *testing.T) {
	path := writePipelineFile(t, `
name: test-pipeline
tasks:
  - kind: external_process
    name: fetch
    args: [echo, hello]
`)

	var buf bytes.Buffer
	err := runValidateCommand(path, &buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "VALID")
	assert.Contains(t, buf.String(), "test-pipeline")
	assert.Contains(t, buf.String(), "fetch")
}

func TestRunValidateCommandRejectsUnknownKind(t *testing.T) {
	path := writePipelineFile(t, `
name: broken
tasks:
  - kind: not_a_real_kind
    name: x
`)

	var buf bytes.Buffer
	err := runValidateCommand(path, &buf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID")
}

func TestRunValidateCommandRejectsMissingFile(t *testing.T) {
	var buf bytes.Buffer
	err := runValidateCommand(filepath.Join(t.TempDir(), "missing.yml"), &buf)
	require.Error(t, err)
}

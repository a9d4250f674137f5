package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePipeline = `
name: test-pipeline
tasks:
  - kind: external_process
    name: fetch
    args:
      - wget
      - { item: url }
      - -O
      - { interp: "%(item_name)s.warc.gz" }
    max_tries: 3
    retry_delay: 5s
  - kind: limit_concurrent
    name: bounded-upload
    n: { config: { name: concurrent_uploads, default: 2, min: 1, max: 8 } }
    inner:
      kind: single_file_upload
      name: upload
      target: "https://example.org/upload"
      file_path: { item: warc_path }
  - kind: conditional_task
    name: maybe-cleanup
    when:
      property: should_cleanup
      equals: "true"
    inner:
      kind: external_process
      name: cleanup
      args:
        - rm
        - { item: warc_path }
`

func TestParseBuildsTaskChainInOrder(t *testing.T) {
	reg := NewRegistry(nil)
	cfg, err := Parse([]byte(samplePipeline), reg)
	require.NoError(t, err)

	assert.Equal(t, "test-pipeline", cfg.Name)
	require.Len(t, cfg.Tasks, 3)
	assert.Equal(t, "fetch", cfg.Tasks[0].Name())
	assert.Equal(t, "bounded-upload", cfg.Tasks[1].Name())
	assert.Equal(t, "maybe-cleanup", cfg.Tasks[2].Name())
}

func TestParseRejectsMissingName(t *testing.T) {
	_, err := Parse([]byte("tasks: []"), NewRegistry(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a name")
}

func TestParseRejectsEmptyTaskList(t *testing.T) {
	_, err := Parse([]byte("name: empty\ntasks: []"), NewRegistry(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares no tasks")
}

func TestParseReportsFailingTaskIndex(t *testing.T) {
	_, err := Parse([]byte(`
name: broken
tasks:
  - kind: external_process
    name: ok
    args: [echo]
  - kind: nonexistent_kind
    name: bad
`), NewRegistry(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task #1")
}

func TestParseRequiresTrackerConfigForTrackerKinds(t *testing.T) {
	_, err := Parse([]byte(`
name: needs-tracker
tasks:
  - kind: tracker_get_item
    name: get-item
`), NewRegistry(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracker configuration")
}

package taskgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

func TestNextTrackerDelay(t *testing.T) {
	assert.Equal(t, 70*time.Second, nextTrackerDelay(60*time.Second))
	assert.Equal(t, trackerMaxDelay, nextTrackerDelay(295*time.Second))
	assert.Equal(t, trackerMaxDelay, nextTrackerDelay(trackerMaxDelay))
}

func TestTrackerStatusMessageAndClass(t *testing.T) {
	cases := map[int]struct {
		msg   string
		class string
	}{
		420: {"rate limiting", "rate_limit"},
		429: {"rate limiting", "rate_limit"},
		404: {"no item", "no_item"},
		455: {"project code out of date", "stale_code"},
		599: {"no response", "no_response"},
		500: {"unexpected response", "other"},
	}
	for status, want := range cases {
		assert.Equal(t, want.msg, trackerStatusMessage(status))
		assert.Equal(t, want.class, trackerStatusClass(status))
	}
}

func TestGetItemFromTrackerAssignsProperties(t *testing.T) {
	it := newTestItem(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/request", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"item_name": "foo:1234",
			"username":  "bar",
		})
	}))
	defer srv.Close()

	finished := make(chan struct{})
	ev := Events{OnFinishItem: func(it *item.Item) { close(finished) }}

	task := NewGetItemFromTracker("GetItem", TrackerClientConfig{BaseURL: srv.URL, Downloader: "tester"})
	task.Enqueue(context.Background(), it, ev)
	waitForFinish(t, finished)

	status, _ := it.TaskStatusOf("GetItem")
	assert.Equal(t, item.TaskStatusCompleted, status)
	name, ok := it.Property("item_name")
	require.True(t, ok)
	assert.Equal(t, "foo:1234", name)
}

func TestGetItemFromTrackerNoAssignmentRetries(t *testing.T) {
	task := NewGetItemFromTracker("GetItem", TrackerClientConfig{BaseURL: "http://unused", Downloader: "tester"})
	it := newTestItem(t)
	result, err := task.ProcessBody(it, []byte(`{"message":"no items available"}`))
	require.NoError(t, err)
	assert.True(t, result.Retry)
}

func TestSendDoneToTrackerAcceptsOK(t *testing.T) {
	task := NewSendDoneToTracker("Done", TrackerClientConfig{BaseURL: "http://unused"}, func(it *item.Item) (interface{}, error) {
		return map[string]interface{}{"bytes_downloaded": 10}, nil
	})
	it := newTestItem(t)
	result, err := task.ProcessBody(it, []byte("OK"))
	require.NoError(t, err)
	assert.False(t, result.Retry)
}

func TestSendDoneToTrackerRejectsOtherBody(t *testing.T) {
	task := NewSendDoneToTracker("Done", TrackerClientConfig{BaseURL: "http://unused"}, func(it *item.Item) (interface{}, error) {
		return map[string]interface{}{}, nil
	})
	it := newTestItem(t)
	result, err := task.ProcessBody(it, []byte("nope"))
	require.NoError(t, err)
	assert.True(t, result.Retry)
}

func TestUploadWithTrackerDispatchesRsync(t *testing.T) {
	task := NewUploadWithTracker(
		"Upload",
		TrackerClientConfig{BaseURL: "http://unused"},
		func(it *item.Item) (interface{}, error) { return map[string]interface{}{}, nil },
		UploadDispatcher{
			NewArchiveUpload: func(target string) *ExternalProcess {
				return &ExternalProcess{TaskName: "rsync-up", Args: []interface{}{"true"}}
			},
			NewSingleFileUpload: func(target string) *ExternalProcess {
				t.Fatalf("unexpected http dispatch for rsync target")
				return nil
			},
		},
	)
	it := newTestItem(t)
	result, err := task.ProcessBody(it, []byte(`{"upload_target":"rsync://example.org/data/"}`))
	require.NoError(t, err)
	assert.False(t, result.Retry)
	target, _ := it.Property("_upload_target")
	assert.Equal(t, "rsync://example.org/data/", target)
	scheme, _ := it.Property("_upload_scheme")
	assert.Equal(t, "rsync", scheme)
}

func TestUploadWithTrackerRejectsUnsupportedScheme(t *testing.T) {
	task := NewUploadWithTracker(
		"Upload",
		TrackerClientConfig{BaseURL: "http://unused"},
		func(it *item.Item) (interface{}, error) { return map[string]interface{}{}, nil },
		UploadDispatcher{},
	)
	it := newTestItem(t)
	_, err := task.ProcessBody(it, []byte(`{"upload_target":"ftp://example.org/data/"}`))
	assert.ErrorIs(t, err, ErrUnsupportedUploadScheme)
}

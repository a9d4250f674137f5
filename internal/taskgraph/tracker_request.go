package taskgraph

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/metrics"
)

const (
	trackerInitialDelay = 60 * time.Second
	trackerDelayStep    = 10 * time.Second
	trackerMaxDelay     = 300 * time.Second
)

// ProcessResult is returned by a TrackerRequest's ProcessBody for a 200
// response: Retry true means the response was semantically incomplete
// (e.g. no assignment available yet) and the request is retried. Like
// any 200, it resets the backoff, so the retry waits the initial delay.
type ProcessResult struct {
	Retry   bool
	Message string
}

// ProcessBodyFunc interprets a 200 response body. A returned error is
// terminal (fails the item); it does not retry.
type ProcessBodyFunc func(it *item.Item, body []byte) (ProcessResult, error)

// TrackerRequest issues an HTTP POST to {BaseURL}/{Command} built from
// Data(item), retrying on any non-success outcome with the tracker
// backoff schedule (60s, +10s per failure, capped at 300s, reset on
// any 200).
type TrackerRequest struct {
	TaskName string
	BaseURL  string
	Command  string
	UserAgent string

	Data        func(it *item.Item) (interface{}, error)
	ProcessBody ProcessBodyFunc

	// Dispatch, if set, replaces the default "succeed" action on a
	// non-retry 200 response — used by UploadWithTracker to hand the
	// item to an inner rsync/curl ExternalProcess instead of completing
	// directly. Dispatch owns firing ev from that point on.
	Dispatch func(ctx context.Context, it *item.Item, ev Events)

	// Cancelable is true only for request types that permit
	// cancellation while waiting (assignment-fetch only).
	Cancelable bool

	Client *http.Client
}

func (t *TrackerRequest) Name() string { return t.TaskName }

func (t *TrackerRequest) Enqueue(ctx context.Context, it *item.Item, ev Events) {
	it.SetTaskStatus(t.TaskName, item.TaskStatusRunning)
	start(ev, it)
	go t.run(ctx, it, ev)
}

func (t *TrackerRequest) client() *http.Client {
	if t.Client != nil {
		return t.Client
	}
	return http.DefaultClient
}

func (t *TrackerRequest) run(ctx context.Context, it *item.Item, ev Events) {
	delay := trackerInitialDelay

	for {
		if ctx.Err() != nil {
			return
		}

		body, err := t.buildBody(it)
		if err != nil {
			it.LogError(t.TaskName, err.Error())
			it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
			fail(ev, it)
			return
		}

		status, respBody, err := t.post(ctx, body)
		if err != nil {
			it.LogOutput([]byte(fmt.Sprintf("%s: request error: %v", t.TaskName, err)), true)
			metrics.TrackerRequestsTotal.WithLabelValues(t.Command, "error").Inc()
			if !t.wait(ctx, it, delay) {
				return
			}
			delay = nextTrackerDelay(delay)
			continue
		}

		if status == http.StatusOK {
			result, perr := t.ProcessBody(it, respBody)
			if perr != nil {
				it.LogError(t.TaskName, perr.Error())
				it.SetTaskStatus(t.TaskName, item.TaskStatusFailed)
				metrics.TrackerRequestsTotal.WithLabelValues(t.Command, "2xx").Inc()
				fail(ev, it)
				return
			}
			if !result.Retry {
				metrics.TrackerRequestsTotal.WithLabelValues(t.Command, "2xx").Inc()
				it.SetTaskStatus(t.TaskName, item.TaskStatusCompleted)
				if t.Dispatch != nil {
					t.Dispatch(ctx, it, ev)
				} else {
					succeed(ev, it)
				}
				return
			}
			it.LogOutput([]byte(fmt.Sprintf("%s: %s", t.TaskName, result.Message)), true)
			delay = trackerInitialDelay // reset on any 200, even a retryable one
			if !t.wait(ctx, it, delay) {
				return
			}
			continue
		}

		msg := trackerStatusMessage(status)
		metrics.TrackerRequestsTotal.WithLabelValues(t.Command, trackerStatusClass(status)).Inc()
		it.LogOutput([]byte(fmt.Sprintf("%s: HTTP %d (%s)", t.TaskName, status, msg)), true)
		if !t.wait(ctx, it, delay) {
			return
		}
		delay = nextTrackerDelay(delay)
	}
}

// wait pauses for delay, exposing may_be_canceled for the duration if
// this request type permits it. Returns false if the context ended or
// the item was canceled while waiting, in which case run must return
// without firing complete/fail — whoever canceled the item already
// owns its terminal transition.
func (t *TrackerRequest) wait(ctx context.Context, it *item.Item, delay time.Duration) bool {
	if t.Cancelable {
		it.SetMayBeCanceled(true)
		defer it.SetMayBeCanceled(false)
	}
	select {
	case <-time.After(delay):
		return it.State() == item.StateRunning
	case <-ctx.Done():
		return false
	}
}

func (t *TrackerRequest) buildBody(it *item.Item) ([]byte, error) {
	data, err := t.Data(it)
	if err != nil {
		return nil, fmt.Errorf("build request body: %w", err)
	}
	return marshalJSON(data)
}

func (t *TrackerRequest) post(ctx context.Context, body []byte) (int, []byte, error) {
	url := t.BaseURL + "/" + t.Command
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.client().Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func nextTrackerDelay(d time.Duration) time.Duration {
	next := d + trackerDelayStep
	if next > trackerMaxDelay {
		return trackerMaxDelay
	}
	return next
}

func trackerStatusMessage(status int) string {
	switch status {
	case 420, 429:
		return "rate limiting"
	case 404:
		return "no item"
	case 455:
		return "project code out of date"
	case 599:
		return "no response"
	default:
		return "unexpected response"
	}
}

func trackerStatusClass(status int) string {
	switch status {
	case 420, 429:
		return "rate_limit"
	case 404:
		return "no_item"
	case 455:
		return "stale_code"
	case 599:
		return "no_response"
	default:
		return "other"
	}
}

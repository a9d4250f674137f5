package taskgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/archiveteam/warrior-pipeline/internal/item"
)

// ErrUnsupportedUploadScheme is returned when a tracker's "upload"
// response names an upload_target scheme other than rsync:// or
// http(s)://.
var ErrUnsupportedUploadScheme = errors.New("tracker request: unsupported upload_target scheme")

var (
	rsyncTargetPattern = regexp.MustCompile(`^rsync://.+/$`)
	httpTargetPattern  = regexp.MustCompile(`^https?://.+/$`)
)

const (
	propUploadTarget = "_upload_target"
	propUploadScheme = "_upload_scheme"
)

// TrackerClientConfig is shared by every concrete tracker task variant.
type TrackerClientConfig struct {
	BaseURL    string
	Downloader string
	APIVersion string // defaults to "2"
	Version    string // optional build version, omitted from the body when empty
	UserAgent  string
	Client     *http.Client
}

func (c TrackerClientConfig) apiVersion() string {
	if c.APIVersion == "" {
		return "2"
	}
	return c.APIVersion
}

// NewGetItemFromTracker builds the assignment-fetch TrackerRequest.
// On a 200 response containing "item_name", every field in the
// response JSON is copied into the item's properties.
func NewGetItemFromTracker(name string, cfg TrackerClientConfig) *TrackerRequest {
	return &TrackerRequest{
		TaskName:  name,
		BaseURL:   cfg.BaseURL,
		Command:   "request",
		UserAgent: cfg.UserAgent,
		Client:    cfg.Client,
		Cancelable: true,
		Data: func(it *item.Item) (interface{}, error) {
			body := map[string]interface{}{
				"downloader":  cfg.Downloader,
				"api_version": cfg.apiVersion(),
			}
			if cfg.Version != "" {
				body["version"] = cfg.Version
			}
			return body, nil
		},
		ProcessBody: func(it *item.Item, respBody []byte) (ProcessResult, error) {
			var fields map[string]interface{}
			if err := json.Unmarshal(respBody, &fields); err != nil {
				return ProcessResult{Retry: true, Message: "unparsable response body"}, nil
			}
			if _, ok := fields["item_name"]; !ok {
				return ProcessResult{Retry: true, Message: "no assignment available"}, nil
			}
			for k, v := range fields {
				it.Set(k, v)
			}
			return ProcessResult{}, nil
		},
	}
}

// NewSendDoneToTracker builds the completion-acknowledgement
// TrackerRequest. buildStats produces the realized stats mapping sent
// as the request body; the response is accepted iff its body is
// exactly "OK".
func NewSendDoneToTracker(name string, cfg TrackerClientConfig, buildStats func(it *item.Item) (interface{}, error)) *TrackerRequest {
	return &TrackerRequest{
		TaskName:  name,
		BaseURL:   cfg.BaseURL,
		Command:   "done",
		UserAgent: cfg.UserAgent,
		Client:    cfg.Client,
		Data:      buildStats,
		ProcessBody: func(it *item.Item, respBody []byte) (ProcessResult, error) {
			if string(respBody) == "OK" {
				return ProcessResult{}, nil
			}
			return ProcessResult{Retry: true, Message: "tracker did not acknowledge completion"}, nil
		},
	}
}

// UploadDispatcher builds the inner ExternalProcess used once the
// tracker has named an upload_target, one constructor per scheme.
type UploadDispatcher struct {
	NewArchiveUpload     func(target string) *ExternalProcess
	NewSingleFileUpload func(target string) *ExternalProcess
}

// NewUploadWithTracker builds the upload-target-negotiation
// TrackerRequest. A successful 200 response names upload_target; this
// task stashes it on the item (tasks hold no per-item state of their
// own) and dispatches to the matching inner ExternalProcess, whose own
// completion becomes this task's completion.
func NewUploadWithTracker(name string, cfg TrackerClientConfig, buildBody func(it *item.Item) (interface{}, error), dispatcher UploadDispatcher) *TrackerRequest {
	return &TrackerRequest{
		TaskName:  name,
		BaseURL:   cfg.BaseURL,
		Command:   "upload",
		UserAgent: cfg.UserAgent,
		Client:    cfg.Client,
		Data:      buildBody,
		ProcessBody: func(it *item.Item, respBody []byte) (ProcessResult, error) {
			var fields struct {
				UploadTarget string `json:"upload_target"`
			}
			if err := json.Unmarshal(respBody, &fields); err != nil {
				return ProcessResult{Retry: true, Message: "unparsable response body"}, nil
			}
			if fields.UploadTarget == "" {
				return ProcessResult{Retry: true, Message: "no upload_target in response"}, nil
			}
			switch {
			case rsyncTargetPattern.MatchString(fields.UploadTarget):
				it.Set(propUploadTarget, fields.UploadTarget)
				it.Set(propUploadScheme, "rsync")
			case httpTargetPattern.MatchString(fields.UploadTarget):
				it.Set(propUploadTarget, fields.UploadTarget)
				it.Set(propUploadScheme, "http")
			default:
				return ProcessResult{}, fmt.Errorf("%w: %q", ErrUnsupportedUploadScheme, fields.UploadTarget)
			}
			return ProcessResult{}, nil
		},
		Dispatch: func(ctx context.Context, it *item.Item, ev Events) {
			target, _ := it.Property(propUploadTarget)
			scheme, _ := it.Property(propUploadScheme)

			var inner *ExternalProcess
			switch scheme {
			case "rsync":
				inner = dispatcher.NewArchiveUpload(target.(string))
			case "http":
				inner = dispatcher.NewSingleFileUpload(target.(string))
			default:
				it.LogError(name, fmt.Sprintf("%v: %v", ErrUnsupportedUploadScheme, scheme))
				it.SetTaskStatus(name, item.TaskStatusFailed)
				fail(ev, it)
				return
			}
			inner.Enqueue(ctx, it, ev)
		},
	}
}


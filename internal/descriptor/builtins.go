package descriptor

import (
	"fmt"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/realize"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

// registerBuiltins wires every task kind a pipeline file may reference.
func registerBuiltins(r *Registry) {
	r.RegisterTaskKind("external_process", buildExternalProcess)
	r.RegisterTaskKind("download", buildDownload)
	r.RegisterTaskKind("archive_upload", buildArchiveUpload)
	r.RegisterTaskKind("single_file_upload", buildSingleFileUpload)
	r.RegisterTaskKind("limit_concurrent", buildLimitConcurrent)
	r.RegisterTaskKind("conditional_task", buildConditionalTask)
	r.RegisterTaskKind("tracker_get_item", buildTrackerGetItem)
	r.RegisterTaskKind("tracker_send_done", buildTrackerSendDone)
	r.RegisterTaskKind("tracker_upload", buildTrackerUpload)
}

func buildExternalProcess(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	args, _, err := params.List("args")
	if err != nil {
		return nil, err
	}
	env, err := envFromParams(params)
	if err != nil {
		return nil, err
	}
	dir, _, err := params.String("dir")
	if err != nil {
		return nil, err
	}
	maxTries, err := params.MaxTriesPtr()
	if err != nil {
		return nil, err
	}
	retryDelay, _, err := params.Duration("retry_delay")
	if err != nil {
		return nil, err
	}
	accept, _, err := params.IntSlice("accept_on_exit_code")
	if err != nil {
		return nil, err
	}
	retryOn, hasRetryOn, err := params.IntSlice("retry_on_exit_code")
	if err != nil {
		return nil, err
	}
	if !hasRetryOn {
		retryOn = nil
	}

	return &taskgraph.ExternalProcess{
		TaskName:         name,
		Args:             args,
		Env:              env,
		Dir:              dir,
		MaxTries:         maxTries,
		RetryDelay:       retryDelay,
		AcceptOnExitCode: accept,
		RetryOnExitCode:  retryOn,
		Config:           reg.ConfigLookup,
	}, nil
}

func envFromParams(params Params) (map[string]interface{}, error) {
	m, ok, err := params.Map("env")
	if err != nil || !ok {
		return nil, err
	}
	out := make(map[string]interface{}, len(m))
	for k, raw := range m {
		v, err := toRealizeValue(raw)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func buildDownload(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	url, ok, err := params.Get("url")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: download %q requires url", name)
	}
	dest, ok, err := params.Get("dest_path")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: download %q requires dest_path", name)
	}
	binary, _, err := params.String("binary")
	if err != nil {
		return nil, err
	}
	maxTries, err := params.MaxTriesPtr()
	if err != nil {
		return nil, err
	}
	retryDelay, _, err := params.Duration("retry_delay")
	if err != nil {
		return nil, err
	}

	return taskgraph.NewDownload(taskgraph.DownloadConfig{
		Name:       name,
		Binary:     binary,
		URL:        url,
		DestPath:   dest,
		MaxTries:   maxTries,
		RetryDelay: retryDelay,
		Config:     reg.ConfigLookup,
	}), nil
}

func buildArchiveUpload(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	target, ok, err := params.Get("target")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: archive_upload %q requires target", name)
	}
	sourceDir, ok, err := params.Get("source_dir")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: archive_upload %q requires source_dir", name)
	}
	filesProperty, ok, err := params.String("files_property")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: archive_upload %q requires files_property", name)
	}
	maxTries, err := params.MaxTriesPtr()
	if err != nil {
		return nil, err
	}
	retryDelay, _, err := params.Duration("retry_delay")
	if err != nil {
		return nil, err
	}

	return taskgraph.NewArchiveUpload(taskgraph.ArchiveUploadConfig{
		Name:       name,
		Target:     target,
		SourceDir:  sourceDir,
		Files:      filesFromProperty(filesProperty),
		MaxTries:   maxTries,
		RetryDelay: retryDelay,
		Config:     reg.ConfigLookup,
	}), nil
}

// filesFromProperty reads a []string (or []interface{} of strings) file
// list off the item, set earlier by a prior task in the chain.
func filesFromProperty(key string) func(it *item.Item) ([]string, error) {
	return func(it *item.Item) ([]string, error) {
		raw, ok := it.Property(key)
		if !ok {
			return nil, fmt.Errorf("descriptor: item property %q not set", key)
		}
		switch v := raw.(type) {
		case []string:
			return v, nil
		case []interface{}:
			out := make([]string, 0, len(v))
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("descriptor: property %q contains a non-string element", key)
				}
				out = append(out, s)
			}
			return out, nil
		default:
			return nil, fmt.Errorf("descriptor: property %q is not a file list (%T)", key, raw)
		}
	}
}

func buildSingleFileUpload(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	target, ok, err := params.Get("target")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: single_file_upload %q requires target", name)
	}
	filePath, ok, err := params.Get("file_path")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: single_file_upload %q requires file_path", name)
	}
	speedLimit, _, err := params.Int("speed_limit")
	if err != nil {
		return nil, err
	}
	speedTime, _, err := params.Int("speed_time")
	if err != nil {
		return nil, err
	}
	maxTries, err := params.MaxTriesPtr()
	if err != nil {
		return nil, err
	}
	retryDelay, _, err := params.Duration("retry_delay")
	if err != nil {
		return nil, err
	}

	return taskgraph.NewSingleFileUpload(taskgraph.SingleFileUploadConfig{
		Name:       name,
		Target:     target,
		FilePath:   filePath,
		SpeedLimit: speedLimit,
		SpeedTime:  speedTime,
		MaxTries:   maxTries,
		RetryDelay: retryDelay,
		Config:     reg.ConfigLookup,
	}), nil
}

func buildLimitConcurrent(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	n, ok, err := params.Get("n")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: limit_concurrent %q requires n", name)
	}
	innerParams, ok, err := params.Map("inner")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: limit_concurrent %q requires inner", name)
	}
	inner, err := buildInnerTask(innerParams, reg)
	if err != nil {
		return nil, err
	}

	return taskgraph.NewLimitConcurrent(name, n, inner, reg.ConfigLookup), nil
}

func buildConditionalTask(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	whenParams, ok, err := params.Map("when")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: conditional_task %q requires when", name)
	}
	predicate, err := buildPredicate(whenParams)
	if err != nil {
		return nil, err
	}
	innerParams, ok, err := params.Map("inner")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: conditional_task %q requires inner", name)
	}
	inner, err := buildInnerTask(innerParams, reg)
	if err != nil {
		return nil, err
	}

	return taskgraph.NewConditionalTask(name, predicate, inner), nil
}

// buildPredicate turns a when-clause into a PredicateFunc. property is
// required; if equals is present the predicate compares the property's
// string form against it, otherwise it reports simple presence.
func buildPredicate(when Params) (taskgraph.PredicateFunc, error) {
	property, ok, err := when.String("property")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: when clause requires property")
	}
	equals, hasEquals, err := when.String("equals")
	if err != nil {
		return nil, err
	}
	return func(it *item.Item) bool {
		v, ok := it.Property(property)
		if !ok {
			return false
		}
		if !hasEquals {
			return true
		}
		return fmt.Sprintf("%v", v) == equals
	}, nil
}

// buildInnerTask builds a sub-task node shaped like {kind, name, ...},
// recursing through reg so wrapper kinds can nest arbitrarily.
func buildInnerTask(params Params, reg *Registry) (taskgraph.Task, error) {
	kind, ok, err := params.String("kind")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: inner task node requires kind")
	}
	name, ok, err := params.String("name")
	if err != nil {
		return nil, err
	}
	if !ok {
		name = kind
	}
	rest := make(Params, len(params))
	for k, v := range params {
		if k == "kind" || k == "name" {
			continue
		}
		rest[k] = v
	}
	return reg.Build(kind, name, rest)
}

func buildTrackerGetItem(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	if reg.Tracker == nil {
		return nil, fmt.Errorf("descriptor: %q requires a tracker configuration", name)
	}
	return taskgraph.NewGetItemFromTracker(name, *reg.Tracker), nil
}

func buildTrackerSendDone(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	if reg.Tracker == nil {
		return nil, fmt.Errorf("descriptor: %q requires a tracker configuration", name)
	}
	statsParams, ok, err := params.Map("stats")
	if err != nil {
		return nil, err
	}
	buildStats := statsBuilder(statsParams, ok, reg)
	return taskgraph.NewSendDoneToTracker(name, *reg.Tracker, buildStats), nil
}

func buildTrackerUpload(name string, params Params, reg *Registry) (taskgraph.Task, error) {
	if reg.Tracker == nil {
		return nil, fmt.Errorf("descriptor: %q requires a tracker configuration", name)
	}
	statsParams, ok, err := params.Map("body")
	if err != nil {
		return nil, err
	}
	buildBody := statsBuilder(statsParams, ok, reg)

	sourceDir, ok, err := params.Get("source_dir")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("descriptor: %q requires source_dir", name)
	}
	filesProperty, _, err := params.String("files_property")
	if err != nil {
		return nil, err
	}
	filePath, _, err := params.Get("file_path")
	if err != nil {
		return nil, err
	}

	dispatcher := taskgraph.UploadDispatcher{
		NewArchiveUpload: func(target string) *taskgraph.ExternalProcess {
			return taskgraph.NewArchiveUpload(taskgraph.ArchiveUploadConfig{
				Name:      name + ".rsync",
				Target:    target,
				SourceDir: sourceDir,
				Files:     filesFromProperty(filesProperty),
				Config:    reg.ConfigLookup,
			})
		},
		NewSingleFileUpload: func(target string) *taskgraph.ExternalProcess {
			return taskgraph.NewSingleFileUpload(taskgraph.SingleFileUploadConfig{
				Name:     name + ".curl",
				Target:   target,
				FilePath: filePath,
				Config:   reg.ConfigLookup,
			})
		},
	}

	return taskgraph.NewUploadWithTracker(name, *reg.Tracker, buildBody, dispatcher), nil
}

// statsBuilder realizes a declared stats/body mapping against each item
// at request time. A nil/absent spec yields an empty body.
func statsBuilder(spec Params, present bool, reg *Registry) func(it *item.Item) (interface{}, error) {
	return func(it *item.Item) (interface{}, error) {
		if !present {
			return map[string]interface{}{}, nil
		}
		out := make(map[string]interface{}, len(spec))
		for k, raw := range spec {
			v, err := toRealizeValue(raw)
			if err != nil {
				return nil, err
			}
			rctx := &realize.Context{Item: it, Config: reg.ConfigLookup}
			realized, err := realize.Realize(v, rctx)
			if err != nil {
				return nil, err
			}
			out[k] = realized
		}
		return out, nil
	}
}

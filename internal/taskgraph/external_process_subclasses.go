package taskgraph

import (
	"strings"
	"time"

	"github.com/archiveteam/warrior-pipeline/internal/item"
	"github.com/archiveteam/warrior-pipeline/internal/realize"
)

// DownloadConfig configures a download ExternalProcess built around a
// tool that reads its target from stdin (wget -i -). The URL may be a
// realize descriptor; it is realized on every attempt, as argv is.
type DownloadConfig struct {
	Name       string
	Binary     string // default "wget"
	URL        interface{} // realize descriptor or literal string
	DestPath   interface{}
	MaxTries   *int
	RetryDelay time.Duration
	Config     realize.ConfigLookup
}

// NewDownload builds an ExternalProcess that downloads a URL supplied
// through stdin rather than on the command line.
func NewDownload(cfg DownloadConfig) *ExternalProcess {
	binary := cfg.Binary
	if binary == "" {
		binary = "wget"
	}
	return &ExternalProcess{
		TaskName:         cfg.Name,
		Args:             []interface{}{binary, "-O", cfg.DestPath, "-i", "-"},
		MaxTries:         cfg.MaxTries,
		RetryDelay:       cfg.RetryDelay,
		AcceptOnExitCode: []int{0},
		Config:           cfg.Config,
		StdinData: func(it *item.Item) ([]byte, error) {
			rctx := &realize.Context{Item: it, Config: cfg.Config}
			url, err := realize.Realize(cfg.URL, rctx)
			if err != nil {
				return nil, err
			}
			s, err := toArgString(url)
			if err != nil {
				return nil, err
			}
			return []byte(s + "\n"), nil
		},
	}
}

// ArchiveUploadConfig configures an rsync-based upload of a file list
// from a source directory.
type ArchiveUploadConfig struct {
	Name       string
	Target     interface{} // realize descriptor or literal rsync:// URL
	SourceDir  interface{}
	Files      func(it *item.Item) ([]string, error)
	MaxTries   *int
	RetryDelay time.Duration
	Config     realize.ConfigLookup
}

// NewArchiveUpload builds an ExternalProcess that rsyncs Files out of
// SourceDir to Target, streaming the file list over stdin via
// --files-from=-, one path per line.
func NewArchiveUpload(cfg ArchiveUploadConfig) *ExternalProcess {
	return &ExternalProcess{
		TaskName:         cfg.Name,
		Args:             []interface{}{"rsync", "-a", "--files-from=-", cfg.SourceDir, cfg.Target},
		MaxTries:         cfg.MaxTries,
		RetryDelay:       cfg.RetryDelay,
		AcceptOnExitCode: []int{0},
		Config:           cfg.Config,
		StdinData: func(it *item.Item) ([]byte, error) {
			files, err := cfg.Files(it)
			if err != nil {
				return nil, err
			}
			return []byte(strings.Join(files, "\n") + "\n"), nil
		},
	}
}

// SingleFileUploadConfig configures a curl-based upload of one file,
// with a speed/time limit in place of a hard wall-clock timeout.
type SingleFileUploadConfig struct {
	Name       string
	Target     interface{} // realize descriptor or literal http(s):// URL
	FilePath   interface{}
	SpeedLimit int // bytes/sec; default 1
	SpeedTime  int // seconds; default 900
	MaxTries   *int
	RetryDelay time.Duration
	Config     realize.ConfigLookup
}

// NewSingleFileUpload builds an ExternalProcess that uploads FilePath
// to Target with curl.
func NewSingleFileUpload(cfg SingleFileUploadConfig) *ExternalProcess {
	speedLimit := cfg.SpeedLimit
	if speedLimit == 0 {
		speedLimit = 1
	}
	speedTime := cfg.SpeedTime
	if speedTime == 0 {
		speedTime = 900
	}
	return &ExternalProcess{
		TaskName: cfg.Name,
		Args: []interface{}{
			"curl", "--fail", "--silent", "--show-error",
			"--speed-limit", speedLimit, "--speed-time", speedTime,
			"-T", cfg.FilePath, cfg.Target,
		},
		MaxTries:         cfg.MaxTries,
		RetryDelay:       cfg.RetryDelay,
		AcceptOnExitCode: []int{0},
		Config:           cfg.Config,
	}
}

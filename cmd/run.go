package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/archiveteam/warrior-pipeline/internal/config"
	"github.com/archiveteam/warrior-pipeline/internal/descriptor"
	"github.com/archiveteam/warrior-pipeline/internal/log"
	"github.com/archiveteam/warrior-pipeline/internal/metrics"
	"github.com/archiveteam/warrior-pipeline/internal/pipeline"
	"github.com/archiveteam/warrior-pipeline/internal/runner"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

var downloaderPattern = regexp.MustCompile(`^[-_a-zA-Z0-9]{3,30}$`)

const forceStopWindow = 5 * time.Second

var (
	flagConcurrent       int
	flagMaxItems         int
	flagStopFile         string
	flagKeepData         bool
	flagDisableWebServer bool
	flagContextValues    []string
)

var runCmd = &cobra.Command{
	Use:   "run <pipeline-file> <downloader-nickname>",
	Short: "Run a pipeline file against the tracker as the given downloader",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRunCommand(args[0], args[1])
	},
}

func init() {
	runCmd.Flags().IntVar(&flagConcurrent, "concurrent", 0, "in-flight item cap (overrides config; >20 refused, >6 warned)")
	runCmd.Flags().IntVar(&flagMaxItems, "max-items", 0, "stop after this many items (0 = config default / unlimited)")
	runCmd.Flags().StringVar(&flagStopFile, "stop-file", "", "path polled for graceful-stop (overrides config)")
	runCmd.Flags().BoolVar(&flagKeepData, "keep-data", false, "keep per-item data directories after completion")
	runCmd.Flags().BoolVar(&flagDisableWebServer, "disable-web-server", false, "disable the metrics HTTP server")
	runCmd.Flags().StringArrayVar(&flagContextValues, "context-value", nil, "NAME=VALUE, repeatable; overlays the pipeline's config context")
}

func runRunCommand(pipelineFile, downloader string) error {
	if !downloaderPattern.MatchString(downloader) {
		return fmt.Errorf("downloader %q must match %s", downloader, downloaderPattern.String())
	}
	if flagConcurrent > 20 {
		return fmt.Errorf("--concurrent %d exceeds the hard limit of 20", flagConcurrent)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyRunFlags(cfg)

	if err := log.Init(cfg.Log.ToLogConfig()); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if cfg.Runner.Concurrent > 6 {
		log.GetLogger().WithField("concurrent", cfg.Runner.Concurrent).
			Warn("run: concurrency above 6 may overload the tracker and your own bandwidth")
	}

	contextValues, err := mergeContextValues(cfg.Context, flagContextValues)
	if err != nil {
		return err
	}

	reg := descriptor.NewRegistry(config.ContextLookup(contextValues))
	reg.SetTrackerConfig(taskgraph.TrackerClientConfig{
		BaseURL:    cfg.Tracker.BaseURL,
		Downloader: downloader,
		Version:    Version,
		UserAgent:  strings.TrimRight(userAgent(RunnerType, Version, Build)+" "+cfg.Tracker.UserAgentSuffix, " "),
		Client:     &http.Client{Timeout: 60 * time.Second},
	})

	pcfg, err := descriptor.Load(pipelineFile, reg)
	if err != nil {
		return fmt.Errorf("load pipeline: %w", err)
	}
	p := pipeline.New(pcfg)

	ctx, cancelMetrics := context.WithCancel(context.Background())
	defer cancelMetrics()
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled && !cfg.Runner.DisableWebServer {
		metricsServer = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := metricsServer.Start(ctx); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	r := runner.New(runner.Config{
		Concurrent: cfg.Runner.Concurrent,
		MaxItems:   cfg.Runner.MaxItems,
		StopFile:   cfg.Runner.StopFile,
		DataDir:    cfg.Runner.DataDir,
		KeepData:   cfg.Runner.KeepData,
	}, p)

	stopSignalHandling := installSignalHandler(r)
	defer stopSignalHandling()

	log.GetLogger().WithFields(map[string]interface{}{
		"pipeline":   pcfg.Name,
		"downloader": downloader,
		"concurrent": cfg.Runner.Concurrent,
	}).Info("run: starting")

	r.Run()

	if metricsServer != nil {
		_ = metricsServer.Stop(context.Background())
	}
	log.GetLogger().Info("run: finished")
	return nil
}

func applyRunFlags(cfg *config.GlobalConfig) {
	if flagConcurrent > 0 {
		cfg.Runner.Concurrent = flagConcurrent
	}
	if flagMaxItems > 0 {
		cfg.Runner.MaxItems = flagMaxItems
	}
	if flagStopFile != "" {
		cfg.Runner.StopFile = flagStopFile
	}
	if flagKeepData {
		cfg.Runner.KeepData = true
	}
	if flagDisableWebServer {
		cfg.Runner.DisableWebServer = true
	}
}

func mergeContextValues(base map[string]string, overrides []string) (map[string]string, error) {
	out := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for _, kv := range overrides {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--context-value %q must be NAME=VALUE", kv)
		}
		out[name] = value
	}
	return out, nil
}

// installSignalHandler wires SIGINT/SIGTERM to a graceful stop, with a
// second SIGINT within forceStopWindow escalating to a forced stop. It
// returns a cleanup func that stops listening for signals.
func installSignalHandler(r *runner.Runner) func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var lastSignal time.Time
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				now := time.Now()
				if sig == syscall.SIGINT && !lastSignal.IsZero() && now.Sub(lastSignal) <= forceStopWindow {
					log.GetLogger().Warn("run: second interrupt within window, forcing stop")
					r.ForceStop()
					continue
				}
				lastSignal = now
				log.GetLogger().WithField("signal", sig.String()).Info("run: interrupt received, stopping gracefully")
				r.StopGracefully()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

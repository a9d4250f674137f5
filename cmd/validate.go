package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/archiveteam/warrior-pipeline/internal/descriptor"
	"github.com/archiveteam/warrior-pipeline/internal/taskgraph"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline-file>",
	Short: "Parse and type-check a pipeline file without running it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidateCommand(args[0], cmd.OutOrStdout())
	},
}

func runValidateCommand(pipelineFile string, out io.Writer) error {
	reg := descriptor.NewRegistry(nil)
	// A placeholder tracker config is enough to structurally validate a
	// pipeline's tracker_* nodes without a real tracker to talk to.
	reg.SetTrackerConfig(taskgraph.TrackerClientConfig{})
	cfg, err := descriptor.Load(pipelineFile, reg)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	fmt.Fprintf(out, "VALID: pipeline %q — %d task(s)\n", cfg.Name, len(cfg.Tasks))
	for i, task := range cfg.Tasks {
		fmt.Fprintf(out, "  %d. %s\n", i+1, task.Name())
	}
	return nil
}

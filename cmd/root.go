// Package cmd implements the warrior-pipeline CLI using cobra.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version, RunnerType and Build feed the tracker User-Agent header and
// the version command; Build is set via -ldflags at release build
// time and is empty for local builds.
var (
	Version    = "dev"
	RunnerType = "warrior-pipeline"
	Build      = ""
)

var configFile string

var rootCmd = &cobra.Command{
	Use:          "warrior-pipeline",
	Short:        "Run and validate ArchiveTeam-style pipeline descriptors",
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "engine.yml",
		"engine configuration file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version and tracker User-Agent",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
		fmt.Println(userAgent(RunnerType, Version, Build))
	},
}

// userAgent builds the tracker User-Agent header: "ArchiveTeam
// Warrior/<version> <runner-type> <build>", with a trailing space
// trimmed when build is empty.
func userAgent(runnerType, version, build string) string {
	s := fmt.Sprintf("ArchiveTeam Warrior/%s %s %s", version, runnerType, build)
	return strings.TrimRight(s, " ")
}

// Package main is the entry point for the warrior-pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/archiveteam/warrior-pipeline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Package main is the entry point for the tailray tray indicator.
package main

import (
	"os"

	"github.com/watchfire-io/tailray/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

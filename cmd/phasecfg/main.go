// Package main is the entry point for the phasecfg configuration tool.
package main

import (
	"os"

	"github.com/oriumgames/phase"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = phase.Version

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

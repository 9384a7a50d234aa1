// Package main provides the entry point for the folder-observer CLI.
package main

import (
	"os"

	"github.com/ickyicky/folder-observer/cmd/folder-observer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

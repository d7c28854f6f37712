// Package main provides the entry point for the reflex CLI.
package main

import (
	"os"

	"github.com/ccheney/reflex/cmd/reflex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package cmd provides the CLI commands for Reflex.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ccheney/reflex/internal/logging"
	"github.com/ccheney/reflex/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the reflex CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflex",
		Short: "Semantic response cache harness",
		Long: `Reflex is a three-tier semantic response cache: an exact in-memory
cache (L1), a binary-quantized ANN semantic cache (L2), and a
cross-encoder verification gate (L3).

This binary does not run a gateway; it exercises the tiered engine
end to end against deterministic in-memory capability stubs, so the
wiring can be demonstrated and exercised without a live model or
vector database.`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("reflex version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.reflex/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newDemoCmd())
	cmd.AddCommand(newBenchCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

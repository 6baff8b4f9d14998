package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"renovo/internal/cli"
	"renovo/internal/log"
)

var flagQuiet bool

var rootCmd = &cobra.Command{
	Use:           "renovoctl",
	Short:         "Administer renovo projects and storage",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "renovoctl: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only log warnings and errors")
}

// openApp loads configuration and wires services for one command run.
func openApp(ctx context.Context) (*cli.App, error) {
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	if flagQuiet {
		cfg.LogLevel = "warn"
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)
	return cli.Bootstrap(ctx, cfg, logger)
}

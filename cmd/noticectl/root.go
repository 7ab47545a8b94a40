package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NathanaelAtEGR/unf/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logDir   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "noticectl",
	Short: "Replay scene edits and inspect the notices they produce",
	Long: `noticectl drives an in-memory scene stage from a YAML scenario and
prints every notice the stage's broker delivers. Transactions in the scenario
show how notices are deferred, filtered and merged.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return initLogging() },
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output and debug logs on stderr")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write logs to this directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Minimum log level (debug, info, warn, error)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogging enables file logging with --log-dir, or debug logging on
// stderr with --verbose. Otherwise logs are discarded.
func initLogging() error {
	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	switch {
	case logDir != "":
		return logger.Init(logger.Options{Enabled: true, LogDir: logDir, Level: level})
	case verbose && !quiet:
		return logger.Init(logger.Options{Enabled: true, Output: os.Stderr, Level: slog.LevelDebug})
	default:
		return logger.Init(logger.Options{})
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...interface{}) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Package logger holds the process-wide structured logger shared by the
// broker, the dispatchers and the diff cache.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init
// enables it.
var L *slog.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	logPrefix     = "noticectl-"
	logSuffix     = ".log"
	dateLayout    = "2006-01-02"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	LogDir  string     // Directory for log files. Default: ~/.unf/logs
	Output  io.Writer  // Write here instead of a log file when set
	Level   slog.Level // Minimum log level. Default: LevelInfo
}

// Init configures logging. Call from main() before any log calls.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.NewTextHandler(io.Discard, nil))
		return nil
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	if opts.Output != nil {
		L = slog.New(slog.NewTextHandler(opts.Output, handlerOpts))
		return nil
	}

	logDir := opts.LogDir
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("logger: resolve home: %w", err)
		}
		logDir = filepath.Join(home, ".unf", "logs")
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	// best-effort
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logFileName(time.Now()))
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	L = slog.New(slog.NewJSONHandler(f, handlerOpts))
	return nil
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", s)
	}
	return level, nil
}

func logFileName(t time.Time) string {
	return logPrefix + t.Format(dateLayout) + logSuffix
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// noticectl-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse(dateLayout, dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

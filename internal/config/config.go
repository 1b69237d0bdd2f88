package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taprootstats/tapscan/internal/kernel"
)

// ScanConfig carries everything the CLI resolved from flags and environment.
type ScanConfig struct {
	DataDir        string
	Network        string
	Start          int64
	End            int64
	Output         string
	PostgresConn   string
	MetricsAddr    string
	MaxConcurrency uint
	LogLevel       string
}

// Validate rejects configurations that would fail before any chain access.
// Start > End is allowed and produces an empty result set.
func (c ScanConfig) Validate() error {
	if c.DataDir == "" {
		return errors.New("datadir must not be empty")
	}
	if _, err := kernel.ParamsForNetwork(c.Network); err != nil {
		return err
	}
	if c.Start < 0 || c.End < 0 {
		return errors.New("start and end heights must be non-negative")
	}
	if c.Output == "" {
		return errors.New("output path must not be empty")
	}
	if c.MaxConcurrency == 0 {
		return errors.New("max-concurrency must be at least 1")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses the configured log level.
func (c ScanConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}

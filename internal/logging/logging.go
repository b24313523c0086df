// Package logging configures the logrus loggers used by the CLI and by
// individual backtest runs.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/ashare/market"
)

// New returns a logger writing text lines to w at the named level
// (debug|info|warn|error). An empty level means info.
func New(level string, w io.Writer) (*logrus.Logger, error) {
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: market.DateTimeLayout,
	})
	return l, nil
}

// Setup configures the standard logger, which strategies and the runner
// fall back to when no logger is injected.
func Setup(level string, w io.Writer) error {
	l, err := New(level, w)
	if err != nil {
		return err
	}
	std := logrus.StandardLogger()
	std.SetOutput(l.Out)
	std.SetLevel(l.Level)
	std.SetFormatter(l.Formatter)
	return nil
}

// RunFile opens dir/name.log and returns a logger that writes to both the
// file and base's output, at base's level. The caller closes the file.
func RunFile(base *logrus.Logger, dir, name string) (*logrus.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(filepath.Join(dir, name+".log"))
	if err != nil {
		return nil, nil, err
	}

	l := logrus.New()
	l.SetOutput(io.MultiWriter(base.Out, f))
	l.SetLevel(base.Level)
	l.SetFormatter(base.Formatter)
	return l, f, nil
}

// Package logging configures charmbracelet/log for the narrator.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Options control Setup.
type Options struct {
	Debug bool
	// File receives the log instead of Output when set. A relative name
	// is placed in DataDir.
	File    string
	DataDir string
	// Output is where logs go when no file is configured. Defaults to
	// os.Stderr.
	Output io.Writer
}

var (
	mu   sync.Mutex
	file *os.File
)

// Setup configures the default logger and returns a closer for the log
// file, if one was opened.
func Setup(opts Options) (func() error, error) {
	mu.Lock()
	defer mu.Unlock()

	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	path := opts.File
	if path == "" && opts.Debug && opts.DataDir != "" {
		path = "narrator-debug.log"
	}
	if path != "" {
		f, err := openLogFile(path, opts.DataDir)
		if err != nil {
			return func() error { return nil }, err
		}
		file = f
		out = f
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "narrator",
		ReportTimestamp: path != "",
		TimeFormat:      time.RFC3339,
	})
	log.SetDefault(logger)

	if file != nil {
		log.Debug("Debug log file opened", "path", file.Name())
	}
	return closeFile, nil
}

func openLogFile(path, dataDir string) (*os.File, error) {
	if !filepath.IsAbs(path) && dataDir != "" {
		path = filepath.Join(dataDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}
	return f, nil
}

func closeFile() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return err
}

// SetDebug switches debug logging at runtime.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
		log.Debug("Debug logging enabled")
		return
	}
	log.SetLevel(log.InfoLevel)
}

// Bytes formats a payload size for log fields.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

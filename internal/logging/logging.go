// Package logging routes the standard logger to stderr and, optionally, a rotating file.
package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls file rotation. Zero values fall back to the defaults below.
type Options struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

var defaultOptions = Options{MaxSizeMB: 20, MaxBackups: 5, MaxAgeDays: 14}

// Setup points the standard logger at stderr, plus path when it is set.
// The returned closer flushes and closes the file; it is safe to call when path is empty.
func Setup(path string, opts Options) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
	if path == "" {
		log.SetOutput(os.Stderr)
		return nopCloser{}
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = defaultOptions.MaxSizeMB
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = defaultOptions.MaxBackups
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = defaultOptions.MaxAgeDays
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Printf("[WARN] cannot create log directory for %s: %v", path, err)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

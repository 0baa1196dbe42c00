// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runlog mirrors everything a run prints to the console into a
// timestamped log file. Error output is highlighted on the console only.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// endMarker is the last line of every cleanly closed log. A log
	// without it belongs to a run that crashed.
	endMarker = "End of log."

	ansiError = "\x1b[41;97m"
	ansiReset = "\x1b[0m"
)

// FileName returns the log file name for a run started at now, in UTC:
// 20260102T150405Z.log.
func FileName(now time.Time) string {
	return now.UTC().Format("20060102T150405Z") + ".log"
}

// Log writes to the console and to a log file.
type Log struct {
	mu      sync.Mutex
	console io.Writer
	errCons io.Writer
	file    *os.File
	path    string
	color   bool
}

// Options configures Open.
type Options struct {
	// Dir receives the log file. It is created if missing.
	Dir string
	// Now stamps the file name.
	Now time.Time
	// Stdout and Stderr are the console streams. Both default to os.Stdout,
	// matching a single interleaved console.
	Stdout io.Writer
	Stderr io.Writer
	// Color enables ANSI highlighting of error lines on the console.
	Color bool
}

// Open creates the log directory and opens the log file for appending.
func Open(opts Options) (*Log, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs directory %s: %w", opts.Dir, err)
	}
	path := filepath.Join(opts.Dir, FileName(opts.Now))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = stdout
	}
	return &Log{console: stdout, errCons: stderr, file: f, path: path, color: opts.Color}, nil
}

// Path returns the log file path.
func (l *Log) Path() string { return l.path }

// Out returns a writer for ordinary output.
func (l *Log) Out() io.Writer { return writerFunc(l.writeOut) }

// Err returns a writer for error output.
func (l *Log) Err() io.Writer { return writerFunc(l.writeErr) }

// Printf writes a formatted line to Out.
func (l *Log) Printf(format string, args ...any) {
	fmt.Fprintf(l.Out(), format+"\n", args...)
}

// Errorf writes a formatted line to Err.
func (l *Log) Errorf(format string, args ...any) {
	fmt.Fprintf(l.Err(), format+"\n", args...)
}

// Logger returns a slog logger that writes text records into the log file
// only. Console output stays reserved for progress lines.
func (l *Log) Logger(level slog.Level) *slog.Logger {
	h := slog.NewTextHandler(writerFunc(l.writeFile), &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// Close writes the end marker and closes the file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	fmt.Fprintln(l.file, endMarker)
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Log) writeOut(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.console.Write(p); err != nil {
		return 0, err
	}
	return l.fileWrite(p)
}

func (l *Log) writeErr(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.color {
		body, nl := trimNewline(p)
		if _, err := fmt.Fprintf(l.errCons, "%s%s%s%s", ansiError, body, ansiReset, nl); err != nil {
			return 0, err
		}
	} else if _, err := l.errCons.Write(p); err != nil {
		return 0, err
	}
	return l.fileWrite(p)
}

func (l *Log) writeFile(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fileWrite(p)
}

func (l *Log) fileWrite(p []byte) (int, error) {
	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

func trimNewline(p []byte) ([]byte, string) {
	if n := len(p); n > 0 && p[n-1] == '\n' {
		return p[:n-1], "\n"
	}
	return p, ""
}

type writerFunc func(p []byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }

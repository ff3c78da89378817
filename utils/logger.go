package utils

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger provides leveled, timestamped logging to the console and,
// optionally, a plain-text log file.
type Logger struct {
	mu      sync.Mutex
	console io.Writer
	errOut  io.Writer
	file    io.WriteCloser
	debug   bool
}

// NewLogger creates a console-only Logger writing to stdout/stderr.
func NewLogger() *Logger {
	return &Logger{console: os.Stdout, errOut: os.Stderr}
}

// NewFileLogger creates a Logger that also appends every line to path.
func NewFileLogger(path string, debug bool) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %q: %w", path, err)
	}
	return &Logger{console: os.Stdout, errOut: os.Stderr, file: f, debug: debug}, nil
}

// SetDebug toggles Debug output.
func (l *Logger) SetDebug(on bool) { l.debug = on }

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) write(w io.Writer, color, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ts := l.timestamp()

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(w, "[%s] %s%-5s\033[0m %s\n", ts, color, level, msg)
	if l.file != nil {
		fmt.Fprintf(l.file, "%s - %s - %s\n", ts, level, msg)
	}
}

func (l *Logger) Info(format string, args ...any) {
	l.write(l.console, "\033[32m", "INFO", format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.write(l.console, "\033[33m", "WARN", format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.write(l.errOut, "\033[31m", "ERROR", format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debug {
		return
	}
	l.write(l.console, "\033[36m", "DEBUG", format, args...)
}

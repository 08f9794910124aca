package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Logger handles console logging with optional file output
type Logger struct {
	Verbose bool
	writer  io.Writer
	errOut  io.Writer
	mu      sync.Mutex
	fileLog *os.File
	file    hclog.Logger
	hasBar  bool
}

// New creates a new Logger instance
func New(verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		writer:  os.Stdout,
		errOut:  os.Stderr,
	}
}

// SetOutput redirects console output. A nil writer silences the console,
// errors included.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	l.writer = w
	l.errOut = w
}

// SetFileLog enables logging to a file. The file always receives debug
// output, in hclog's timestamped format.
func (l *Logger) SetFileLog(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.fileLog = f
	l.file = newFileLogger(f)
	return nil
}

// SetFileWriter is SetFileLog for an already open writer.
func (l *Logger) SetFileWriter(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = newFileLogger(w)
}

func newFileLogger(w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "mbart",
		Level:  hclog.Debug,
		Output: w,
	})
}

// SetProgressBar indicates that a progress bar is active
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.file = nil
	if l.fileLog != nil {
		err := l.fileLog.Close()
		l.fileLog = nil
		return err
	}
	return nil
}

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(hclog.Info, format, args...)
}

// Debug logs detailed messages only in verbose mode
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.log(hclog.Debug, format, args...)
		return
	}
	// Always log debug to file even in non-verbose mode
	l.logToFile(hclog.Debug, fmt.Sprintf(format, args...))
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	fmt.Fprintf(l.errOut, "[ERROR] %s\n", msg)
	l.mu.Unlock()

	l.logToFile(hclog.Error, msg)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(hclog.Warn, format, args...)
}

// log handles the actual logging
func (l *Logger) log(level hclog.Level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	// Write to stdout (unless we have a progress bar and not verbose)
	if l.Verbose || !l.hasBar {
		if level == hclog.Info {
			fmt.Fprintln(l.writer, msg)
		} else {
			fmt.Fprintf(l.writer, "[%s] %s\n", prefix(level), msg)
		}
	}
	l.mu.Unlock()

	l.logToFile(level, msg)
}

// logToFile writes only to file
func (l *Logger) logToFile(level hclog.Level, msg string) {
	l.mu.Lock()
	file := l.file
	l.mu.Unlock()

	if file == nil {
		return
	}
	file.Log(level, msg)
}

func prefix(level hclog.Level) string {
	switch level {
	case hclog.Debug:
		return "DEBUG"
	case hclog.Warn:
		return "WARN"
	case hclog.Error:
		return "ERROR"
	}
	return "INFO"
}

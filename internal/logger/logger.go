package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

const fileTimeFormat = "2006-01-02 15:04:05"

// Logger handles leveled console logging with optional file output.
// Console lines may be colored; file lines are plain and timestamped.
type Logger struct {
	Verbose bool

	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	file    *os.File
	hasBar  bool
	nowFunc func() time.Time
}

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.Faint)
)

// New creates a Logger writing to the color-aware stdout and stderr.
func New(verbose bool) *Logger {
	return &Logger{
		Verbose: verbose,
		out:     color.Output,
		errOut:  color.Error,
		nowFunc: time.Now,
	}
}

// Discard returns a Logger that drops console output. Useful in tests and
// for library callers that do not want console lines.
func Discard() *Logger {
	return &Logger{out: io.Discard, errOut: io.Discard, nowFunc: time.Now}
}

// SetOutput redirects console output, both regular and error lines.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.errOut = w
}

// SetFileLog appends every line, debug included, to the file at path.
func (l *Logger) SetFileLog(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
	}
	l.file = f
	return nil
}

// SetProgressBar mutes regular console lines while a bar owns the terminal.
// Errors still reach stderr.
func (l *Logger) SetProgressBar(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasBar = active
}

// Close closes the log file if open
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Info logs an uncolored informational line.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(nil, "", false, format, args...)
}

// Print logs an informational line in the given console color.
func (l *Logger) Print(attr color.Attribute, format string, args ...interface{}) {
	l.write(color.New(attr), "", false, format, args...)
}

// Debug logs to the console only in verbose mode; the file always gets it.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Verbose {
		l.write(debugColor, "DEBUG", false, format, args...)
		return
	}
	l.write(nil, "DEBUG", false, format, args...)
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(warnColor, "WARN", false, format, args...)
}

// Error logs error messages to stderr
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(errorColor, "ERROR", true, format, args...)
}

// write sends one line to the console and the file. A nil color on a
// leveled line means file only.
func (l *Logger) write(c *color.Color, level string, toErr bool, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if level != "" {
		msg = "[" + level + "] " + msg
	}
	msg += "\n"

	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case toErr:
		c.Fprint(l.errOut, msg)
	case level != "" && c == nil:
	case l.Verbose || !l.hasBar:
		if c != nil {
			c.Fprint(l.out, msg)
		} else {
			fmt.Fprint(l.out, msg)
		}
	}

	if l.file != nil {
		l.file.WriteString(l.nowFunc().Format(fileTimeFormat) + " " + msg)
	}
}

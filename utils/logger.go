package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	infoTag  = color.New(color.FgGreen).Sprint("INFO")
	warnTag  = color.New(color.FgYellow).Sprint("WARN")
	errorTag = color.New(color.FgRed).Sprint("ERROR")
	debugTag = color.New(color.FgCyan).Sprint("DEBUG")
)

// Logger provides leveled logging throughout the application.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	debugEnabled bool
}

// NewLogger creates a new Logger writing to stdout/stderr.
func NewLogger(debug bool) *Logger {
	return newLogger(os.Stdout, os.Stderr, debug)
}

// NewDiscardLogger swallows everything. Used by tests.
func NewDiscardLogger() *Logger {
	return newLogger(io.Discard, io.Discard, false)
}

// NewWriterLogger sends every level to w.
func NewWriterLogger(w io.Writer, debug bool) *Logger {
	return newLogger(w, w, debug)
}

func newLogger(out, errOut io.Writer, debug bool) *Logger {
	flags := 0
	return &Logger{
		info:         log.New(out, "", flags),
		warn:         log.New(out, "", flags),
		err:          log.New(errOut, "", flags),
		debug:        log.New(out, "", flags),
		debugEnabled: debug,
	}
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf("[%s] %s  %s", l.timestamp(), infoTag, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf("[%s] %s  %s", l.timestamp(), warnTag, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf("[%s] %s %s", l.timestamp(), errorTag, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.debugEnabled {
		return
	}
	l.debug.Printf("[%s] %s %s", l.timestamp(), debugTag, fmt.Sprintf(format, args...))
}

package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"
)

// Logger provides structured, leveled logging throughout the application.
type Logger struct {
	info  *log.Logger
	warn  *log.Logger
	err   *log.Logger
	debug *log.Logger

	colour  bool
	verbose bool
}

// NewLogger creates a new Logger writing to stdout/stderr. Level tags are
// coloured only when stdout is a terminal.
func NewLogger() *Logger {
	l := newLogger(os.Stdout, os.Stderr)
	l.colour = term.IsTerminal(int(os.Stdout.Fd()))
	return l
}

// NewWriterLogger sends every level to w without colour. Used by tests and
// when output is captured.
func NewWriterLogger(w io.Writer) *Logger {
	return newLogger(w, w)
}

func newLogger(out, errOut io.Writer) *Logger {
	flags := 0
	return &Logger{
		info:  log.New(out, "", flags),
		warn:  log.New(out, "", flags),
		err:   log.New(errOut, "", flags),
		debug: log.New(out, "", flags),
	}
}

// SetVerbose enables Debug output.
func (l *Logger) SetVerbose(v bool) {
	l.verbose = v
}

// SetLevel enables Debug output for the "debug" level name.
func (l *Logger) SetLevel(level string) {
	l.verbose = level == "debug"
}

func (l *Logger) timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}

func (l *Logger) tag(colourCode, name string) string {
	if !l.colour {
		return name
	}
	return "\033[" + colourCode + "m" + name + "\033[0m"
}

func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(fmt.Sprintf("[%s] %s  %s\n", l.timestamp(), l.tag("32", "INFO"), format), args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(fmt.Sprintf("[%s] %s  %s\n", l.timestamp(), l.tag("33", "WARN"), format), args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.err.Printf(fmt.Sprintf("[%s] %s %s\n", l.timestamp(), l.tag("31", "ERROR"), format), args...)
}

func (l *Logger) Debug(format string, args ...any) {
	if !l.verbose {
		return
	}
	l.debug.Printf(fmt.Sprintf("[%s] %s %s\n", l.timestamp(), l.tag("36", "DEBUG"), format), args...)
}

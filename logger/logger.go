package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Logger provides leveled logging (info/warning/error) to stdout/stderr and,
// when a directory is configured, to one file per level.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	files      []*os.File
	mu         sync.Mutex
}

// New creates a Logger. An empty logDir logs to the console only.
func New(logDir string) (*Logger, error) {
	if logDir == "" {
		return NewWithWriters(os.Stdout, os.Stderr), nil
	}
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	l := &Logger{}
	open := func(name string) (io.Writer, error) {
		file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", name, err)
		}
		l.files = append(l.files, file)
		return file, nil
	}

	info, err := open("info.log")
	if err != nil {
		l.Close()
		return nil, err
	}
	warning, err := open("warning.log")
	if err != nil {
		l.Close()
		return nil, err
	}
	errorFile, err := open("error.log")
	if err != nil {
		l.Close()
		return nil, err
	}

	l.setup(io.MultiWriter(os.Stdout, info), io.MultiWriter(os.Stdout, warning), io.MultiWriter(os.Stderr, errorFile))
	return l, nil
}

// NewWithWriters logs info and warnings to out and errors to errOut
func NewWithWriters(out, errOut io.Writer) *Logger {
	l := &Logger{}
	l.setup(out, out, errOut)
	return l
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return NewWithWriters(io.Discard, io.Discard)
}

func (l *Logger) setup(info, warning, errOut io.Writer) {
	l.infoLog = log.New(info, "ℹ️  INFO    ", log.Ldate|log.Ltime)
	l.warningLog = log.New(warning, "⚠️  WARNING ", log.Ldate|log.Ltime)
	l.errorLog = log.New(errOut, "❌ ERROR   ", log.Ldate|log.Ltime)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}

// Close closes any open log files.
func (l *Logger) Close() error {
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}

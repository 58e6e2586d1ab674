// Package logging provides file-based logging for sprout.
// It outputs logs to both a global log file (<data>/logs/sprout.log)
// and task-specific log files (<data>/logs/task-<id>.log).
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runoshun/git-sprout/internal/domain"
)

// Ensure Logger implements domain.Logger interface.
var _ domain.Logger = (*Logger)(nil)

// Logger writes leveled entries to log files, optionally echoing warnings to a console.
type Logger struct {
	globalFile *os.File
	taskFiles  map[string]*os.File
	console    *slog.Logger // Receives WARN and above; nil = files only
	dataDir    string
	mu         sync.Mutex
	level      slog.Level
}

// New creates a new Logger that writes below dataDir.
// If dataDir is empty, file logging is disabled.
func New(dataDir string, level slog.Level) *Logger {
	return &Logger{
		dataDir:   dataDir,
		level:     level,
		taskFiles: make(map[string]*os.File),
	}
}

// WithConsole echoes warnings and errors to w as slog text records.
func (l *Logger) WithConsole(w io.Writer) *Logger {
	l.console = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return l
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openLog opens path for appending, creating the logs directory.
func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create logs directory: %w", err)
	}
	//nolint:gosec // Log file readable by owner and group
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
}

// writers returns the files an entry for taskID goes to.
func (l *Logger) writers(taskID string) []io.Writer {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []io.Writer
	if l.globalFile == nil {
		if f, err := openLog(domain.GlobalLogPath(l.dataDir)); err == nil {
			l.globalFile = f
		}
	}
	if l.globalFile != nil {
		out = append(out, l.globalFile)
	}

	if taskID == "" {
		return out
	}
	f, ok := l.taskFiles[taskID]
	if !ok {
		var err error
		if f, err = openLog(domain.TaskLogPath(l.dataDir, taskID)); err != nil {
			return out
		}
		l.taskFiles[taskID] = f
	}
	return append(out, f)
}

// Close closes all open log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lastErr error
	if l.globalFile != nil {
		if err := l.globalFile.Close(); err != nil {
			lastErr = err
		}
		l.globalFile = nil
	}
	for id, f := range l.taskFiles {
		if err := f.Close(); err != nil {
			lastErr = err
		}
		delete(l.taskFiles, id)
	}
	return lastErr
}

// formatLog formats a log entry.
// Format: [2025-12-30 09:32:51] [INFO] [task-0b7c6d1e] [category] message
func formatLog(t time.Time, level slog.Level, taskID, category, msg string) string {
	taskStr := "global"
	if taskID != "" {
		short := taskID
		if len(short) > 8 {
			short = short[:8]
		}
		taskStr = "task-" + short
	}
	return fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"),
		level.String(),
		taskStr,
		category,
		msg,
	)
}

// log writes an entry to the global log and, when taskID is set, to the task log.
func (l *Logger) log(level slog.Level, taskID, category, msg string) {
	if level >= slog.LevelWarn && l.console != nil {
		l.console.Log(context.Background(), level, msg, "category", category, "task", taskID)
	}

	if l.dataDir == "" || level < l.level {
		return
	}

	entry := formatLog(time.Now(), level, taskID, category, msg)
	for _, w := range l.writers(taskID) {
		_, _ = io.WriteString(w, entry)
	}
}

// Info logs an info message.
func (l *Logger) Info(taskID, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

// Debug logs a debug message.
func (l *Logger) Debug(taskID, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(taskID, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

// Error logs an error message.
func (l *Logger) Error(taskID, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}

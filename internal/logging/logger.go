// Package logging provides leveled logging and decision tracing for vcdq.
//
// Operational output goes to a leveled slog.Logger, normally on stderr since
// stdout carries MCP framing when serving. Signal-resolution decisions are
// written as JSONL to decisions.jsonl when the level is debug or trace.
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level per-instant
// sampling details are logged.
const LevelTrace = slog.LevelDebug - 4

// DecisionsFile is the JSONL file written by a DecisionLogger.
const DecisionsFile = "decisions.jsonl"

// ParseLevel maps "info", "debug" or "trace" (any case) to a slog.Level.
// Unknown values map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// DecisionLogger appends structured decision events to a JSONL file.
// It is safe for concurrent use, and a nil *DecisionLogger is a no-op.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is debug
// or trace. At info level, or when the file cannot be opened, it returns nil.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, DecisionsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{file: f}
}

// Log writes event as one JSONL line with a "time" field added. The caller's
// map is not modified.
func (dl *DecisionLogger) Log(event map[string]any) {
	if dl == nil {
		return
	}

	entry := make(map[string]any, len(event)+1)
	maps.Copy(entry, event)
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return
	}
	_, _ = dl.file.Write(data)
}

// Close closes the underlying file. Later calls to Log are dropped.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		dl.file.Close()
		dl.file = nil
	}
}

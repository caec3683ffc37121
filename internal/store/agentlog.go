// ABOUTME: Append-only NDJSON event log for frontend agent diagnostics
// ABOUTME: One JSON object per line, timestamped at append time

package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AgentLogEntry is one diagnostic event reported by a frontend client.
type AgentLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// AgentLog appends diagnostic events to an NDJSON file. Appends are
// serialized so concurrent writers never interleave within a line.
type AgentLog struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewAgentLog creates an agent log writing to path.
func NewAgentLog(path string, logger *slog.Logger) *AgentLog {
	if logger == nil {
		logger = slog.Default()
	}
	return &AgentLog{
		path:   path,
		logger: logger.With("component", "agentlog"),
	}
}

// Append stamps the entry with the current time and writes it as one JSON
// line. Parent directories are created on first use.
func (l *AgentLog) Append(entry AgentLogEntry) error {
	entry.Timestamp = time.Now()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing log entry: %w", err)
	}
	return nil
}

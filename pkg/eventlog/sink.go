// Package eventlog records structured run events to a JSONL file and the log store.
package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

// Sink appends every record to a JSONL file and inserts it into a log
// repository. Records are serialized so lines never interleave.
type Sink struct {
	path   string
	store  persistence.LogRepository
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// Option configures a Sink.
type Option func(*Sink)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) {
		s.now = now
	}
}

// New creates a sink writing to path. Either path or store may be empty/nil.
func New(logger *slog.Logger, path string, store persistence.LogRepository, opts ...Option) *Sink {
	sink := &Sink{
		path:   path,
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(sink)
	}

	return sink
}

// Record writes one event. Failures are reported to the logger only.
func (s *Sink) Record(ctx context.Context, runID, level, node, event string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}

	entry := models.LogEntry{
		RunID:     runID,
		Timestamp: s.now(),
		Level:     level,
		Node:      node,
		Event:     event,
		Data:      data,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path != "" {
		if err := s.appendLine(entry); err != nil {
			s.logger.ErrorContext(ctx, "failed to write event log file", "path", s.path, "event", event, "error", err)
		}
	}

	if s.store != nil {
		if err := s.store.InsertLog(ctx, entry); err != nil {
			s.logger.ErrorContext(ctx, "failed to store event log", "event", event, "error", err)
		}
	}
}

func (s *Sink) appendLine(entry models.LogEntry) error {
	err := os.MkdirAll(filepath.Dir(s.path), 0o755)
	if err != nil {
		return err
	}

	line, err := json.Marshal(map[string]any{
		"ts":     entry.Timestamp.Format(time.RFC3339Nano),
		"run_id": entry.RunID,
		"level":  entry.Level,
		"node":   entry.Node,
		"event":  entry.Event,
		"data":   entry.Data,
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	_, err = f.Write(append(line, '\n'))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	return err
}

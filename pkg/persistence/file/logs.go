package file

import (
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

func (fp *Persistence) logsPath() string {
	return filepath.Join(fp.root, "logs.jsonl")
}

func (fp *Persistence) InsertLog(_ context.Context, entry models.LogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	return appendJSONLine(fp.logsPath(), entry)
}

// Logs returns the newest limit entries, newest first.
func (fp *Persistence) Logs(_ context.Context, limit int) ([]models.LogEntry, error) {
	limit = persistence.NormalizeLimit(limit)

	fp.mu.Lock()
	defer fp.mu.Unlock()

	entries := make([]models.LogEntry, 0)

	err := readJSONLines(fp.logsPath(), func(line []byte) error {
		var entry models.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return err
		}

		entries = append(entries, entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Reverse(entries)

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

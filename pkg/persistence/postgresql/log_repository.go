package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

// LogRepository handles event log rows.
type LogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *sql.DB, logger *slog.Logger) *LogRepository {
	return &LogRepository{db: db, logger: logger}
}

// Insert stores one log entry. A zero timestamp is replaced with the current time.
func (lr *LogRepository) Insert(ctx context.Context, entry models.LogEntry) error {
	dataJSON, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal log data: %w", err)
	}

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err = lr.db.ExecContext(ctx,
		`INSERT INTO logs (run_id, ts, level, node, event, data) VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.RunID, timestamp, entry.Level, entry.Node, entry.Event, dataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert log: %w", err)
	}

	return nil
}

// Recent returns the newest limit entries, newest first.
func (lr *LogRepository) Recent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	rows, err := lr.db.QueryContext(ctx,
		`SELECT COALESCE(run_id, ''), ts, level, COALESCE(node, ''), COALESCE(event, ''), data
		FROM logs
		ORDER BY ts DESC, id DESC
		LIMIT $1`,
		persistence.NormalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			lr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	entries := make([]models.LogEntry, 0)

	for rows.Next() {
		var (
			entry    models.LogEntry
			dataJSON []byte
		)

		err := rows.Scan(&entry.RunID, &entry.Timestamp, &entry.Level, &entry.Node, &entry.Event, &dataJSON)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}

		if len(dataJSON) > 0 {
			err = json.Unmarshal(dataJSON, &entry.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal log data: %w", err)
			}
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return entries, nil
}

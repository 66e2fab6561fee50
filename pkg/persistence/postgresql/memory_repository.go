package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

// MemoryRepository handles conversational memory rows.
type MemoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewMemoryRepository(db *sql.DB, logger *slog.Logger) *MemoryRepository {
	return &MemoryRepository{db: db, logger: logger}
}

func (mr *MemoryRepository) Append(ctx context.Context, message models.Message) error {
	if message.UserID == "" || message.Role == "" {
		return persistence.ErrInvalidMessage
	}

	timestamp := message.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := mr.db.ExecContext(ctx,
		`INSERT INTO memory_messages (user_id, run_id, ts, role, content) VALUES ($1, $2, $3, $4, $5)`,
		message.UserID, message.RunID, timestamp, message.Role, message.Content,
	)
	if err != nil {
		return fmt.Errorf("failed to append memory message: %w", err)
	}

	return nil
}

// Recent returns the last limit messages of userID in chronological order.
func (mr *MemoryRepository) Recent(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	rows, err := mr.db.QueryContext(ctx,
		`SELECT user_id, COALESCE(run_id, ''), ts, role, content
		FROM memory_messages
		WHERE user_id = $1
		ORDER BY ts DESC, id DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory messages: %w", err)
	}

	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			mr.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
		}
	}()

	messages := make([]models.Message, 0, limit)

	for rows.Next() {
		var message models.Message

		err := rows.Scan(&message.UserID, &message.RunID, &message.Timestamp, &message.Role, &message.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory message: %w", err)
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memory messages: %w", err)
	}

	slices.Reverse(messages)

	return messages, nil
}

// Package redis provides a conversational memory store backed by Redis lists.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "memory:"

// MemoryStore keeps one list per user, appended with RPUSH.
type MemoryStore struct {
	client redis.UniversalClient
	logger *slog.Logger
}

var _ persistence.MemoryRepository = (*MemoryStore)(nil)

// NewMemoryStore wraps an existing client.
func NewMemoryStore(client redis.UniversalClient, logger *slog.Logger) *MemoryStore {
	return &MemoryStore{client: client, logger: logger}
}

// Connect parses a redis:// URL, pings the server and returns a MemoryStore.
func Connect(ctx context.Context, logger *slog.Logger, redisURL string) (*MemoryStore, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return NewMemoryStore(client, logger), nil
}

// Key returns the list key holding userID's messages.
func Key(userID string) string {
	return keyPrefix + userID
}

func (s *MemoryStore) AppendMessage(ctx context.Context, message models.Message) error {
	if message.UserID == "" || message.Role == "" {
		return persistence.ErrInvalidMessage
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal memory message: %w", err)
	}

	err = s.client.RPush(ctx, Key(message.UserID), payload).Err()
	if err != nil {
		return fmt.Errorf("failed to push memory message: %w", err)
	}

	return nil
}

// RecentMessages reads the tail of the user's list, oldest first. Entries that
// fail to decode are skipped.
func (s *MemoryStore) RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	values, err := s.client.LRange(ctx, Key(userID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read memory messages: %w", err)
	}

	messages := make([]models.Message, 0, len(values))

	for _, value := range values {
		var message models.Message

		err := json.Unmarshal([]byte(value), &message)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping undecodable memory message", "user_id", userID, "error", err)

			continue
		}

		messages = append(messages, message)
	}

	return messages, nil
}

// Close releases the underlying client.
func (s *MemoryStore) Close() error {
	return s.client.Close()
}

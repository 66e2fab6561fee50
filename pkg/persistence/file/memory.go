package file

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
)

func (fp *Persistence) memoryPath(userID string) string {
	return filepath.Join(fp.root, "memory", url.PathEscape(userID)+".jsonl")
}

func (fp *Persistence) AppendMessage(_ context.Context, message models.Message) error {
	if message.UserID == "" || message.Role == "" {
		return persistence.ErrInvalidMessage
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	return appendJSONLine(fp.memoryPath(message.UserID), message)
}

// RecentMessages returns the last limit messages of userID, oldest first.
func (fp *Persistence) RecentMessages(_ context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return []models.Message{}, nil
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	messages := make([]models.Message, 0)

	err := readJSONLines(fp.memoryPath(userID), func(line []byte) error {
		var message models.Message
		if err := json.Unmarshal(line, &message); err != nil {
			return err
		}

		messages = append(messages, message)

		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	return messages, nil
}

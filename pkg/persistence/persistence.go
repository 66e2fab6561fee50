// Package persistence provides the storage abstraction for logs, runs and conversational memory.
package persistence

import (
	"context"

	"github.com/dukex/datapilot/pkg/models"
)

// DefaultLogsLimit is used when a caller asks for a non-positive number of log entries.
const DefaultLogsLimit = 200

// LogRepository stores event log rows.
type LogRepository interface {
	InsertLog(ctx context.Context, entry models.LogEntry) error
	// Logs returns the newest entries first.
	Logs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

// RunRepository tracks the lifecycle of pipeline runs.
type RunRepository interface {
	StartRun(ctx context.Context, runID, question string) error
	FinishRun(ctx context.Context, runID, status string) error
	RunByID(ctx context.Context, runID string) (*models.Run, error)
}

// MemoryRepository stores conversational memory per user.
type MemoryRepository interface {
	AppendMessage(ctx context.Context, message models.Message) error
	// RecentMessages returns up to limit messages for userID, oldest first.
	RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
}

type Persistence interface {
	LogRepository
	RunRepository
	MemoryRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// NormalizeLimit applies DefaultLogsLimit to non-positive limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLogsLimit
	}

	return limit
}

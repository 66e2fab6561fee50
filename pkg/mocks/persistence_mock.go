package mocks

import (
	"context"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockRunStore is a mock implementation of pipeline.RunStore interface.
type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) StartRun(ctx context.Context, runID, question string) error {
	args := m.Called(ctx, runID, question)

	return args.Error(0)
}

func (m *MockRunStore) FinishRun(ctx context.Context, runID, status string) error {
	args := m.Called(ctx, runID, status)

	return args.Error(0)
}

// MockMemoryStore is a mock implementation of pipeline.MemoryStore interface.
type MockMemoryStore struct {
	mock.Mock
}

func (m *MockMemoryStore) RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMemoryStore) AppendMessage(ctx context.Context, message models.Message) error {
	args := m.Called(ctx, message)

	return args.Error(0)
}

// MockLogRepository is a mock implementation of persistence.LogRepository interface.
type MockLogRepository struct {
	mock.Mock
}

func (m *MockLogRepository) InsertLog(ctx context.Context, entry models.LogEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockLogRepository) Logs(ctx context.Context, limit int) ([]models.LogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.LogEntry), args.Error(1)
}

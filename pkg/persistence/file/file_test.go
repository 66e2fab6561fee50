package file

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/tmp/test", NewPersistence("/tmp/test").root)
	assert.Equal(t, "/tmp/test", NewPersistence("file:///tmp/test").root)
}

func TestPersistence_HealthCheck(t *testing.T) {
	t.Parallel()

	assert.NoError(t, NewPersistence(t.TempDir()).HealthCheck(t.Context()))
	assert.Error(t, NewPersistence("/does/not/exist").HealthCheck(t.Context()))
}

func TestPersistence_Logs(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	entries, err := p.Logs(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for i := range 5 {
		err := p.InsertLog(ctx, models.LogEntry{
			RunID: "run-1",
			Level: models.LevelInfo,
			Node:  "pipeline",
			Event: fmt.Sprintf("event-%d", i),
			Data:  map[string]any{"i": i},
		})
		require.NoError(t, err)
	}

	entries, err = p.Logs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "event-4", entries[0].Event)
	assert.Equal(t, "event-3", entries[1].Event)
	assert.False(t, entries[0].Timestamp.IsZero())

	entries, err = p.Logs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestPersistence_RunLifecycle(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	require.NoError(t, p.StartRun(ctx, "run-1", "orders by status"))

	run, err := p.RunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Equal(t, "orders by status", run.Question)
	assert.Nil(t, run.FinishedAt)

	require.NoError(t, p.FinishRun(ctx, "run-1", models.RunStatusError))

	run, err = p.RunByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusError, run.Status)
	require.NotNil(t, run.FinishedAt)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	_, err = p.RunByID(ctx, "missing")
	assert.True(t, persistence.IsRunNotFound(err))
	assert.True(t, persistence.IsRunNotFound(p.FinishRun(ctx, "missing", models.RunStatusSuccess)))
}

func TestPersistence_Memory(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	base := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	for i, content := range []string{"one", "two", "three"} {
		err := p.AppendMessage(ctx, models.Message{
			UserID:    "team/alice",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Role:      models.RoleUser,
			Content:   content,
		})
		require.NoError(t, err)
	}

	messages, err := p.RecentMessages(ctx, "team/alice", 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "two", messages[0].Content)
	assert.Equal(t, "three", messages[1].Content)

	messages, err = p.RecentMessages(ctx, "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, messages)

	messages, err = p.RecentMessages(ctx, "team/alice", 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	err = p.AppendMessage(ctx, models.Message{Role: models.RoleUser})
	require.ErrorIs(t, err, persistence.ErrInvalidMessage)
}

func TestPersistence_ConcurrentLogWrites(t *testing.T) {
	t.Parallel()

	p := NewPersistence(t.TempDir())
	ctx := t.Context()

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.NoError(t, p.InsertLog(ctx, models.LogEntry{RunID: fmt.Sprintf("run-%d", i), Level: models.LevelInfo}))
		}()
	}

	wg.Wait()

	entries, err := p.Logs(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
)

const memoryNode = "memory"

var errNoMemoryStore = errors.New("memory store not configured")

// MemoryLoadStage reads the recent conversation of the run's user.
type MemoryLoadStage struct {
	deps Dependencies
}

func NewMemoryLoadStage(deps Dependencies) *MemoryLoadStage {
	return &MemoryLoadStage{deps: deps}
}

func (s *MemoryLoadStage) Name() models.StageName {
	return models.StageMemoryLoad
}

func (s *MemoryLoadStage) Run(ctx context.Context, state models.State, _ config.Settings) (models.StageResult, models.Patch) {
	if s.deps.Memory == nil {
		return s.fail(ctx, state, models.ErrConfiguration, errNoMemoryStore)
	}

	messages, err := s.deps.Memory.RecentMessages(ctx, state.UserID, MemoryLimit)
	if err != nil {
		return s.fail(ctx, state, models.ErrExecution, err)
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, memoryNode, "loaded", map[string]any{"count": len(messages)})

	result := models.NewStageResult(models.StageMemoryLoad, models.StageStatusSuccess)
	result.Payload.Messages = messages
	result.Summary["count"] = len(messages)

	return result, models.Patch{MemoryMessages: &messages}
}

func (s *MemoryLoadStage) fail(ctx context.Context, state models.State, kind, err error) (models.StageResult, models.Patch) {
	err = models.NewStageError(models.StageMemoryLoad, kind, err)
	s.deps.record(ctx, state.RunID, models.LevelException, memoryNode, "load_error", map[string]any{"error": err.Error()})

	return models.Failed(models.StageMemoryLoad, err), models.Patch{}
}

// MemorySaveStage appends the question and the query that answered it.
type MemorySaveStage struct {
	deps Dependencies
}

func NewMemorySaveStage(deps Dependencies) *MemorySaveStage {
	return &MemorySaveStage{deps: deps}
}

func (s *MemorySaveStage) Name() models.StageName {
	return models.StageMemorySave
}

func (s *MemorySaveStage) Run(ctx context.Context, state models.State, _ config.Settings) (models.StageResult, models.Patch) {
	queryUsed := state.Query
	if state.LastResult != nil && state.LastResult.Payload.QueryUsed != "" {
		queryUsed = state.LastResult.Payload.QueryUsed
	}

	if s.deps.Memory == nil {
		return s.fail(ctx, state, models.ErrConfiguration, errNoMemoryStore)
	}

	now := time.Now().UTC()

	if state.Question != "" {
		err := s.deps.Memory.AppendMessage(ctx, models.Message{
			UserID:    state.UserID,
			RunID:     state.RunID,
			Timestamp: now,
			Role:      models.RoleUser,
			Content:   state.Question,
		})
		if err != nil {
			return s.fail(ctx, state, models.ErrExecution, err)
		}
	}

	if queryUsed != "" {
		err := s.deps.Memory.AppendMessage(ctx, models.Message{
			UserID:    state.UserID,
			RunID:     state.RunID,
			Timestamp: now,
			Role:      models.RoleAssistant,
			Content:   "query_used: " + queryUsed,
		})
		if err != nil {
			return s.fail(ctx, state, models.ErrExecution, err)
		}
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, memoryNode, "saved", map[string]any{
		"has_question": state.Question != "",
		"has_query":    queryUsed != "",
	})

	result := models.NewStageResult(models.StageMemorySave, models.StageStatusSuccess)
	result.Summary["saved"] = true

	return result, models.Patch{}
}

func (s *MemorySaveStage) fail(ctx context.Context, state models.State, kind, err error) (models.StageResult, models.Patch) {
	err = models.NewStageError(models.StageMemorySave, kind, err)
	s.deps.record(ctx, state.RunID, models.LevelException, memoryNode, "save_error", map[string]any{"error": err.Error()})

	return models.Failed(models.StageMemorySave, err), models.Patch{}
}

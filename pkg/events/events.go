// Package events defines the run lifecycle notifications published on the event bus.
package events

import (
	"time"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every run lifecycle event.
const Topic = "datapilot.runs"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	RunStartedEvent     EventType = "run.started"
	StageCompletedEvent EventType = "stage.completed"
	RunFinishedEvent    EventType = "run.finished"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, runID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		Metadata:  make(map[string]any),
	}
}

type RunStarted struct {
	BaseEvent

	Question string `json:"question"`
	UserID   string `json:"user_id"`
	// Trigger is "api", "cli" or "scheduler".
	Trigger string `json:"trigger,omitempty"`
}

func (r RunStarted) GetType() EventType {
	return RunStartedEvent
}

// StageCompleted is published after the supervisor judged a stage result.
type StageCompleted struct {
	BaseEvent

	Stage        models.StageName   `json:"stage"`
	Status       models.StageStatus `json:"status"`
	SupervisorOK bool               `json:"supervisor_ok"`
	Reason       string             `json:"reason"`
	Route        models.StageName   `json:"route"`
	Error        string             `json:"error,omitempty"`
	DurationMs   int64              `json:"duration_ms"`
}

func (s StageCompleted) GetType() EventType {
	return StageCompletedEvent
}

type RunFinished struct {
	BaseEvent

	Status    string           `json:"status"`
	Reason    string           `json:"reason,omitempty"`
	Artifacts models.Artifacts `json:"artifacts,omitempty"`
	RowCount  int              `json:"row_count"`
	Duration  time.Duration    `json:"duration"`
}

func (r RunFinished) GetType() EventType {
	return RunFinishedEvent
}

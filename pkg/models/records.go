package models

import "time"

// Run statuses stored in the runs table.
const (
	RunStatusRunning = "running"
	RunStatusSuccess = "success"
	RunStatusError   = "error"
)

// Run is the persisted record of a pipeline run.
type Run struct {
	RunID      string     `json:"run_id"`
	Question   string     `json:"user_input"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Log levels accepted by the event log.
const (
	LevelInfo      = "INFO"
	LevelError     = "ERROR"
	LevelException = "EXCEPTION"
)

// LogEntry is one record of the event log.
type LogEntry struct {
	RunID     string         `json:"run_id"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Node      string         `json:"node"`
	Event     string         `json:"event"`
	Data      map[string]any `json:"data"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a conversational memory entry.
type Message struct {
	UserID    string    `json:"user_id"`
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
}

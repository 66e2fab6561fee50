// Package models defines the pipeline state, stage results and scheduling records.
package models

import (
	"time"
)

// StageName identifies a pipeline stage.
type StageName string

const (
	StageMemoryLoad StageName = "memory_load"
	StageNLP        StageName = "nlp"
	StageDB         StageName = "db"
	StageCSV        StageName = "csv"
	StageReport     StageName = "report"
	StageEmail      StageName = "email"
	StageMemorySave StageName = "memory_save"

	// StageTerminal is the absorbing routing sentinel.
	StageTerminal StageName = "end"
)

// StageStatus is the outcome tag of a stage invocation.
type StageStatus string

const (
	StageStatusSuccess StageStatus = "success"
	StageStatusSkipped StageStatus = "skipped"
	StageStatusError   StageStatus = "error"
)

// DocumentSampleQuery marks a query that is served by sampling a document store.
const DocumentSampleQuery = "mongodb_sample"

// Row is a single result row keyed by column name.
type Row map[string]any

// Column describes a column of the configured data table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Payload carries the stage specific output of a StageResult.
type Payload struct {
	Query        string    `json:"query,omitempty"`
	QueryUsed    string    `json:"query_used,omitempty"`
	TriedQueries []string  `json:"tried_queries,omitempty"`
	Rows         []Row     `json:"rows,omitempty"`
	CSVPath      string    `json:"csv_path,omitempty"`
	XLSXPath     string    `json:"xlsx_path,omitempty"`
	PDFPath      string    `json:"pdf_path,omitempty"`
	ChartPath    string    `json:"chart_path,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
}

// StageResult is the uniform output of every stage.
type StageResult struct {
	Stage     StageName      `json:"stage"`
	Status    StageStatus    `json:"status"`
	Payload   Payload        `json:"payload"`
	Summary   map[string]any `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewStageResult returns a result stamped with the current time.
func NewStageResult(stage StageName, status StageStatus) StageResult {
	return StageResult{
		Stage:     stage,
		Status:    status,
		Summary:   map[string]any{},
		Timestamp: time.Now().UTC(),
	}
}

// Failed builds an error result from err.
func Failed(stage StageName, err error) StageResult {
	result := NewStageResult(stage, StageStatusError)
	result.Error = err.Error()
	result.Summary["error"] = err.Error()

	return result
}

// Skipped builds a skipped result with a reason code.
func Skipped(stage StageName, reason string) StageResult {
	result := NewStageResult(stage, StageStatusSkipped)
	result.Payload.Reason = reason
	result.Summary["reason"] = reason

	return result
}

package models

import "time"

// Frequency is the recurrence class of a scheduled job.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Job is a recurring pipeline trigger owned by the scheduler registry.
type Job struct {
	ID             string         `json:"id"         validate:"required"`
	Question       string         `json:"question"   validate:"required"`
	Frequency      Frequency      `json:"frequency"`
	Time           string         `json:"time"`
	Overrides      map[string]any `json:"overrides"`
	CronExpression string         `json:"cron_expression"`
	CreatedAt      time.Time      `json:"created_at"`
	NextRun        *time.Time     `json:"next_run"`
}

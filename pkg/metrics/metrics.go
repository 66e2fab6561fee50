// Package metrics records pipeline measurements through a pluggable backend.
//
// The default backend discards everything, so callers never need to check
// whether metrics are configured. Concrete backends live in subpackages.
package metrics

import (
	"sync"
	"time"
)

const (
	StageTotal           = "datapilot_stage_total"
	StageDurationSeconds = "datapilot_stage_duration_seconds"
	RunsTotal            = "datapilot_runs_total"
	SupervisorHaltsTotal = "datapilot_supervisor_halts_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system has to implement.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
}

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs b. Passing nil restores the no-op backend.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()

	if b == nil {
		b = nopBackend{}
	}

	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()

	return backend
}

// RecordStage counts one stage invocation and its duration.
func RecordStage(stage, status string, d time.Duration) {
	b := current()
	b.IncCounter(StageTotal, 1, Labels{"stage": stage, "status": status})
	b.ObserveHistogram(StageDurationSeconds, d.Seconds(), Labels{"stage": stage})
}

// RecordRun counts a finished run by final status.
func RecordRun(status string) {
	current().IncCounter(RunsTotal, 1, Labels{"status": status})
}

// RecordHalt counts a supervisor veto by reason.
func RecordHalt(reason string) {
	current().IncCounter(SupervisorHaltsTotal, 1, Labels{"reason": reason})
}

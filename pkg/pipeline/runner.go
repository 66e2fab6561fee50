package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/eventbus"
	"github.com/dukex/datapilot/pkg/events"
	"github.com/dukex/datapilot/pkg/metrics"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/google/uuid"
)

// RunInput is one request to answer a question.
type RunInput struct {
	Question  string
	UserID    string
	Overrides map[string]any
	// Trigger names what started the run: "api", "cli" or "scheduler".
	Trigger string
}

// Outcome is the result of a finished run.
type Outcome struct {
	RunID     string                         `json:"run_id"`
	Status    string                         `json:"status"`
	Reason    string                         `json:"reason,omitempty"`
	Query     string                         `json:"query,omitempty"`
	Rows      []models.Row                   `json:"rows"`
	Artifacts models.Artifacts               `json:"artifacts"`
	Published map[models.ArtifactKind]string `json:"published,omitempty"`
	State     models.State                   `json:"-"`
}

// Runner owns the lifecycle around an Executor: settings, run record,
// artifact publishing and lifecycle events.
type Runner struct {
	logger    *slog.Logger
	settings  config.Settings
	executor  *Executor
	store     RunStore
	sink      Sink
	publisher ArtifactPublisher
	events    eventbus.EventPublisher
	newID     func() string
}

type RunnerOption func(*Runner)

// WithArtifactPublisher uploads the artifacts of every finished run.
func WithArtifactPublisher(publisher ArtifactPublisher) RunnerOption {
	return func(r *Runner) {
		r.publisher = publisher
	}
}

func WithRunEvents(publisher eventbus.EventPublisher) RunnerOption {
	return func(r *Runner) {
		r.events = publisher
	}
}

func WithIDGenerator(newID func() string) RunnerOption {
	return func(r *Runner) {
		r.newID = newID
	}
}

func NewRunner(logger *slog.Logger, settings config.Settings, executor *Executor, store RunStore, sink Sink, opts ...RunnerOption) *Runner {
	runner := &Runner{
		logger:   logger.With("module", "pipeline_runner"),
		settings: settings,
		executor: executor,
		store:    store,
		sink:     sink,
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(runner)
	}

	return runner
}

// Settings returns the base settings runs start from.
func (r *Runner) Settings() config.Settings {
	return r.settings
}

// Run executes the pipeline once. Only invalid input and a failure to
// record the run start are returned as errors; everything else is reported
// through the outcome status.
func (r *Runner) Run(ctx context.Context, input RunInput) (*Outcome, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", models.ErrValidation)
	}

	settings, err := r.settings.WithOverrides(input.Overrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrValidation, err)
	}

	// A started run completes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	runID := r.newID()
	started := time.Now()
	logger := r.logger.With("run_id", runID)

	err = r.store.StartRun(ctx, runID, question)
	if err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	state := models.NewState(runID, question, input.UserID)

	logger.InfoContext(ctx, "Starting run", "user_id", state.UserID, "trigger", input.Trigger)
	r.publish(ctx, runID, events.RunStarted{
		BaseEvent: events.NewBaseEvent(events.RunStartedEvent, runID),
		Question:  question,
		UserID:    state.UserID,
		Trigger:   input.Trigger,
	})

	final := r.executor.Execute(ctx, state, settings)
	status := FinalStatus(final)

	err = r.store.FinishRun(ctx, runID, status)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to finish run", "error", err)
	}

	outcome := &Outcome{
		RunID:     runID,
		Status:    status,
		Reason:    final.Reason,
		Query:     final.Query,
		Rows:      final.Rows,
		Artifacts: final.Artifacts,
		State:     final,
	}

	if r.publisher != nil && len(final.Artifacts) > 0 {
		outcome.Published = r.publishArtifacts(ctx, runID, final.Artifacts)
	}

	metrics.RecordRun(status)
	r.publish(ctx, runID, events.RunFinished{
		BaseEvent: events.NewBaseEvent(events.RunFinishedEvent, runID),
		Status:    status,
		Reason:    final.Reason,
		Artifacts: final.Artifacts,
		RowCount:  len(final.Rows),
		Duration:  time.Since(started),
	})

	logger.InfoContext(ctx, "Run finished", "status", status, "reason", final.Reason, "duration", time.Since(started))

	return outcome, nil
}

// RunScheduled adapts Run to the scheduler callback.
func (r *Runner) RunScheduled(ctx context.Context, question string, overrides map[string]any, userID string) error {
	_, err := r.Run(ctx, RunInput{
		Question:  question,
		UserID:    userID,
		Overrides: overrides,
		Trigger:   "scheduler",
	})

	return err
}

// FinalStatus maps the final state to the stored run status: error when the
// supervisor halted the run, success otherwise, including a run in which no
// stage ran.
func FinalStatus(state models.State) string {
	if state.LastResult == nil {
		return models.RunStatusSuccess
	}

	if !state.SupervisorOK {
		return models.RunStatusError
	}

	return models.RunStatusSuccess
}

func (r *Runner) publishArtifacts(ctx context.Context, runID string, artifacts models.Artifacts) map[models.ArtifactKind]string {
	published, err := r.publisher.Publish(ctx, runID, artifacts)
	if err != nil {
		r.record(ctx, runID, models.LevelError, "artifacts", "publish_failed", map[string]any{"error": err.Error()})

		return published
	}

	keys := make(map[string]any, len(published))
	for kind, key := range published {
		keys[string(kind)] = key
	}

	r.record(ctx, runID, models.LevelInfo, "artifacts", "artifacts_published", keys)

	return published
}

func (r *Runner) record(ctx context.Context, runID, level, node, event string, data map[string]any) {
	if r.sink == nil {
		return
	}

	r.sink.Record(ctx, runID, level, node, event, data)
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.events == nil {
		return
	}

	err := r.events.Publish(ctx, key, event)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to publish event", "type", event.GetType(), "error", err)
	}
}

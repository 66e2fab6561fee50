package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/eventbus"
	"github.com/dukex/datapilot/pkg/events"
	"github.com/dukex/datapilot/pkg/metrics"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const supervisorNode = "supervisor"

// Executor drives a state through the stages until the terminal route.
type Executor struct {
	logger     *slog.Logger
	stages     map[models.StageName]Stage
	supervisor *Supervisor
	sink       Sink
	tracer     trace.Tracer
	events     eventbus.EventPublisher
}

type ExecutorOption func(*Executor)

func WithTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		e.tracer = tracer
	}
}

func WithSupervisor(supervisor *Supervisor) ExecutorOption {
	return func(e *Executor) {
		e.supervisor = supervisor
	}
}

// WithEventPublisher publishes a StageCompleted event after every stage.
func WithEventPublisher(publisher eventbus.EventPublisher) ExecutorOption {
	return func(e *Executor) {
		e.events = publisher
	}
}

func NewExecutor(logger *slog.Logger, sink Sink, stages []Stage, opts ...ExecutorOption) *Executor {
	executor := &Executor{
		logger:     logger.With("module", "pipeline_executor"),
		stages:     make(map[models.StageName]Stage, len(stages)),
		supervisor: NewSupervisor(),
		sink:       sink,
		tracer:     otelhelper.NoopTracer(),
	}

	for _, stage := range stages {
		executor.stages[stage.Name()] = stage
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Execute runs state from memory_load to the terminal and returns the final
// state. It never fails: stage failures halt the run through the supervisor.
func (e *Executor) Execute(ctx context.Context, state models.State, settings config.Settings) models.State {
	if state.Artifacts == nil {
		state.Artifacts = models.Artifacts{}
	}

	current := models.StageMemoryLoad

	for current != models.StageTerminal {
		stage, ok := e.stages[current]
		if !ok {
			e.logger.WarnContext(ctx, "No stage registered, ending run", "run_id", state.RunID, "stage", current)
			state.Route = models.StageTerminal

			break
		}

		started := time.Now()
		result, patch := e.runStage(ctx, stage, state, settings)
		elapsed := time.Since(started)

		metrics.RecordStage(string(current), string(result.Status), elapsed)

		patch.Apply(&state)
		state.LastStage = current
		state.LastResult = &result
		state.Status = result.Status

		ok, reason := e.supervisor.Check(current, &result)
		state.SupervisorOK = ok
		state.Reason = reason

		e.record(ctx, state.RunID, models.LevelInfo, supervisorNode, "check", map[string]any{
			"ok":     ok,
			"reason": reason,
			"after":  string(current),
		})

		route := Next(current)
		if !ok {
			route = models.StageTerminal

			metrics.RecordHalt(reason)
			e.logger.InfoContext(ctx, "Supervisor halted run", "run_id", state.RunID, "stage", current, "reason", reason)
		}

		state.Route = route

		e.publish(ctx, state.RunID, events.StageCompleted{
			BaseEvent:    events.NewBaseEvent(events.StageCompletedEvent, state.RunID),
			Stage:        current,
			Status:       result.Status,
			SupervisorOK: ok,
			Reason:       reason,
			Route:        route,
			Error:        result.Error,
			DurationMs:   elapsed.Milliseconds(),
		})

		current = route
	}

	return state
}

// runStage invokes stage on a copy of state inside a span. A panic becomes
// an error result.
func (e *Executor) runStage(ctx context.Context, stage Stage, state models.State, settings config.Settings) (result models.StageResult, patch models.Patch) {
	name := stage.Name()

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "pipeline."+string(name),
		attribute.String(otelhelper.RunIDKey, state.RunID),
		attribute.String(otelhelper.UserIDKey, state.UserID),
		attribute.String(otelhelper.StageKey, string(name)),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := models.NewStageError(name, models.ErrExecution, fmt.Errorf("panic: %v", r))

			e.logger.ErrorContext(ctx, "Stage panicked", "run_id", state.RunID, "stage", name, "error", err)
			e.record(ctx, state.RunID, models.LevelException, string(name), "panic", map[string]any{"error": err.Error()})
			otelhelper.SetError(span, err, attribute.String(otelhelper.StageKey, string(name)))

			result, patch = models.Failed(name, err), models.Patch{}
		}
	}()

	snapshot := state
	snapshot.Artifacts = state.Artifacts.Clone()

	result, patch = stage.Run(ctx, snapshot, settings)
	if result.Stage == "" {
		result.Stage = name
	}

	span.SetAttributes(attribute.String(otelhelper.StageStatusKey, string(result.Status)))

	if result.Status == models.StageStatusError {
		otelhelper.SetStageFailure(span, result.Error)
	}

	return result, patch
}

func (e *Executor) record(ctx context.Context, runID, level, node, event string, data map[string]any) {
	if e.sink == nil {
		return
	}

	e.sink.Record(ctx, runID, level, node, event, data)
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.events == nil {
		return
	}

	err := e.events.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "type", event.GetType(), "error", err)
	}
}

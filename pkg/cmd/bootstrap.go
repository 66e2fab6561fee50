// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/dukex/datapilot/pkg/artifacts"
	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/eventbus"
	"github.com/dukex/datapilot/pkg/eventlog"
	"github.com/dukex/datapilot/pkg/llm"
	"github.com/dukex/datapilot/pkg/mail"
	"github.com/dukex/datapilot/pkg/metrics"
	"github.com/dukex/datapilot/pkg/metrics/prom"
	"github.com/dukex/datapilot/pkg/otelhelper"
	"github.com/dukex/datapilot/pkg/persistence"
	"github.com/dukex/datapilot/pkg/persistence/redis"
	"github.com/dukex/datapilot/pkg/pipeline"
	"go.opentelemetry.io/otel/trace"
)

// App holds the wired collaborators of one process.
type App struct {
	Settings    config.Settings
	Persistence persistence.Persistence
	Sink        *eventlog.Sink
	Sources     pipeline.SourceOpener
	Runner      *pipeline.Runner

	closers []func(ctx context.Context) error
}

type bootstrapOptions struct {
	events eventbus.EventPublisher
	tracer trace.Tracer
}

type BootstrapOption func(*bootstrapOptions)

// WithEvents publishes run and stage events to publisher.
func WithEvents(publisher eventbus.EventPublisher) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.events = publisher
	}
}

func WithTracer(tracer trace.Tracer) BootstrapOption {
	return func(o *bootstrapOptions) {
		o.tracer = tracer
	}
}

// Bootstrap opens the store, the event log and the optional services named
// by settings and wires the pipeline runner.
func Bootstrap(ctx context.Context, logger *slog.Logger, settings config.Settings, opts ...BootstrapOption) (*App, error) {
	options := bootstrapOptions{tracer: otelhelper.NoopTracer()}
	for _, opt := range opts {
		opt(&options)
	}

	store, err := NewPersistence(ctx, logger, settings.Store.DSN())
	if err != nil {
		return nil, err
	}

	app := &App{
		Settings:    settings,
		Persistence: store,
		Sources:     datasource.Opener{},
		closers:     []func(ctx context.Context) error{store.Close},
	}

	memory, err := NewMemoryStore(ctx, logger, settings.MemoryRedisURL, store)
	if err != nil {
		_ = app.Close(ctx)

		return nil, err
	}

	if closer, ok := memory.(*redis.MemoryStore); ok {
		app.closers = append(app.closers, func(context.Context) error { return closer.Close() })
	}

	app.Sink = eventlog.New(logger, settings.LogFile, store)

	deps := pipeline.Dependencies{
		Translators: NewTranslator,
		Sources:     app.Sources,
		Artifacts:   artifacts.NewWriter(settings.ArtifactsDir),
		Mailers:     NewMailer,
		Memory:      memory,
		Sink:        app.Sink,
	}

	executorOpts := []pipeline.ExecutorOption{pipeline.WithTracer(options.tracer)}
	runnerOpts := []pipeline.RunnerOption{}

	if options.events != nil {
		executorOpts = append(executorOpts, pipeline.WithEventPublisher(options.events))
		runnerOpts = append(runnerOpts, pipeline.WithRunEvents(options.events))
	}

	if settings.ObjectStore.Enabled() {
		publisher, err := artifacts.NewPublisher(settings.ObjectStore)
		if err != nil {
			_ = app.Close(ctx)

			return nil, err
		}

		runnerOpts = append(runnerOpts, pipeline.WithArtifactPublisher(publisher))
	}

	executor := pipeline.NewExecutor(logger, app.Sink, pipeline.NewStages(deps), executorOpts...)
	app.Runner = pipeline.NewRunner(logger, settings, executor, store, app.Sink, runnerOpts...)

	logger.InfoContext(ctx, "Pipeline wired",
		"store", parsePersistenceProvider(settings.Store.DSN()),
		"log_file", filepath.Clean(settings.LogFile),
		"llm", settings.LLM.Enabled(),
		"mail", settings.Mail.Complete(),
		"redis_memory", settings.MemoryRedisURL != "",
		"object_store", settings.ObjectStore.Enabled(),
	)

	return app, nil
}

// Close releases everything Bootstrap opened, in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// NewMemoryStore returns the redis memory store when redisURL is set and
// fallback otherwise.
func NewMemoryStore(ctx context.Context, logger *slog.Logger, redisURL string, fallback pipeline.MemoryStore) (pipeline.MemoryStore, error) {
	if redisURL == "" {
		return fallback, nil
	}

	store, err := redis.Connect(ctx, logger, redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect memory store: %w", err)
	}

	return store, nil
}

// NewTranslator builds the Gemini translator for a run.
func NewTranslator(ctx context.Context, cfg config.LLM) (pipeline.Translator, error) {
	translator, err := llm.NewGeminiTranslator(ctx, cfg.APIKey, cfg.Model)
	if err != nil {
		return nil, err
	}

	return translator, nil
}

func NewMailer(apiKey string) pipeline.MailSender {
	return mail.NewSendGridSender(apiKey)
}

// NewMetrics installs the prometheus backend and returns it for /metrics.
func NewMetrics() (*prom.Backend, error) {
	backend, err := prom.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics backend: %w", err)
	}

	metrics.SetBackend(backend)

	return backend, nil
}

// NewTracer returns the OTLP tracer when enabled and a no-op tracer otherwise.
func NewTracer(ctx context.Context, enabled bool, serviceName string) (trace.Tracer, otelhelper.ShutdownFunc, error) {
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	return otelhelper.NewTracer(ctx, serviceName)
}

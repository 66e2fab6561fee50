package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dukex/datapilot/pkg/cmd"
	"github.com/dukex/datapilot/pkg/eventbus"
	"github.com/dukex/datapilot/pkg/events"
	"github.com/dukex/datapilot/pkg/log"
	"github.com/dukex/datapilot/pkg/scheduler"
	"github.com/dukex/datapilot/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPort     = 8000
	shutdownTimeout = 15 * time.Second
)

func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the API server and the scheduler",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces with OTLP over HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		}, eventBusFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			settings, err := loadSettings(command)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.WithModule("datapilot-serve")
			logger.InfoContext(ctx, "Initializing datapilot server")

			tracer, shutdownTracer, err := cmd.NewTracer(ctx, command.Bool("otel"), "datapilot")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer", "error", err)
				}
			}()

			metricsBackend, err := cmd.NewMetrics()
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"))
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			app, err := cmd.Bootstrap(ctx, logger, settings, cmd.WithEvents(eventBus), cmd.WithTracer(tracer))
			if err != nil {
				return err
			}

			defer func() {
				if err := app.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close application", "error", err)
				}
			}()

			location, err := time.LoadLocation(settings.SchedulerTimezone)
			if err != nil {
				return fmt.Errorf("invalid scheduler timezone: %w", err)
			}

			jobs := scheduler.New(logger, app.Runner.RunScheduled,
				scheduler.WithLocation(location),
				scheduler.WithSink(app.Sink),
			)

			handlers := web.NewAPIHandlers(app.Runner, jobs, app.Persistence, app.Sources,
				validator.New(validator.WithRequiredStructEnabled()))
			server := web.NewApp(handlers, metricsBackend.Handler())

			err = watchRunEvents(ctx, eventBus, logger)
			if err != nil {
				return err
			}

			return serve(ctx, logger, server, jobs, command.Int("port"))
		},
	}
}

// serve runs the HTTP server and the scheduler until ctx is done or one of
// them fails, then shuts both down.
func serve(ctx context.Context, logger *slog.Logger, server *fiber.App, jobs *scheduler.Scheduler, port int) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "Starting API server", "port", port)

		return server.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	})

	g.Go(func() error {
		jobs.Start()
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		return jobs.Stop(shutdownCtx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.InfoContext(gctx, "Shutting down API server")

		return server.ShutdownWithTimeout(shutdownTimeout)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// watchRunEvents logs the lifecycle events published by runs.
func watchRunEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	err := bus.Handle(events.StageCompletedEvent, func(ctx context.Context, event any) error {
		stage, ok := event.(*events.StageCompleted)
		if !ok {
			return nil
		}

		logger.DebugContext(ctx, "Stage completed",
			"run_id", stage.RunID,
			"stage", stage.Stage,
			"status", stage.Status,
			"reason", stage.Reason,
			"duration_ms", stage.DurationMs,
		)

		return nil
	})
	if err != nil {
		return err
	}

	err = bus.Handle(events.RunFinishedEvent, func(ctx context.Context, event any) error {
		finished, ok := event.(*events.RunFinished)
		if !ok {
			return nil
		}

		logger.InfoContext(ctx, "Run completed",
			"run_id", finished.RunID,
			"status", finished.Status,
			"reason", finished.Reason,
			"rows", finished.RowCount,
		)

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}

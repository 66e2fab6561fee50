package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dukex/datapilot/pkg/cmd"
	"github.com/dukex/datapilot/pkg/log"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/urfave/cli/v3"
)

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Run the pipeline once and print the outcome as JSON",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "question",
				Aliases:  []string{"q"},
				Usage:    "Question to answer",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "User the conversation memory belongs to",
				Value: "default",
			},
		}, eventBusFlags()...),
		Action: func(ctx context.Context, command *cli.Command) error {
			settings, err := loadSettings(command)
			if err != nil {
				return err
			}

			logger := log.WithModule("datapilot-run")

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, command.String("kafka-brokers"))
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			app, err := cmd.Bootstrap(ctx, logger, settings, cmd.WithEvents(eventBus))
			if err != nil {
				return err
			}

			defer func() {
				if err := app.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close application", "error", err)
				}
			}()

			outcome, err := app.Runner.Run(ctx, pipeline.RunInput{
				Question: command.String("question"),
				UserID:   command.String("user-id"),
				Trigger:  "cli",
			})
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(outcome)
		},
	}
}

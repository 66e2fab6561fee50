package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/urfave/cli/v3"
)

func NewDBTestCommand() *cli.Command {
	return &cli.Command{
		Name:  "db-test",
		Usage: "Read a few rows from the configured data source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "table",
				Usage: "Table or collection to read (defaults to DATA_TABLE)",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of rows to read",
				Value: 5,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			settings, err := loadSettings(command)
			if err != nil {
				return err
			}

			data := settings.Data
			if table := command.String("table"); table != "" {
				data.Table = table
			}

			rows, err := probe(ctx, data, command.Int("limit"))
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(rows)
		},
	}
}

func probe(ctx context.Context, data config.DataSource, limit int) ([]models.Row, error) {
	if data.IsDocumentStore() {
		source, err := datasource.OpenMongo(ctx, data)
		if err != nil {
			return nil, err
		}

		defer func() { _ = source.Close(ctx) }()

		return source.Sample(ctx, limit)
	}

	if data.Table == "" {
		return nil, errors.New("DATA_TABLE required")
	}

	source, err := datasource.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to open data source: %w", err)
	}

	defer func() { _ = source.Close() }()

	return source.Query(ctx, "SELECT * FROM "+data.Table, limit)
}

package pipeline

import (
	"context"
	"errors"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/models"
)

const dbNode = string(models.StageDB)

var (
	errNoTable        = errors.New("no table configured and translated query failed or absent")
	errNoSourceOpener = errors.New("data source opener not configured")
)

// ExecuteStage runs the translated query, falling back to a plain select of
// the configured table.
type ExecuteStage struct {
	deps Dependencies
}

func NewExecuteStage(deps Dependencies) *ExecuteStage {
	return &ExecuteStage{deps: deps}
}

func (s *ExecuteStage) Name() models.StageName {
	return models.StageDB
}

func (s *ExecuteStage) Run(ctx context.Context, state models.State, settings config.Settings) (models.StageResult, models.Patch) {
	if s.deps.Sources == nil {
		return s.fail(ctx, state, models.ErrConfiguration, errNoSourceOpener, nil)
	}

	if settings.Data.IsDocumentStore() {
		return s.sample(ctx, state, settings.Data)
	}

	var (
		tried   []string
		source  datasource.Source
		openErr error
	)

	defer func() {
		if source != nil {
			_ = source.Close()
		}
	}()

	execute := func(query string) ([]models.Row, error) {
		tried = append(tried, query)

		if source == nil && openErr == nil {
			source, openErr = s.deps.Sources.Open(ctx, settings.Data)
		}

		if openErr != nil {
			return nil, openErr
		}

		return source.Query(ctx, query, RowLimit)
	}

	if state.Query != "" {
		rows, err := execute(state.Query)
		if err == nil {
			s.deps.record(ctx, state.RunID, models.LevelInfo, dbNode, "db_query_executed", map[string]any{"rows": len(rows)})

			return s.success(state.Query, tried, rows)
		}

		s.deps.record(ctx, state.RunID, models.LevelError, dbNode, "db_nlp_query_failed", map[string]any{
			"error": err.Error(),
			"query": state.Query,
		})
	}

	table := settings.Data.Table
	if table == "" {
		return s.fail(ctx, state, models.ErrConfiguration, errNoTable, tried)
	}

	fallback := "SELECT * FROM " + table

	rows, err := execute(fallback)
	if err != nil {
		return s.fail(ctx, state, models.ErrExecution, err, tried)
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, dbNode, "db_query_executed_fallback", map[string]any{"rows": len(rows)})

	return s.success(fallback, tried, rows)
}

func (s *ExecuteStage) sample(ctx context.Context, state models.State, data config.DataSource) (models.StageResult, models.Patch) {
	rows, err := s.sampleDocuments(ctx, data)
	if err != nil {
		err = models.NewStageError(models.StageDB, models.ErrExecution, err)
		s.deps.record(ctx, state.RunID, models.LevelException, dbNode, "mongo_error", map[string]any{"error": err.Error()})

		return models.Failed(models.StageDB, err), models.Patch{}
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, dbNode, "mongo_sampled", map[string]any{"rows": len(rows)})

	return s.success(models.DocumentSampleQuery, nil, rows)
}

func (s *ExecuteStage) sampleDocuments(ctx context.Context, data config.DataSource) ([]models.Row, error) {
	source, err := s.deps.Sources.OpenDocuments(ctx, data)
	if err != nil {
		return nil, err
	}

	defer func() { _ = source.Close(ctx) }()

	return source.Sample(ctx, RowLimit)
}

func (s *ExecuteStage) success(queryUsed string, tried []string, rows []models.Row) (models.StageResult, models.Patch) {
	if rows == nil {
		rows = []models.Row{}
	}

	result := models.NewStageResult(models.StageDB, models.StageStatusSuccess)
	result.Payload.Rows = rows
	result.Payload.QueryUsed = queryUsed
	result.Payload.TriedQueries = tried
	result.Summary["rows"] = len(rows)
	result.Summary["query_used"] = queryUsed

	return result, models.Patch{Rows: &rows, Query: &queryUsed}
}

func (s *ExecuteStage) fail(ctx context.Context, state models.State, kind, err error, tried []string) (models.StageResult, models.Patch) {
	err = models.NewStageError(models.StageDB, kind, err)
	s.deps.record(ctx, state.RunID, models.LevelException, dbNode, "db_error", map[string]any{
		"error": err.Error(),
		"tried": tried,
	})

	result := models.Failed(models.StageDB, err)
	result.Payload.TriedQueries = tried
	result.Summary["tried"] = len(tried)

	return result, models.Patch{}
}

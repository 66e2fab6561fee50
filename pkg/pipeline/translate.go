package pipeline

import (
	"context"
	"io"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/llm"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/sqlsafe"
)

const (
	usedFallback      = "fallback"
	usedDocumentStore = "document_store"
)

// TranslateStage produces the query of a run. A translation is attempted
// when an LLM key is configured; anything unusable ends in the fallback
// query, so the stage itself only fails on a panic.
type TranslateStage struct {
	deps Dependencies
}

func NewTranslateStage(deps Dependencies) *TranslateStage {
	return &TranslateStage{deps: deps}
}

func (s *TranslateStage) Name() models.StageName {
	return models.StageNLP
}

func (s *TranslateStage) Run(ctx context.Context, state models.State, settings config.Settings) (models.StageResult, models.Patch) {
	data := settings.Data

	if data.IsDocumentStore() {
		return s.done(ctx, state, models.DocumentSampleQuery, usedDocumentStore, 0)
	}

	var columns []models.Column
	if data.Type != "" && data.Table != "" {
		columns = s.columns(ctx, state, data)
	}

	query, used := "", usedFallback

	if settings.LLM.Enabled() && s.deps.Translators != nil {
		sql, name, err := s.translate(ctx, state, settings, columns)
		if err != nil {
			s.deps.record(ctx, state.RunID, models.LevelError, string(models.StageNLP), "translation_failed", map[string]any{"error": err.Error()})
		} else {
			// used names the model whenever it answered, even without SQL.
			query, used = sql, name
		}
	}

	if query == "" {
		query = sqlsafe.FallbackQuery(data.Table, columns)
	}

	return s.done(ctx, state, query, used, len(columns))
}

func (s *TranslateStage) done(ctx context.Context, state models.State, query, used string, schemaCols int) (models.StageResult, models.Patch) {
	summary := map[string]any{"used": used, "query": query, "schema_cols": schemaCols}
	s.deps.record(ctx, state.RunID, models.LevelInfo, string(models.StageNLP), "nlp_done", summary)

	result := models.NewStageResult(models.StageNLP, models.StageStatusSuccess)
	result.Payload.Query = query
	result.Summary = summary

	return result, models.Patch{Query: &query}
}

// columns introspects the configured table. Failures are logged and yield
// no columns.
func (s *TranslateStage) columns(ctx context.Context, state models.State, data config.DataSource) []models.Column {
	fail := func(err error) []models.Column {
		s.deps.record(ctx, state.RunID, models.LevelError, string(models.StageNLP), "schema_fetch_failed", map[string]any{"error": err.Error()})

		return nil
	}

	if s.deps.Sources == nil {
		return nil
	}

	source, err := s.deps.Sources.Open(ctx, data)
	if err != nil {
		return fail(err)
	}

	defer source.Close()

	columns, err := source.Columns(ctx, data.Table)
	if err != nil {
		return fail(err)
	}

	return columns
}

// translate asks the model and returns a safe, limited statement. An empty
// statement means the model gave nothing usable.
func (s *TranslateStage) translate(ctx context.Context, state models.State, settings config.Settings, columns []models.Column) (string, string, error) {
	translator, err := s.deps.Translators(ctx, settings.LLM)
	if err != nil {
		return "", "", models.NewStageError(models.StageNLP, models.ErrTranslation, err)
	}

	if closer, ok := translator.(io.Closer); ok {
		defer closer.Close()
	}

	memory := state.MemoryMessages
	if len(memory) > llm.MemoryWindow {
		memory = memory[len(memory)-llm.MemoryWindow:]
	}

	text, err := translator.Translate(ctx, llm.TranslationRequest{
		Question: state.Question,
		Table:    settings.Data.Table,
		Columns:  columns,
		Memory:   memory,
	})
	if err != nil {
		return "", "", models.NewStageError(models.StageNLP, models.ErrTranslation, err)
	}

	table := settings.Data.Table

	sql := sqlsafe.InjectTable(sqlsafe.ExtractSQL(text), table)
	if sql == "" {
		return "", translator.Name(), nil
	}

	if !sqlsafe.IsSafe(sql) {
		s.deps.record(ctx, state.RunID, models.LevelError, string(models.StageNLP), "unsafe_query_replaced", map[string]any{"query": sql})
		sql = sqlsafe.FallbackQuery(table, columns)
	}

	return sqlsafe.EnsureLimit(sql, RowLimit), translator.Name(), nil
}

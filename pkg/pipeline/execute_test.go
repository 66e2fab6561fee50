package pipeline_test

import (
	"errors"
	"testing"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/mocks"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func queryOpener(source *mocks.MockSource) *mocks.MockSourceOpener {
	source.On("Close").Return(nil)

	opener := &mocks.MockSourceOpener{}
	opener.On("Open", mock.Anything, mock.Anything).Return(source, nil)

	return opener
}

func stateWithQuery(query string) models.State {
	state := models.NewState("run-1", "orders by status", "")
	state.Query = query

	return state
}

func TestExecuteStage_RunsTranslatedQuery(t *testing.T) {
	t.Parallel()

	rows := []models.Row{{"value": "paid", "count": int64(2)}}

	source := &mocks.MockSource{}
	source.On("Query", mock.Anything, ordersByStatus, pipeline.RowLimit).Return(rows, nil)

	result, patch := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: queryOpener(source)}).
		Run(t.Context(), stateWithQuery(ordersByStatus), ordersSettings())

	assert.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, ordersByStatus, result.Payload.QueryUsed)
	assert.Equal(t, []string{ordersByStatus}, result.Payload.TriedQueries)
	require.NotNil(t, patch.Rows)
	assert.Equal(t, rows, *patch.Rows)
	assert.Equal(t, ordersByStatus, *patch.Query)
	source.AssertExpectations(t)
}

func TestExecuteStage_FallsBackToTable(t *testing.T) {
	t.Parallel()

	rows := []models.Row{{"id": int64(1)}}

	source := &mocks.MockSource{}
	source.On("Query", mock.Anything, "SELECT nope FROM orders LIMIT 500", pipeline.RowLimit).Return(nil, errors.New("no such column: nope"))
	source.On("Query", mock.Anything, "SELECT * FROM orders", pipeline.RowLimit).Return(rows, nil)

	sink := &mocks.RecordingSink{}

	result, patch := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: queryOpener(source), Sink: sink}).
		Run(t.Context(), stateWithQuery("SELECT nope FROM orders LIMIT 500"), ordersSettings())

	assert.Equal(t, models.StageStatusSuccess, result.Status)
	assert.Equal(t, "SELECT * FROM orders", result.Payload.QueryUsed)
	assert.Equal(t, []string{"SELECT nope FROM orders LIMIT 500", "SELECT * FROM orders"}, result.Payload.TriedQueries)
	assert.Equal(t, "SELECT * FROM orders", *patch.Query)

	_, ok := sink.Find("db", "db_nlp_query_failed")
	assert.True(t, ok)
	_, ok = sink.Find("db", "db_query_executed_fallback")
	assert.True(t, ok)
}

func TestExecuteStage_NoTable(t *testing.T) {
	t.Parallel()

	source := &mocks.MockSource{}
	source.On("Query", mock.Anything, "SELECT 1", pipeline.RowLimit).Return(nil, errors.New("boom"))

	settings := config.Settings{Data: config.DataSource{Type: "sqlite", Name: "x.db"}}

	result, patch := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: queryOpener(source)}).
		Run(t.Context(), stateWithQuery("SELECT 1"), settings)

	assert.Equal(t, models.StageStatusError, result.Status)
	assert.Contains(t, result.Error, "no table configured and translated query failed or absent")
	assert.Equal(t, []string{"SELECT 1"}, result.Payload.TriedQueries)
	assert.Nil(t, patch.Rows)
}

func TestExecuteStage_OpenFailureCarriesTriedQueries(t *testing.T) {
	t.Parallel()

	opener := &mocks.MockSourceOpener{}
	opener.On("Open", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	sink := &mocks.RecordingSink{}

	result, _ := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: opener, Sink: sink}).
		Run(t.Context(), stateWithQuery(ordersByStatus), ordersSettings())

	assert.Equal(t, models.StageStatusError, result.Status)
	assert.Contains(t, result.Error, "connection refused")
	assert.Equal(t, []string{ordersByStatus, "SELECT * FROM orders"}, result.Payload.TriedQueries)

	failed, ok := sink.Find("db", "db_error")
	require.True(t, ok)
	assert.Equal(t, models.LevelException, failed.Level)
	opener.AssertExpectations(t)
}

func TestExecuteStage_DocumentStore(t *testing.T) {
	t.Parallel()

	settings := config.Settings{Data: config.DataSource{Type: "mongodb", Name: "shop", Table: "orders"}}

	t.Run("sampled", func(t *testing.T) {
		t.Parallel()

		docs := []models.Row{{"_id": "65f0", "status": "paid"}}

		source := &mocks.MockDocumentSource{}
		source.On("Sample", mock.Anything, pipeline.RowLimit).Return(docs, nil)
		source.On("Close", mock.Anything).Return(nil)

		opener := &mocks.MockSourceOpener{}
		opener.On("OpenDocuments", mock.Anything, settings.Data).Return(source, nil)

		result, patch := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: opener}).
			Run(t.Context(), stateWithQuery(models.DocumentSampleQuery), settings)

		assert.Equal(t, models.StageStatusSuccess, result.Status)
		assert.Equal(t, models.DocumentSampleQuery, result.Payload.QueryUsed)
		assert.Equal(t, docs, *patch.Rows)
		source.AssertExpectations(t)
	})

	t.Run("error", func(t *testing.T) {
		t.Parallel()

		opener := &mocks.MockSourceOpener{}
		opener.On("OpenDocuments", mock.Anything, settings.Data).Return(nil, errors.New("auth failed"))

		sink := &mocks.RecordingSink{}

		result, _ := pipeline.NewExecuteStage(pipeline.Dependencies{Sources: opener, Sink: sink}).
			Run(t.Context(), stateWithQuery(models.DocumentSampleQuery), settings)

		assert.Equal(t, models.StageStatusError, result.Status)

		_, ok := sink.Find("db", "mongo_error")
		assert.True(t, ok)
	})
}

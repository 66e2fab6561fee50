package pipeline_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dukex/datapilot/pkg/artifacts"
	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/eventlog"
	"github.com/dukex/datapilot/pkg/events"
	"github.com/dukex/datapilot/pkg/mocks"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/persistence/file"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func baseSettings(t *testing.T) config.Settings {
	t.Helper()

	dir := t.TempDir()

	return config.Settings{
		Env:               "test",
		LogFile:           filepath.Join(dir, "logs", "events.jsonl"),
		ArtifactsDir:      filepath.Join(dir, "artifacts"),
		SchedulerTimezone: "UTC",
	}
}

func seedOrders(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "orders.db")

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)

	defer db.Close()

	statements := []string{
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, status TEXT, amount REAL)`,
		`INSERT INTO orders (status, amount) VALUES ('paid', 10.5), ('paid', 3), ('refunded', 7.25), ('pending', 4.5)`,
	}

	for _, statement := range statements {
		_, err := db.ExecContext(context.Background(), statement)
		require.NoError(t, err)
	}

	return path
}

type endToEnd struct {
	runner *pipeline.Runner
	store  *file.Persistence
}

func newEndToEnd(t *testing.T, settings config.Settings, opts ...pipeline.RunnerOption) endToEnd {
	t.Helper()

	logger := slog.Default()
	store := file.NewPersistence(filepath.Join(t.TempDir(), "data"))
	sink := eventlog.New(logger, settings.LogFile, store)

	stages := pipeline.NewStages(pipeline.Dependencies{
		Sources:   datasource.Opener{},
		Artifacts: artifacts.NewWriter(settings.ArtifactsDir),
		Memory:    store,
		Sink:      sink,
	})

	executor := pipeline.NewExecutor(logger, sink, stages)
	opts = append([]pipeline.RunnerOption{pipeline.WithIDGenerator(func() string { return "run-1" })}, opts...)

	return endToEnd{
		runner: pipeline.NewRunner(logger, settings, executor, store, sink, opts...),
		store:  store,
	}
}

func TestRunner_FallbackQueryWithoutLLMOrMail(t *testing.T) {
	t.Parallel()

	settings := baseSettings(t)
	settings.Data = config.DataSource{Type: "sqlite", Name: seedOrders(t), Table: "orders"}

	e2e := newEndToEnd(t, settings)

	outcome, err := e2e.runner.Run(t.Context(), pipeline.RunInput{Question: "  orders by status  ", Trigger: "cli"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", outcome.RunID)
	assert.Equal(t, models.RunStatusSuccess, outcome.Status)
	assert.Equal(t, pipeline.ReasonOK, outcome.Reason)
	assert.Equal(t, ordersByStatus, outcome.Query)
	require.Len(t, outcome.Rows, 3)
	assert.Equal(t, "paid", outcome.Rows[0]["value"])

	assert.FileExists(t, outcome.Artifacts[models.ArtifactCSV])
	assert.FileExists(t, outcome.Artifacts[models.ArtifactPDF])
	assert.NotContains(t, outcome.Artifacts, models.ArtifactXLSX)

	run, err := e2e.store.RunByID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusSuccess, run.Status)
	assert.Equal(t, "orders by status", run.Question)
	assert.NotNil(t, run.FinishedAt)

	messages, err := e2e.store.RecentMessages(t.Context(), "default", pipeline.MemoryLimit)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "orders by status", messages[0].Content)
	assert.Equal(t, "query_used: "+ordersByStatus, messages[1].Content)

	logs, err := e2e.store.Logs(t.Context(), 100)
	require.NoError(t, err)

	var emailSkipped bool

	for _, entry := range logs {
		if entry.Node == "email" && entry.Event == "skipped" {
			emailSkipped = true

			assert.Equal(t, pipeline.ReasonMissingEmailConfig, entry.Data["reason"])
		}
	}

	assert.True(t, emailSkipped)
	assert.FileExists(t, settings.LogFile)
}

func TestRunner_ConcurrentRunsShareNothing(t *testing.T) {
	t.Parallel()

	const runs = 8

	settings := baseSettings(t)
	settings.Data = config.DataSource{Type: "sqlite", Name: seedOrders(t), Table: "orders"}

	var ids atomic.Int64

	e2e := newEndToEnd(t, settings, pipeline.WithIDGenerator(func() string {
		return fmt.Sprintf("run-%d", ids.Add(1))
	}))

	outcomes := make([]*pipeline.Outcome, runs)

	var wg sync.WaitGroup

	for i := range runs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			outcome, err := e2e.runner.Run(t.Context(), pipeline.RunInput{
				Question: "orders by status",
				UserID:   fmt.Sprintf("user-%d", i),
				Trigger:  "api",
			})
			assert.NoError(t, err)

			outcomes[i] = outcome
		}()
	}

	wg.Wait()

	runIDs := map[string]struct{}{}
	csvPaths := map[string]struct{}{}

	for i, outcome := range outcomes {
		require.NotNil(t, outcome)
		assert.Equal(t, models.RunStatusSuccess, outcome.Status)
		require.Len(t, outcome.Rows, 3)

		runIDs[outcome.RunID] = struct{}{}
		csvPaths[outcome.Artifacts[models.ArtifactCSV]] = struct{}{}

		messages, err := e2e.store.RecentMessages(t.Context(), fmt.Sprintf("user-%d", i), pipeline.MemoryLimit)
		require.NoError(t, err)
		assert.Len(t, messages, 2)
	}

	assert.Len(t, runIDs, runs)
	assert.Len(t, csvPaths, runs)
}

func TestRunner_MissingTableHaltsAtQuery(t *testing.T) {
	t.Parallel()

	settings := baseSettings(t)
	settings.Data = config.DataSource{Type: "sqlite", Name: seedOrders(t), Table: "missing"}

	e2e := newEndToEnd(t, settings)

	outcome, err := e2e.runner.Run(t.Context(), pipeline.RunInput{Question: "anything"})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusError, outcome.Status)
	assert.Equal(t, pipeline.ReasonNodeFailed, outcome.Reason)
	assert.Empty(t, outcome.Artifacts)

	run, err := e2e.store.RunByID(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusError, run.Status)
}

func TestRunner_RejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input pipeline.RunInput
	}{
		{name: "empty question", input: pipeline.RunInput{Question: "   "}},
		{name: "unsupported source type", input: pipeline.RunInput{Question: "q", Overrides: map[string]any{"DATA_DB_TYPE": "oracle"}}},
		{name: "non scalar override", input: pipeline.RunInput{Question: "q", Overrides: map[string]any{"DATA_HOST": []string{"a"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mocks.MockRunStore{}
			runner := pipeline.NewRunner(slog.Default(), baseSettings(t), pipeline.NewExecutor(slog.Default(), nil, nil), store, nil)

			_, err := runner.Run(t.Context(), tt.input)
			require.ErrorIs(t, err, models.ErrValidation)
			store.AssertNotCalled(t, "StartRun", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunner_StartRunFailure(t *testing.T) {
	t.Parallel()

	store := &mocks.MockRunStore{}
	store.On("StartRun", mock.Anything, mock.Anything, "q").Return(errors.New("disk full"))

	stages, calls := stubPipeline(nil)
	runner := pipeline.NewRunner(slog.Default(), baseSettings(t), pipeline.NewExecutor(slog.Default(), nil, stages), store, nil)

	_, err := runner.Run(t.Context(), pipeline.RunInput{Question: "q"})
	require.ErrorContains(t, err, "disk full")
	assert.Empty(t, *calls)
}

func TestRunner_PublishesArtifactsAndEvents(t *testing.T) {
	t.Parallel()

	store := &mocks.MockRunStore{}
	store.On("StartRun", mock.Anything, "run-1", "q").Return(nil)
	store.On("FinishRun", mock.Anything, "run-1", models.RunStatusSuccess).Return(errors.New("ignored"))

	publisher := &mocks.MockArtifactPublisher{}
	publisher.On("Publish", mock.Anything, "run-1", mock.Anything).
		Return(map[models.ArtifactKind]string{models.ArtifactPDF: "run-1/report.pdf"}, nil)

	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, "run-1", mock.AnythingOfType("events.RunStarted")).Return(nil).Once()
	bus.On("Publish", mock.Anything, "run-1", mock.MatchedBy(func(event events.RunFinished) bool {
		return event.Status == models.RunStatusSuccess && event.RowCount == 1
	})).Return(nil).Once()

	sink := &mocks.RecordingSink{}
	stages, _ := stubPipeline(nil)

	runner := pipeline.NewRunner(slog.Default(), baseSettings(t),
		pipeline.NewExecutor(slog.Default(), sink, stages, alwaysExists()),
		store, sink,
		pipeline.WithIDGenerator(func() string { return "run-1" }),
		pipeline.WithArtifactPublisher(publisher),
		pipeline.WithRunEvents(bus),
	)

	outcome, err := runner.Run(t.Context(), pipeline.RunInput{Question: "q", Trigger: "api"})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusSuccess, outcome.Status)
	assert.Equal(t, "run-1/report.pdf", outcome.Published[models.ArtifactPDF])

	_, ok := sink.Find("artifacts", "artifacts_published")
	assert.True(t, ok)

	store.AssertExpectations(t)
	publisher.AssertExpectations(t)
	bus.AssertExpectations(t)
}

func TestRunner_RunScheduled(t *testing.T) {
	t.Parallel()

	store := &mocks.MockRunStore{}
	store.On("StartRun", mock.Anything, mock.Anything, "daily report").Return(nil)
	store.On("FinishRun", mock.Anything, mock.Anything, models.RunStatusSuccess).Return(nil)

	var userID string

	stages, _ := stubPipeline(map[models.StageName]stageFunc{
		models.StageMemoryLoad: func(state models.State) (models.StageResult, models.Patch) {
			userID = state.UserID

			return models.NewStageResult(models.StageMemoryLoad, models.StageStatusSuccess), models.Patch{}
		},
	})

	runner := pipeline.NewRunner(slog.Default(), baseSettings(t), pipeline.NewExecutor(slog.Default(), nil, stages, alwaysExists()), store, nil)

	err := runner.RunScheduled(t.Context(), "daily report", map[string]any{"EXPORT_XLSX": true}, "scheduler")
	require.NoError(t, err)
	assert.Equal(t, "scheduler", userID)
	store.AssertExpectations(t)
}

func TestFinalStatus(t *testing.T) {
	t.Parallel()

	result := models.NewStageResult(models.StageMemorySave, models.StageStatusSuccess)

	assert.Equal(t, models.RunStatusSuccess, pipeline.FinalStatus(models.State{}))
	assert.Equal(t, models.RunStatusSuccess, pipeline.FinalStatus(models.State{LastResult: &result, SupervisorOK: true}))
	assert.Equal(t, models.RunStatusError, pipeline.FinalStatus(models.State{LastResult: &result}))
}

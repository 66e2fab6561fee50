package models_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_DefaultsUser(t *testing.T) {
	t.Parallel()

	state := models.NewState("run-1", "how many orders?", "")

	assert.Equal(t, "run-1", state.RunID)
	assert.Equal(t, "default", state.UserID)
	assert.NotNil(t, state.Artifacts)
	assert.Empty(t, state.Artifacts)
}

func TestPatch_Apply(t *testing.T) {
	t.Parallel()

	state := models.NewState("run-1", "q", "alice")
	state.Artifacts[models.ArtifactCSV] = "artifacts/data.csv"

	query := "SELECT 1"
	rows := []models.Row{{"a": 1}}

	models.Patch{
		Query: &query,
		Rows:  &rows,
		Artifacts: map[models.ArtifactKind]string{
			models.ArtifactCSV: "",
			models.ArtifactPDF: "artifacts/report.pdf",
		},
	}.Apply(&state)

	assert.Equal(t, "SELECT 1", state.Query)
	assert.Len(t, state.Rows, 1)
	assert.Equal(t, "artifacts/data.csv", state.Artifacts[models.ArtifactCSV], "empty value must not clear an artifact")
	assert.Equal(t, "artifacts/report.pdf", state.Artifacts[models.ArtifactPDF])
}

func TestPatch_ApplyLeavesNilFieldsUntouched(t *testing.T) {
	t.Parallel()

	state := models.NewState("run-1", "q", "alice")
	state.Query = "SELECT * FROM orders"
	state.Rows = []models.Row{{"id": 1}}

	models.Patch{}.Apply(&state)

	assert.Equal(t, "SELECT * FROM orders", state.Query)
	assert.Len(t, state.Rows, 1)
}

func TestArtifacts_Clone(t *testing.T) {
	t.Parallel()

	original := models.Artifacts{models.ArtifactCSV: "a.csv"}
	clone := original.Clone()
	clone[models.ArtifactPDF] = "b.pdf"

	assert.Len(t, original, 1)
	assert.Len(t, clone, 2)
}

func TestStageResultHelpers(t *testing.T) {
	t.Parallel()

	failed := models.Failed(models.StageDB, errors.New("boom"))
	assert.Equal(t, models.StageStatusError, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.False(t, failed.Timestamp.IsZero())

	skipped := models.Skipped(models.StageEmail, "missing_email_config")
	assert.Equal(t, models.StageStatusSkipped, skipped.Status)
	assert.Equal(t, "missing_email_config", skipped.Payload.Reason)
}

func TestStageError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := fmt.Errorf("failed to run query: %w", models.NewStageError(models.StageDB, models.ErrExecution, cause))

	require.Error(t, err)
	assert.True(t, models.IsExecutionError(err))
	assert.False(t, models.IsArtifactError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db: execution error: connection refused")

	var stageErr *models.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, models.StageDB, stageErr.Stage)
}

package pipeline_test

import (
	"testing"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/stretchr/testify/assert"
)

func resultWith(stage models.StageName, status models.StageStatus, payload models.Payload) *models.StageResult {
	result := models.NewStageResult(stage, status)
	result.Payload = payload

	return &result
}

func TestSupervisor_Check(t *testing.T) {
	t.Parallel()

	present := map[string]bool{"artifacts/data.csv": true, "artifacts/report.pdf": true}
	supervisor := &pipeline.Supervisor{Exists: func(path string) bool { return present[path] }}

	tests := []struct {
		name       string
		stage      models.StageName
		result     *models.StageResult
		wantOK     bool
		wantReason string
	}{
		{name: "nil result", stage: models.StageNLP, result: nil, wantReason: "no_result"},
		{name: "failed stage", stage: models.StageCSV, result: resultWith(models.StageCSV, models.StageStatusError, models.Payload{}), wantReason: "node_failed"},
		{name: "unknown status", stage: models.StageCSV, result: resultWith(models.StageCSV, "pending", models.Payload{}), wantReason: "node_failed"},
		{name: "nlp without query", stage: models.StageNLP, result: resultWith(models.StageNLP, models.StageStatusSuccess, models.Payload{}), wantReason: "no_query"},
		{name: "nlp with query", stage: models.StageNLP, result: resultWith(models.StageNLP, models.StageStatusSuccess, models.Payload{Query: "SELECT 1"}), wantOK: true, wantReason: "ok"},
		{name: "db without rows", stage: models.StageDB, result: resultWith(models.StageDB, models.StageStatusSuccess, models.Payload{Rows: []models.Row{}}), wantReason: "no_rows_from_db"},
		{name: "db with rows", stage: models.StageDB, result: resultWith(models.StageDB, models.StageStatusSuccess, models.Payload{Rows: []models.Row{{"a": 1}}}), wantOK: true, wantReason: "ok"},
		{name: "csv path missing on disk", stage: models.StageCSV, result: resultWith(models.StageCSV, models.StageStatusSuccess, models.Payload{CSVPath: "gone.csv"}), wantReason: "missing_csv"},
		{name: "csv without path", stage: models.StageCSV, result: resultWith(models.StageCSV, models.StageStatusSuccess, models.Payload{}), wantOK: true, wantReason: "ok"},
		{name: "csv present", stage: models.StageCSV, result: resultWith(models.StageCSV, models.StageStatusSuccess, models.Payload{CSVPath: "artifacts/data.csv"}), wantOK: true, wantReason: "ok"},
		{name: "report without pdf", stage: models.StageReport, result: resultWith(models.StageReport, models.StageStatusSuccess, models.Payload{}), wantReason: "missing_pdf"},
		{name: "report pdf missing", stage: models.StageReport, result: resultWith(models.StageReport, models.StageStatusSuccess, models.Payload{PDFPath: "gone.pdf"}), wantReason: "missing_pdf"},
		{name: "report pdf present", stage: models.StageReport, result: resultWith(models.StageReport, models.StageStatusSuccess, models.Payload{PDFPath: "artifacts/report.pdf"}), wantOK: true, wantReason: "ok"},
		{name: "email skipped", stage: models.StageEmail, result: resultWith(models.StageEmail, models.StageStatusSkipped, models.Payload{}), wantOK: true, wantReason: "email_skipped"},
		{name: "email failed", stage: models.StageEmail, result: resultWith(models.StageEmail, models.StageStatusError, models.Payload{}), wantReason: "node_failed"},
		{name: "email sent", stage: models.StageEmail, result: resultWith(models.StageEmail, models.StageStatusSuccess, models.Payload{}), wantOK: true, wantReason: "ok"},
		{name: "memory save", stage: models.StageMemorySave, result: resultWith(models.StageMemorySave, models.StageStatusSuccess, models.Payload{}), wantOK: true, wantReason: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ok, reason := supervisor.Check(tt.stage, tt.result)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestNewSupervisor_UsesFileSystem(t *testing.T) {
	t.Parallel()

	ok, reason := pipeline.NewSupervisor().Check(models.StageReport,
		resultWith(models.StageReport, models.StageStatusSuccess, models.Payload{PDFPath: "/does/not/exist.pdf"}))

	assert.False(t, ok)
	assert.Equal(t, "missing_pdf", reason)
}

func TestNext(t *testing.T) {
	t.Parallel()

	order := []models.StageName{
		models.StageMemoryLoad,
		models.StageNLP,
		models.StageDB,
		models.StageCSV,
		models.StageReport,
		models.StageEmail,
		models.StageMemorySave,
		models.StageTerminal,
	}

	for i := range len(order) - 1 {
		assert.Equal(t, order[i+1], pipeline.Next(order[i]), "after %s", order[i])
	}

	assert.Equal(t, models.StageTerminal, pipeline.Next(models.StageTerminal))
	assert.Equal(t, models.StageTerminal, pipeline.Next("supervisor"))
	assert.Equal(t, pipeline.Next(models.StageDB), pipeline.Next(models.StageDB))
}

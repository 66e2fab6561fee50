package pipeline

import (
	"context"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
)

const csvNode = string(models.StageCSV)

// ExportStage writes the rows as CSV and, when enabled, as XLSX.
type ExportStage struct {
	deps Dependencies
}

func NewExportStage(deps Dependencies) *ExportStage {
	return &ExportStage{deps: deps}
}

func (s *ExportStage) Name() models.StageName {
	return models.StageCSV
}

func (s *ExportStage) Run(ctx context.Context, state models.State, settings config.Settings) (models.StageResult, models.Patch) {
	csvPath, err := s.deps.Artifacts.WriteCSV(state.Rows)
	if err != nil {
		err = models.NewStageError(models.StageCSV, models.ErrArtifact, err)
		s.deps.record(ctx, state.RunID, models.LevelException, csvNode, "csv_error", map[string]any{"error": err.Error()})

		return models.Failed(models.StageCSV, err), models.Patch{}
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, csvNode, "csv_created", map[string]any{"path": csvPath})

	result := models.NewStageResult(models.StageCSV, models.StageStatusSuccess)
	result.Payload.CSVPath = csvPath
	result.Summary["csv_path"] = csvPath

	produced := map[models.ArtifactKind]string{models.ArtifactCSV: csvPath}

	if settings.ExportXLSX {
		xlsxPath, err := s.deps.Artifacts.WriteXLSX(state.Rows)
		if err != nil {
			s.deps.record(ctx, state.RunID, models.LevelError, csvNode, "xlsx_error", map[string]any{"error": err.Error()})
		} else {
			s.deps.record(ctx, state.RunID, models.LevelInfo, csvNode, "xlsx_created", map[string]any{"path": xlsxPath})
			result.Payload.XLSXPath = xlsxPath
			result.Summary["xlsx_path"] = xlsxPath
			produced[models.ArtifactXLSX] = xlsxPath
		}
	}

	return result, models.Patch{Artifacts: produced}
}

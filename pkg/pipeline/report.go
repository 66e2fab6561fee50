package pipeline

import (
	"context"

	"github.com/dukex/datapilot/pkg/artifacts"
	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
)

const reportNode = string(models.StageReport)

// ReportStage renders the chart and the PDF report. The chart is optional.
type ReportStage struct {
	deps Dependencies
}

func NewReportStage(deps Dependencies) *ReportStage {
	return &ReportStage{deps: deps}
}

func (s *ReportStage) Name() models.StageName {
	return models.StageReport
}

func (s *ReportStage) Run(ctx context.Context, state models.State, _ config.Settings) (models.StageResult, models.Patch) {
	chartPath, err := s.deps.Artifacts.RenderChart(state.Rows, ChartTitle)
	if err != nil {
		s.deps.record(ctx, state.RunID, models.LevelError, reportNode, "chart_error", map[string]any{"error": err.Error()})
		chartPath = ""
	}

	pdfPath, err := s.deps.Artifacts.RenderReport(artifacts.ReportInput{
		Question:  state.Question,
		Rows:      state.Rows,
		ChartPath: chartPath,
	})
	if err != nil {
		err = models.NewStageError(models.StageReport, models.ErrArtifact, err)
		s.deps.record(ctx, state.RunID, models.LevelException, reportNode, "pdf_error", map[string]any{"error": err.Error()})

		return models.Failed(models.StageReport, err), models.Patch{}
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, reportNode, "pdf_created", map[string]any{"path": pdfPath, "chart": chartPath})

	result := models.NewStageResult(models.StageReport, models.StageStatusSuccess)
	result.Payload.PDFPath = pdfPath
	result.Payload.ChartPath = chartPath
	result.Summary["pdf_path"] = pdfPath
	result.Summary["chart_path"] = chartPath

	return result, models.Patch{Artifacts: map[models.ArtifactKind]string{
		models.ArtifactPDF:   pdfPath,
		models.ArtifactChart: chartPath,
	}}
}

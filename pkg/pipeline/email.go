package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/mail"
	"github.com/dukex/datapilot/pkg/models"
)

const emailNode = string(models.StageEmail)

// Skip reasons of the email stage.
const (
	ReasonMissingEmailConfig = "missing_email_config"
	ReasonMissingCSV         = "missing_csv"
	ReasonMissingPDF         = "missing_pdf"
)

// EmailStage mails the CSV and the PDF. Missing configuration or artifacts
// skip the stage instead of failing the run.
type EmailStage struct {
	deps Dependencies
}

func NewEmailStage(deps Dependencies) *EmailStage {
	return &EmailStage{deps: deps}
}

func (s *EmailStage) Name() models.StageName {
	return models.StageEmail
}

func (s *EmailStage) Run(ctx context.Context, state models.State, settings config.Settings) (models.StageResult, models.Patch) {
	cfg := settings.Mail
	recipients := cfg.Recipients()

	if !cfg.Complete() || s.deps.Mailers == nil {
		return s.skip(ctx, state, ReasonMissingEmailConfig, map[string]any{
			"has_api_key": cfg.APIKey != "",
			"to_count":    len(recipients),
			"from":        cfg.From != "",
		})
	}

	csvPath := state.Artifacts[models.ArtifactCSV]
	if !fileExists(csvPath) {
		return s.skip(ctx, state, ReasonMissingCSV, map[string]any{"csv_path": csvPath})
	}

	pdfPath := state.Artifacts[models.ArtifactPDF]
	if !fileExists(pdfPath) {
		return s.skip(ctx, state, ReasonMissingPDF, map[string]any{"pdf_path": pdfPath})
	}

	delivery, err := s.deps.Mailers(cfg.APIKey).Send(ctx, mail.Message{
		Subject: ReportSubject,
		Body:    "Report for: " + state.Question,
		From:    cfg.From,
		To:      recipients,
		Attachments: []mail.Attachment{
			{Path: csvPath, Name: filepath.Base(csvPath), MimeType: "text/csv"},
			{Path: pdfPath, Name: filepath.Base(pdfPath), MimeType: "application/pdf"},
		},
	})
	if err != nil {
		err = models.NewStageError(models.StageEmail, models.ErrExecution, err)
		s.deps.record(ctx, state.RunID, models.LevelError, emailNode, "email_done", map[string]any{
			"status":      string(models.StageStatusError),
			"status_code": delivery.StatusCode,
			"error":       err.Error(),
		})

		result := models.Failed(models.StageEmail, err)
		result.Payload.StatusCode = delivery.StatusCode

		return result, models.Patch{}
	}

	if delivery.Status == mail.StatusSkipped {
		return s.skip(ctx, state, ReasonMissingEmailConfig, nil)
	}

	s.deps.record(ctx, state.RunID, models.LevelInfo, emailNode, "email_done", map[string]any{
		"status":      delivery.Status,
		"status_code": delivery.StatusCode,
	})

	result := models.NewStageResult(models.StageEmail, models.StageStatusSuccess)
	result.Payload.StatusCode = delivery.StatusCode
	result.Summary["status"] = delivery.Status
	result.Summary["recipients"] = len(recipients)

	return result, models.Patch{}
}

func (s *EmailStage) skip(ctx context.Context, state models.State, reason string, data map[string]any) (models.StageResult, models.Patch) {
	if data == nil {
		data = map[string]any{}
	}

	data["reason"] = reason
	s.deps.record(ctx, state.RunID, models.LevelInfo, emailNode, "skipped", data)

	return models.Skipped(models.StageEmail, reason), models.Patch{}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}

	_, err := os.Stat(path)

	return err == nil
}

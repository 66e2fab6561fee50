package pipeline

import (
	"context"

	"github.com/dukex/datapilot/pkg/artifacts"
	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/datasource"
	"github.com/dukex/datapilot/pkg/llm"
	"github.com/dukex/datapilot/pkg/mail"
	"github.com/dukex/datapilot/pkg/models"
)

// Translator turns a question into model text containing SQL.
type Translator interface {
	Name() string
	Translate(ctx context.Context, request llm.TranslationRequest) (string, error)
}

// TranslatorFactory builds a translator for the run's LLM settings. It is
// only called when the settings carry an API key.
type TranslatorFactory func(ctx context.Context, cfg config.LLM) (Translator, error)

// SourceOpener opens the data source of a run.
type SourceOpener interface {
	Open(ctx context.Context, cfg config.DataSource) (datasource.Source, error)
	OpenDocuments(ctx context.Context, cfg config.DataSource) (datasource.DocumentSource, error)
}

// ArtifactWriter produces the files of a run.
type ArtifactWriter interface {
	WriteCSV(rows []models.Row) (string, error)
	WriteXLSX(rows []models.Row) (string, error)
	RenderChart(rows []models.Row, title string) (string, error)
	RenderReport(input artifacts.ReportInput) (string, error)
}

// MailSender delivers the report email.
type MailSender interface {
	Send(ctx context.Context, message mail.Message) (mail.Delivery, error)
}

// MailerFactory builds a sender for the run's API key.
type MailerFactory func(apiKey string) MailSender

// MemoryStore keeps the per-user conversation.
type MemoryStore interface {
	RecentMessages(ctx context.Context, userID string, limit int) ([]models.Message, error)
	AppendMessage(ctx context.Context, message models.Message) error
}

// RunStore tracks the lifecycle of runs.
type RunStore interface {
	StartRun(ctx context.Context, runID, question string) error
	FinishRun(ctx context.Context, runID, status string) error
}

// Sink records structured events. It never fails.
type Sink interface {
	Record(ctx context.Context, runID, level, node, event string, data map[string]any)
}

// ArtifactPublisher copies finished artifacts to durable storage.
type ArtifactPublisher interface {
	Publish(ctx context.Context, runID string, artifacts models.Artifacts) (map[models.ArtifactKind]string, error)
}

// Dependencies are the collaborators shared by every stage.
type Dependencies struct {
	Translators TranslatorFactory
	Sources     SourceOpener
	Artifacts   ArtifactWriter
	Mailers     MailerFactory
	Memory      MemoryStore
	Sink        Sink
}

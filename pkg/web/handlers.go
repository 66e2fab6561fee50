// Package web provides the HTTP handlers of the data assistant API.
package web

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dukex/datapilot/pkg/config"
	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/pipeline"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const defaultLogLimit = 200

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, input pipeline.RunInput) (*pipeline.Outcome, error)
	Settings() config.Settings
}

// JobRegistry is the scheduler surface exposed over HTTP.
type JobRegistry interface {
	Register(id, question string, frequency models.Frequency, timeOfDay string, overrides map[string]any) (models.Job, error)
	List() []models.Job
	Get(id string) (models.Job, bool)
	Remove(id string) bool
	RunNow(id string) bool
}

// LogReader returns the most recent event log entries.
type LogReader interface {
	Logs(ctx context.Context, limit int) ([]models.LogEntry, error)
}

type APIHandlers struct {
	runner       Runner
	jobs         JobRegistry
	logs         LogReader
	sources      pipeline.SourceOpener
	validator    *validator.Validate
	artifactsDir string
	newJobID     func() string
}

func NewAPIHandlers(
	runner Runner,
	jobs JobRegistry,
	logs LogReader,
	sources pipeline.SourceOpener,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		runner:       runner,
		jobs:         jobs,
		logs:         logs,
		sources:      sources,
		validator:    validator,
		artifactsDir: runner.Settings().ArtifactsDir,
		newJobID:     NewJobID,
	}
}

// NewJobID returns "scheduled_" followed by 8 hex characters.
func NewJobID() string {
	return "scheduled_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *APIHandlers) Run(c fiber.Ctx) error {
	var req RunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.runner.Run(c.Context(), pipeline.RunInput{
		Question:  req.Question,
		UserID:    req.UserID,
		Overrides: req.Overrides(h.runner.Settings()),
		Trigger:   "api",
	})
	if err != nil {
		return handleRunError(c, err)
	}

	preview := outcome.Rows[:min(len(outcome.Rows), PreviewRows)]
	if preview == nil {
		preview = []models.Row{}
	}

	return c.JSON(RunResponse{
		Status:    outcome.Status,
		Reason:    outcome.Reason,
		RunID:     outcome.RunID,
		Query:     outcome.Query,
		Artifacts: outcome.Artifacts,
		Published: outcome.Published,
		Preview:   preview,
	})
}

func (h *APIHandlers) TestDB(c fiber.Ctx) error {
	var req DBTestRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	data := req.DataSource(h.runner.Settings())

	var (
		rows []models.Row
		err  error
	)

	switch data.Kind() {
	case config.SourceMySQL, config.SourcePostgres, config.SourceSQLite, config.SourceSQLServer:
		if data.Table == "" {
			return c.JSON(DBTestResponse{Status: "error", Error: "DATA_TABLE required"})
		}

		rows, err = h.probeTable(c.Context(), data)
	case config.SourceMongoDB:
		rows, err = h.probeDocuments(c.Context(), data)
	default:
		return c.JSON(DBTestResponse{Status: "error", Error: "Unsupported db_type"})
	}

	if err != nil {
		return c.JSON(DBTestResponse{Status: "error", Error: err.Error()})
	}

	if rows == nil {
		rows = []models.Row{}
	}

	return c.JSON(DBTestResponse{Status: "success", Rows: rows})
}

func (h *APIHandlers) probeTable(ctx context.Context, data config.DataSource) ([]models.Row, error) {
	source, err := h.sources.Open(ctx, data)
	if err != nil {
		return nil, err
	}

	defer func() { _ = source.Close() }()

	return source.Query(ctx, "SELECT * FROM "+data.Table, DBTestRows)
}

func (h *APIHandlers) probeDocuments(ctx context.Context, data config.DataSource) ([]models.Row, error) {
	source, err := h.sources.OpenDocuments(ctx, data)
	if err != nil {
		return nil, err
	}

	defer func() { _ = source.Close(ctx) }()

	return source.Sample(ctx, DBTestRows)
}

func (h *APIHandlers) GetLogs(c fiber.Ctx) error {
	limit := defaultLogLimit

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return badRequest(c, "Invalid query parameters: "+err.Error())
		}

		limit = parsed
	}

	entries, err := h.logs.Logs(c.Context(), limit)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"status": "success", "logs": entries})
}

func (h *APIHandlers) AddJob(c fiber.Ctx) error {
	var req ScheduleJobRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	job, err := h.jobs.Register(
		h.newJobID(),
		req.Question,
		models.Frequency(req.Frequency),
		req.Time,
		req.Overrides(h.runner.Settings()),
	)
	if err != nil {
		return handleRunError(c, err)
	}

	return c.JSON(fiber.Map{"status": "success", "job_id": job.ID})
}

func (h *APIHandlers) ListJobs(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "success", "jobs": h.jobs.List()})
}

func (h *APIHandlers) GetJob(c fiber.Ctx) error {
	job, ok := h.jobs.Get(c.Params("id"))
	if !ok {
		return notFound(c, "Job not found")
	}

	return c.JSON(job)
}

func (h *APIHandlers) DeleteJob(c fiber.Ctx) error {
	deleted := h.jobs.Remove(c.Params("id"))

	status := "success"
	if !deleted {
		status = "error"
	}

	return c.JSON(fiber.Map{"status": status, "deleted": deleted})
}

// RunJob fires a job immediately and waits for its run.
func (h *APIHandlers) RunJob(c fiber.Ctx) error {
	id := c.Params("id")

	if !h.jobs.RunNow(id) {
		return notFound(c, "Job not found")
	}

	return c.JSON(fiber.Map{"status": "success", "job_id": id})
}

// GetArtifact serves a file of the artifacts directory. Only the base name
// of the requested path is used.
func (h *APIHandlers) GetArtifact(c fiber.Ctx) error {
	name := filepath.Base(c.Params("name"))
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return notFound(c, "Artifact not found")
	}

	path := filepath.Join(h.artifactsDir, name)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound(c, "Artifact not found")
		}

		return internalError(c, err)
	}

	if info.IsDir() {
		return notFound(c, "Artifact not found")
	}

	return c.SendFile(path)
}

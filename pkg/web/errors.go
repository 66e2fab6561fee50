package web

import (
	"errors"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/dukex/datapilot/pkg/scheduler"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleRunError maps runner and scheduler errors to problems.
func handleRunError(c fiber.Ctx, err error) error {
	switch {
	case models.IsValidationError(err),
		errors.Is(err, scheduler.ErrInvalidTime),
		errors.Is(err, scheduler.ErrQuestionRequired),
		errors.Is(err, scheduler.ErrJobIDRequired):
		return badRequest(c, err.Error())
	default:
		return internalError(c, err)
	}
}

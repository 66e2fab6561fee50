package web

import (
	"net/http"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

// NewApp registers every route. metrics may be nil.
func NewApp(handlers *APIHandlers, metrics http.Handler) *fiber.App {
	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/health", handlers.HealthCheck)
	app.Post("/run", handlers.Run)
	app.Post("/db/test", handlers.TestDB)
	app.Get("/logs", handlers.GetLogs)
	app.Get("/artifacts/:name", handlers.GetArtifact)

	s := app.Group("/scheduler")
	s.Post("/add", handlers.AddJob)
	s.Get("/list", handlers.ListJobs)
	s.Get("/:id", handlers.GetJob)
	s.Delete("/:id", handlers.DeleteJob)
	s.Post("/:id/run", handlers.RunJob)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	return app
}

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/mzizi-labs/darasa-api/internal/config"
	"github.com/mzizi-labs/darasa-api/internal/handler"
	"github.com/mzizi-labs/darasa-api/internal/middleware"
	"github.com/mzizi-labs/darasa-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeScaleHandler    *handler.GradeScaleHandler
	MarksHandler         *handler.MarksHandler
	CohortHandler        *handler.CohortHandler
	StudentResultHandler *handler.StudentResultHandler
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staffOnly := middleware.RequireRole("admin", "registrar", "teacher")

	// Grading scales
	if deps.GradeScaleHandler != nil {
		scales := app.Group("/api/v2/grade-scales", jwtMiddleware, staffOnly)
		deps.GradeScaleHandler.Register(scales)
	}

	// Component mark ingestion
	if deps.MarksHandler != nil {
		rateMax := cfg.BulkMarksRateMax
		marks := app.Group("/api/v2/marks", jwtMiddleware, staffOnly,
			middleware.RateLimit("marks", rateMax, time.Second))
		deps.MarksHandler.Register(marks)
	}

	// Cohort recompute, broadsheet & publication
	if deps.CohortHandler != nil {
		cohorts := app.Group("/api/v2/cohorts", jwtMiddleware, staffOnly)
		deps.CohortHandler.Register(cohorts)
	}

	// Per-student result views
	if deps.StudentResultHandler != nil {
		students := app.Group("/api/v2/students", jwtMiddleware)
		deps.StudentResultHandler.Register(students)
	}
}

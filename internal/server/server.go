package server

import (
	"context"

	"subchapter-tutor-be/internal/bootstrap"
	"subchapter-tutor-be/internal/config"
	"subchapter-tutor-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

type healthResponse struct {
	Status          string `json:"status"`
	ContentBackend  string `json:"content_backend"`
	Subchapters     int    `json:"subchapters"`
	ActiveSessions  int    `json:"active_sessions"`
	EventsProcessed int64  `json:"events_processed"`
	CatalogError    string `json:"catalog_error,omitempty"`
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // 1MB
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	// Routes
	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("SERVER", "Server is running", map[string]interface{}{"port": s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	api.Get("/health", func(ctx *fiber.Ctx) error {
		res := healthResponse{
			Status:          "ok",
			ContentBackend:  c.ContentStore.Identity(),
			ActiveSessions:  c.TutorService.ActiveSessions(),
			EventsProcessed: c.ConsumerService.Processed(),
		}
		cat, err := c.Catalogs.Catalog(ctx.Context())
		if err != nil {
			// Listing failures degrade the service but never take it down.
			res.Status = "degraded"
			res.CatalogError = err.Error()
		} else {
			res.Subchapters = cat.Len()
		}
		return ctx.JSON(serverutils.SuccessResponse("Success get health", res))
	})

	c.TutorController.RegisterRoutes(api)
}

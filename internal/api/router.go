package api

import (
	"errors"
	"os"
	"path/filepath"

	"ticket-triage/docs"
	"ticket-triage/internal/api/handlers"
	"ticket-triage/internal/dto"
	"ticket-triage/pkg/config"
	"ticket-triage/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func SetupRouter(
	triageHandler *handlers.TriageHandler,
	cfg *config.ServerConfig,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ticket-triage",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(dto.ErrorResponse{
				Error: err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestID} ${status} - ${latency} ${method} ${path}\n",
	}))

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", handlers.Health)

	webStaticPath := findWebStaticPath(appLogger)
	if webStaticPath != "" {
		appLogger.Info("Serving static files", zap.String("path", webStaticPath))
		app.Static("/static", webStaticPath)
		app.Get("/", func(c *fiber.Ctx) error {
			return c.SendFile(filepath.Join(webStaticPath, "index.html"))
		})
	} else {
		appLogger.Warn("Web static directory not found, web form will not be served")
	}

	// The short path is kept for clients of the original service.
	app.Post("/triage", triageHandler.Triage)

	api := app.Group("/api/v1")
	triage := api.Group("/triage")
	triage.Post("", triageHandler.Triage)
	triage.Get("/history", triageHandler.History)

	return app
}

// findWebStaticPath looks for web/static relative to the working directory.
func findWebStaticPath(logger *zap.Logger) string {
	paths := []string{
		"web/static",
		"../web/static",
		"../../web/static",
	}

	for _, path := range paths {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
		logger.Debug("Tried path", zap.String("path", path))
	}

	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

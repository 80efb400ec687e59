package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/services"
	"github.com/vetclinic/aiadmin/internal/core/services/factory"
	"github.com/vetclinic/aiadmin/internal/infrastructure/db"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	transporthttp "github.com/vetclinic/aiadmin/internal/transport/http"
	httpmw "github.com/vetclinic/aiadmin/internal/transport/http/middleware"
	"gorm.io/gorm"
)

func main() {
	configPath := "config/config.yaml"
	if p := os.Getenv("AIADMIN_CONFIG"); p != "" {
		configPath = p
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		configPath = "../config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Info("database connection established")

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("database migrations completed")

	pipeline, err := factory.NewPipeline(factory.Options{
		Config:   cfg,
		DB:       database,
		Logger:   log,
		Registry: prometheus.DefaultRegisterer,
	})
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	// Runs that were mid-pipeline when the last process stopped can never
	// resume; surface them as failed.
	if n, err := pipeline.TaskService.FailInterrupted(context.Background()); err != nil {
		log.Errorf("failed to recover interrupted tasks: %v", err)
	} else if n > 0 {
		log.Warnf("marked %d interrupted task(s) as failed", n)
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          globalErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token, " + cfg.Features.RequestIDHeader,
		AllowMethods: "GET, POST, HEAD, PUT, DELETE",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Tasks:    pipeline.TaskService,
		Prompts:  pipeline.Prompts,
		Gatherer: prometheus.DefaultGatherer,
		Logger:   log,
		Config:   cfg,
	})

	addr := cfg.Server.Address()
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s", addr)

	gracefulShutdown(app, pipeline.TaskService, database, log)
}

func globalErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		if code == fiber.StatusRequestTimeout || code == fiber.StatusNotFound {
			log.Warnw("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals("request_id"),
			)
		} else {
			log.Errorw("request error",
				"method", c.Method(),
				"path", c.Path(),
				"status", code,
				"error", err.Error(),
				"request_id", c.Locals("request_id"),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}

func gracefulShutdown(app *fiber.App, tasks *services.TaskService, database *gorm.DB, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	// Pipeline runs are not cancellable; let in-flight ones reach a terminal
	// status before the database goes away.
	log.Info("waiting for in-flight pipeline runs...")
	tasks.Wait()

	if err := db.Close(database); err != nil {
		log.Errorf("failed to close database connection: %v", err)
	}

	log.Info("server exited gracefully")
}

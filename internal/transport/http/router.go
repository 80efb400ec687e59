package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/transport/http/handlers"
	httpmw "github.com/vetclinic/aiadmin/internal/transport/http/middleware"
)

type RouterConfig struct {
	Tasks    ports.TaskService
	Prompts  handlers.PromptManager
	Gatherer prometheus.Gatherer
	Logger   *logger.Logger
	Config   *config.Config
	// StreamInterval is how often /ws/tasks/:id polls the record.
	StreamInterval time.Duration
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	taskHandler := handlers.NewTaskHandler(cfg.Tasks, cfg.Logger)
	promptHandler := handlers.NewPromptHandler(cfg.Prompts, cfg.Logger)
	streamHandler := handlers.NewTaskStreamHandler(cfg.Tasks, cfg.Logger, cfg.StreamInterval)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	// Live task status
	app.Use("/ws", httpmw.AdminAuth(cfg.Config), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/tasks/:id", websocket.New(streamHandler.Handle))

	// API v1 routes
	api := app.Group("/api/v1", httpmw.AdminAuth(cfg.Config))

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Post("/", taskHandler.SubmitTask)
	tasks.Get("/", taskHandler.ListTasks)
	tasks.Get("/history", taskHandler.ChatHistory)
	tasks.Get("/:id/status", taskHandler.GetStatus)
	tasks.Get("/:id/events", taskHandler.GetEvents)

	// Report routes
	api.Get("/reports/:slug", taskHandler.GetReport)

	// Prompt routes
	prompts := api.Group("/prompts")
	prompts.Get("/", promptHandler.ListOverrides)
	prompts.Get("/:agent/:name", promptHandler.GetPrompt)
	prompts.Put("/:agent/:name", promptHandler.UpdatePrompt)
	prompts.Delete("/:agent/:name", promptHandler.ResetPrompt)
}

package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/transport/http/dto"
)

// PromptManager reads and overrides stage prompts.
type PromptManager interface {
	Effective(ctx context.Context, agent, name string) (string, string, error)
	Set(ctx context.Context, agent, name, text string) error
	Reset(ctx context.Context, agent, name string) error
	Overrides(ctx context.Context) (map[string]string, error)
}

type PromptHandler struct {
	service PromptManager
	logger  *logger.Logger
}

func NewPromptHandler(service PromptManager, logger *logger.Logger) *PromptHandler {
	return &PromptHandler{service: service, logger: logger}
}

func (h *PromptHandler) ListOverrides(c *fiber.Ctx) error {
	overrides, err := h.service.Overrides(c.UserContext())
	if err != nil {
		h.logger.Errorw("prompt_overrides_failed", "error", err)
		return writeError(c, err)
	}
	return c.JSON(overrides)
}

func (h *PromptHandler) GetPrompt(c *fiber.Ctx) error {
	agent, name := c.Params("agent"), c.Params("name")
	text, source, err := h.service.Effective(c.UserContext(), agent, name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.PromptResponse{Agent: agent, Name: name, Text: text, Source: source})
}

func (h *PromptHandler) UpdatePrompt(c *fiber.Ctx) error {
	var req dto.PromptRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("prompt_update_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	agent, name := c.Params("agent"), c.Params("name")
	if err := h.service.Set(c.UserContext(), agent, name, req.Text); err != nil {
		h.logger.Warnw("prompt_update_failed", "agent", agent, "name", name, "error", err)
		return writeError(c, err)
	}
	return h.GetPrompt(c)
}

func (h *PromptHandler) ResetPrompt(c *fiber.Ctx) error {
	agent, name := c.Params("agent"), c.Params("name")
	if err := h.service.Reset(c.UserContext(), agent, name); err != nil {
		return writeError(c, err)
	}
	return h.GetPrompt(c)
}

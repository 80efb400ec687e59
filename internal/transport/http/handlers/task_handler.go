package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/transport/http/dto"
)

type TaskHandler struct {
	service ports.TaskService
	logger  *logger.Logger
}

func NewTaskHandler(service ports.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{service: service, logger: logger}
}

func (h *TaskHandler) SubmitTask(c *fiber.Ctx) error {
	var req dto.SubmitTaskRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("task_submit_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: "invalid request body",
		})
	}

	if errors := req.Validate(); len(errors) > 0 {
		h.logger.Warnw("task_submit_validation_failed", "details", errors)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:   "validation failed",
			Details: errors,
		})
	}

	task, err := h.service.Submit(c.UserContext(), req.UserRequest)
	if err != nil {
		h.logger.Warnw("task_submit_failed", "error", err)
		return writeError(c, err)
	}

	h.logger.Infow("task_submit_ok", "task_id", task.ID)
	return c.Status(fiber.StatusAccepted).JSON(dto.SubmitTaskResponse{
		ID:     task.ID,
		Status: task.Status,
	})
}

func (h *TaskHandler) ListTasks(c *fiber.Ctx) error {
	tasks, err := h.service.ListTasks(c.UserContext(), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		h.logger.Errorw("task_list_failed", "error", err)
		return writeError(c, err)
	}
	return c.JSON(tasks)
}

func (h *TaskHandler) ChatHistory(c *fiber.Ctx) error {
	history, err := h.service.ChatHistory(c.UserContext(), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		h.logger.Errorw("task_history_failed", "error", err)
		return writeError(c, err)
	}
	return c.JSON(history)
}

func (h *TaskHandler) GetStatus(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid task id"})
	}

	details, err := h.service.GetTaskDetails(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(details)
}

func (h *TaskHandler) GetEvents(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid task id"})
	}

	events, err := h.service.GetEvents(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(events)
}

// GetReport serves a report's markup as a page.
func (h *TaskHandler) GetReport(c *fiber.Ctx) error {
	report, err := h.service.GetReport(c.UserContext(), c.Params("slug"))
	if err != nil {
		return writeError(c, err)
	}
	c.Type("html", "utf-8")
	return c.SendString(report.Content)
}

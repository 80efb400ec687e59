package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"github.com/vetclinic/aiadmin/internal/transport/http/dto"
)

const defaultPollInterval = time.Second

// TaskStreamHandler pushes a frame whenever a task's status or current agent
// changes, and closes once the task is terminal.
type TaskStreamHandler struct {
	service  ports.TaskService
	logger   *logger.Logger
	interval time.Duration
}

func NewTaskStreamHandler(service ports.TaskService, logger *logger.Logger, interval time.Duration) *TaskStreamHandler {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &TaskStreamHandler{service: service, logger: logger, interval: interval}
}

func (h *TaskStreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	idStr := c.Params("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		h.logger.Warnw("task_stream_invalid_id", "id", idStr)
		_ = c.WriteJSON(dto.ErrorResponse{Error: "invalid task id"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Frames from the client are ignored; a read error means it went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last dto.TaskUpdate
	for first := true; ; first = false {
		task, err := h.service.GetTask(ctx, uint(id))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warnw("task_stream_lookup_failed", "task_id", id, "error", err)
			_ = c.WriteJSON(dto.ErrorResponse{Error: err.Error()})
			return
		}

		update := dto.TaskUpdate{
			ID:           task.ID,
			Status:       task.Status,
			CurrentAgent: task.CurrentAgent,
			ErrorMessage: task.ErrorMessage,
			Terminal:     task.Status.IsTerminal(),
		}
		if first || update != last {
			if err := c.WriteJSON(update); err != nil {
				h.logger.Debugw("task_stream_client_gone", "task_id", id, "error", err)
				return
			}
			last = update
		}
		if update.Terminal {
			return
		}

		select {
		case <-ctx.Done():
			h.logger.Debugw("task_stream_client_gone", "task_id", id)
			return
		case <-ticker.C:
		}
	}
}

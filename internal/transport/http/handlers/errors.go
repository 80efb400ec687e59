package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/vetclinic/aiadmin/internal/core/services"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/transport/http/dto"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrTaskNotFound),
		errors.Is(err, domain.ErrReportNotFound),
		errors.Is(err, domain.ErrPromptNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrRequestEmpty),
		errors.Is(err, services.ErrRequestTooLong),
		errors.Is(err, services.ErrPromptUnknownAgent),
		errors.Is(err, services.ErrPromptEmpty):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrTaskNotRunnable):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func writeError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(dto.ErrorResponse{Error: err.Error()})
}

func parseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

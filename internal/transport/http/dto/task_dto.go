package dto

import (
	"strings"

	"github.com/vetclinic/aiadmin/internal/domain"
)

type SubmitTaskRequest struct {
	UserRequest string `json:"user_request" validate:"required"`
}

func (r *SubmitTaskRequest) Validate() []string {
	var errors []string
	if strings.TrimSpace(r.UserRequest) == "" {
		errors = append(errors, "user_request is required")
	}
	return errors
}

type SubmitTaskResponse struct {
	ID     uint              `json:"id"`
	Status domain.TaskStatus `json:"status"`
}

type PromptRequest struct {
	Text string `json:"text"`
}

type PromptResponse struct {
	Agent  string `json:"agent"`
	Name   string `json:"name"`
	Text   string `json:"text"`
	Source string `json:"source"`
}

// TaskUpdate is one frame of the live status stream.
type TaskUpdate struct {
	ID           uint              `json:"id"`
	Status       domain.TaskStatus `json:"status"`
	CurrentAgent string            `json:"current_agent"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Terminal     bool              `json:"terminal"`
}

type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

package agents

import (
	"context"
	"strings"

	"github.com/vetclinic/aiadmin/internal/domain"
)

// Response writes the final user-facing reply over the summary.
type Response struct {
	deps Deps
}

func NewResponse(deps Deps) *Response {
	return &Response{deps: deps}
}

func (r *Response) Name() string { return domain.AgentResponse }

func (r *Response) Run(ctx context.Context, task *domain.TaskRecord) (Signal, error) {
	text, err := r.deps.ask(ctx, r.Name(), PromptKeyResponse, nil, reviewContext(task))
	if err != nil {
		return SignalFailed, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return failed(r.Name(), domain.KindValidation, "empty reply", nil)
	}

	task.ResultSummary = text
	return SignalResponded, nil
}

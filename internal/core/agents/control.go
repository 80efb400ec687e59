package agents

import (
	"context"
	"strings"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
)

const SectionVerificationReport = "Verification Report"

// Control checks the execution against the store with read-only tools.
type Control struct {
	deps  Deps
	tools ports.ToolSet
}

func NewControl(deps Deps, tools ports.ToolSet) *Control {
	return &Control{deps: deps, tools: tools}
}

func (c *Control) Name() string { return domain.AgentControl }

func (c *Control) Run(ctx context.Context, task *domain.TaskRecord) (Signal, error) {
	text, err := c.deps.ask(ctx, c.Name(), PromptKeyControl, c.tools, reviewContext(task))
	if err != nil {
		return SignalFailed, err
	}
	text = strings.TrimSpace(text)

	verdict, err := ParseVerdict(text)
	if err != nil {
		return SignalFailed, err
	}
	c.deps.Log.Infow("control_verdict", "task_id", task.ID, "verdict", verdict)

	if verdict == VerdictRetry {
		return SignalRetry, domain.NewStageError(c.Name(), domain.KindRetryRequested, "verification requested a retry: "+text, nil)
	}

	task.AppendSection(SectionVerificationReport, text)
	task.Status = domain.TaskStatusReporting
	task.CurrentAgent = domain.AgentDescription
	return SignalVerified, nil
}

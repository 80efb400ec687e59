package agents

import (
	"context"
	"strings"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
)

const SectionExecutionReport = "Execution Report"

// Admin carries out the brief with full read/write tool access.
type Admin struct {
	deps  Deps
	tools ports.ToolSet
}

func NewAdmin(deps Deps, tools ports.ToolSet) *Admin {
	return &Admin{deps: deps, tools: tools}
}

func (a *Admin) Name() string { return domain.AgentAdmin }

func (a *Admin) Run(ctx context.Context, task *domain.TaskRecord) (Signal, error) {
	text, err := a.deps.ask(ctx, a.Name(), PromptKeyAdmin, a.tools, userMessage(task.Brief()))
	if err != nil {
		return SignalFailed, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return failed(a.Name(), domain.KindValidation, "empty execution report", nil)
	}

	task.AppendSection(SectionExecutionReport, text)
	task.Status = domain.TaskStatusVerifying
	task.CurrentAgent = domain.AgentControl
	return SignalExecuted, nil
}

package agents

import (
	"context"

	"github.com/vetclinic/aiadmin/internal/domain"
)

// Analysis classifies the request and writes the task brief.
type Analysis struct {
	deps Deps
}

func NewAnalysis(deps Deps) *Analysis {
	return &Analysis{deps: deps}
}

func (a *Analysis) Name() string { return domain.AgentAnalysis }

func (a *Analysis) Run(ctx context.Context, task *domain.TaskRecord) (Signal, error) {
	text, err := a.deps.ask(ctx, a.Name(), PromptKeyAnalysis, nil, userMessage(task.UserRequest))
	if err != nil {
		return SignalFailed, err
	}

	decision, err := ParseDecision(text)
	if err != nil {
		a.deps.Log.Warnw("analysis_decision_rejected", "task_id", task.ID, "error", err)
		return SignalFailed, err
	}
	a.deps.Log.Infow("analysis_decision", "task_id", task.ID, "decision", decision.Decision, "reasoning", decision.Reasoning)

	if decision.Decision == DecisionProceed {
		task.ResultSummary = decision.TaskDescription
		task.Status = domain.TaskStatusExecuting
		task.CurrentAgent = domain.AgentAdmin
		return SignalProceed, nil
	}

	task.ResultSummary = decision.UserResponse
	task.Status = domain.TaskStatusDialogOnly
	task.CurrentAgent = domain.AgentResponse
	return SignalDialogOnly, nil
}

// Package agents holds the five pipeline stages and the text contracts
// between them.
package agents

import (
	"context"
	"errors"
	"strings"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

// Signal tells the Orchestrator which transition a stage asks for.
type Signal string

const (
	SignalProceed    Signal = "proceed"
	SignalDialogOnly Signal = "dialog_only"
	SignalExecuted   Signal = "executed"
	SignalVerified   Signal = "verified"
	SignalRetry      Signal = "retry"
	SignalReported   Signal = "reported"
	SignalResponded  Signal = "responded"
	SignalFailed     Signal = "failed"
)

// PipelineStage is one step of the fixed five-stage sequence.
//
// Run mutates task in memory; the Orchestrator persists it. A non-nil error
// is always a *domain.StageError. It comes with SignalFailed, or with
// SignalRetry when Control asks for another Admin pass.
type PipelineStage interface {
	Name() string
	Run(ctx context.Context, task *domain.TaskRecord) (Signal, error)
}

// Prompt keys, one YAML file / override namespace per stage.
const (
	PromptKeyAnalysis    = "analysis"
	PromptKeyAdmin       = "admin"
	PromptKeyControl     = "control"
	PromptKeyDescription = "description"
	PromptKeyResponse    = "response"

	// PromptSystem is the role instruction every stage loads.
	PromptSystem = "system"
)

// Deps are the collaborators shared by every stage.
type Deps struct {
	Model   ports.LanguageModel
	Prompts ports.PromptRepository
	Log     *logger.Logger
}

// ask loads the stage's role instruction and runs the model once with the
// given tools and history.
func (d Deps) ask(ctx context.Context, stage, promptKey string, tools ports.ToolSet, history []ports.Message) (string, error) {
	instruction, err := d.Prompts.Lookup(ctx, promptKey, PromptSystem)
	if err != nil {
		kind := domain.KindExternalCall
		if errors.Is(err, domain.ErrPromptNotFound) {
			kind = domain.KindNotFound
		}
		return "", domain.NewStageError(stage, kind, "load role instruction", err)
	}

	text, err := d.Model.Invoke(ctx, instruction, tools, history)
	if err != nil {
		return "", domain.NewStageError(stage, domain.KindExternalCall, "language model call failed", err)
	}
	return text, nil
}

func userMessage(content string) []ports.Message {
	return []ports.Message{{Role: ports.RoleUser, Content: content}}
}

// reviewContext is the input shared by the stages that look back at the
// whole run: the original request and everything recorded so far.
func reviewContext(task *domain.TaskRecord) []ports.Message {
	var b strings.Builder
	b.WriteString("User request:\n")
	b.WriteString(task.UserRequest)
	b.WriteString("\n\nTask summary so far:\n")
	if task.ResultSummary == "" {
		b.WriteString("(empty)")
	} else {
		b.WriteString(task.ResultSummary)
	}
	return userMessage(b.String())
}

func failed(stage string, kind domain.ErrorKind, msg string, err error) (Signal, error) {
	return SignalFailed, domain.NewStageError(stage, kind, msg, err)
}

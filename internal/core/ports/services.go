package ports

import (
	"context"
	"time"

	"github.com/vetclinic/aiadmin/internal/domain"
)

// Message roles used in the history handed to a LanguageModel.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition is what a model sees of a callable tool. Parameters is a
// JSON schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolSet is a bounded set of actions a model may call during one invocation.
// Call never fails: errors come back as text the model can read.
type ToolSet interface {
	Definitions() []ToolDefinition
	Call(ctx context.Context, name string, arguments string) string
}

// LanguageModel returns the model's final text once it stops requesting tools.
type LanguageModel interface {
	Invoke(ctx context.Context, instruction string, tools ToolSet, history []Message) (string, error)
}

type PromptRepository interface {
	Lookup(ctx context.Context, agent, name string) (string, error)
}

// ReportPublisher copies a committed report somewhere readers can fetch it.
type ReportPublisher interface {
	Publish(ctx context.Context, report *domain.Report) (string, error)
}

type Orchestrator interface {
	Run(ctx context.Context, taskID uint) error
}

type TaskService interface {
	Submit(ctx context.Context, userRequest string) (*domain.TaskRecord, error)
	GetTask(ctx context.Context, id uint) (*domain.TaskRecord, error)
	GetTaskDetails(ctx context.Context, id uint) (*TaskDetails, error)
	ListTasks(ctx context.Context, limit, offset int) ([]TaskSummary, error)
	ChatHistory(ctx context.Context, limit, offset int) ([]Message, error)
	GetEvents(ctx context.Context, id uint) ([]domain.TaskEvent, error)
	GetReport(ctx context.Context, slug string) (*domain.Report, error)
}

type TaskSummary struct {
	ID                 uint              `json:"id"`
	CreatedAt          string            `json:"created_at"`
	Status             domain.TaskStatus `json:"status"`
	UserRequestSnippet string            `json:"user_request_snippet"`
}

type TaskDetails struct {
	ID            uint              `json:"id"`
	CreatedAt     string            `json:"created_at"`
	Status        domain.TaskStatus `json:"status"`
	UserRequest   string            `json:"user_request"`
	ResultSummary string            `json:"result_summary"`
	ErrorMessage  string            `json:"error_message"`
	CurrentAgent  string            `json:"current_agent"`
	ReportSlug    *string           `json:"report_slug"`
}

// PipelineMetrics receives counters and timings from the pipeline.
type PipelineMetrics interface {
	StageFinished(stage, signal string, elapsed time.Duration)
	ToolCalled(tool, outcome string)
	ModelRequest(outcome string)
	RunFinished(status domain.TaskStatus)
}

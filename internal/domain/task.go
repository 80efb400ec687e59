package domain

import "time"

// TaskStatus is the persisted pipeline state of a TaskRecord.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusAnalyzing  TaskStatus = "analyzing"
	TaskStatusExecuting  TaskStatus = "executing"
	TaskStatusDialogOnly TaskStatus = "dialog_only"
	TaskStatusVerifying  TaskStatus = "verifying"
	TaskStatusReporting  TaskStatus = "reporting"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal reports whether no stage will ever run again for the status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Agent names as stored in TaskRecord.CurrentAgent.
const (
	AgentAnalysis    = "AnalysisAgent"
	AgentAdmin       = "AdminAgent"
	AgentControl     = "ControlAgent"
	AgentDescription = "DescriptionAgent"
	AgentResponse    = "ResponseAgent"

	// AgentCompleted marks a record no stage owns any more because it finished.
	AgentCompleted = "Completed"
)

// TaskRecord is the persisted state of one user request moving through the pipeline.
type TaskRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserRequest   string     `gorm:"type:text;not null" json:"user_request"`
	Status        TaskStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	CurrentAgent  string     `gorm:"size:50" json:"current_agent"`
	ResultSummary string     `gorm:"type:text" json:"result_summary"`
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
}

func (TaskRecord) TableName() string {
	return "task_records"
}

// Brief returns the text later stages work from: the analysis brief, or the raw request.
func (t *TaskRecord) Brief() string {
	if t.ResultSummary != "" {
		return t.ResultSummary
	}
	return t.UserRequest
}

// AppendSection adds a titled section to ResultSummary without discarding prior content.
func (t *TaskRecord) AppendSection(title, body string) {
	section := "## " + title + "\n\n" + body
	if t.ResultSummary == "" {
		t.ResultSummary = section
		return
	}
	t.ResultSummary += "\n\n" + section
}

// Report is the immutable markup artifact produced by the Description stage.
type Report struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TaskID  uint   `gorm:"not null;uniqueIndex" json:"task_id"`
	Slug    string `gorm:"size:255;not null;uniqueIndex" json:"slug"`
	Content string `gorm:"type:text;not null" json:"content"`
}

func (Report) TableName() string {
	return "task_reports"
}

package domain

import "time"

// Task timeline event types
const (
	EventTypeStageStart  = "STAGE_START"
	EventTypeStageResult = "STAGE_RESULT"
	EventTypeTaskFailed  = "TASK_FAILED"
	EventTypeTaskDone    = "TASK_COMPLETED"
)

// TaskEvent records one committed stage boundary of a TaskRecord.
type TaskEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	TaskID  uint       `gorm:"not null;index" json:"task_id"`
	Type    string     `gorm:"size:50;not null" json:"type"`
	Stage   string     `gorm:"size:50" json:"stage"`
	Status  TaskStatus `gorm:"size:20" json:"status"`
	Signal  string     `gorm:"size:30" json:"signal,omitempty"`
	Message string     `gorm:"type:text" json:"message,omitempty"`
}

func (TaskEvent) TableName() string {
	return "task_events"
}

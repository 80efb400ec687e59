package ports

import (
	"context"

	"github.com/vetclinic/aiadmin/internal/domain"
)

type TaskRepository interface {
	Create(ctx context.Context, task *domain.TaskRecord) error
	GetByID(ctx context.Context, id uint) (*domain.TaskRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.TaskRecord, error)
	ListByStatus(ctx context.Context, statuses ...domain.TaskStatus) ([]domain.TaskRecord, error)
	Update(ctx context.Context, task *domain.TaskRecord) error
	// Transition writes the record only while it is still in status from.
	// It returns domain.ErrTaskMoved when another writer got there first.
	Transition(ctx context.Context, task *domain.TaskRecord, from domain.TaskStatus) error
	// Claim atomically moves a pending record into the given stage. It returns
	// false when the record exists but is no longer pending.
	Claim(ctx context.Context, id uint, status domain.TaskStatus, agent string) (bool, error)
}

type ReportRepository interface {
	Create(ctx context.Context, report *domain.Report) error
	GetBySlug(ctx context.Context, slug string) (*domain.Report, error)
	GetByTaskID(ctx context.Context, taskID uint) (*domain.Report, error)
}

type TaskEventRepository interface {
	Create(ctx context.Context, event *domain.TaskEvent) error
	GetByTask(ctx context.Context, taskID uint) ([]domain.TaskEvent, error)
}

type SystemSettingRepository interface {
	Get(ctx context.Context, key string) (*domain.SystemSetting, error)
	Set(ctx context.Context, setting *domain.SystemSetting) error
	GetByCategory(ctx context.Context, category string) ([]domain.SystemSetting, error)
	Delete(ctx context.Context, key string) error
}

// ObjectStore is generic CRUD over the managed content kinds, addressed by
// (kind, identifier). Each call is atomic on its own; nothing spans calls.
type ObjectStore interface {
	Kinds() []string
	Describe(kind string) (*domain.KindSchema, error)
	List(ctx context.Context, kind string, filters map[string]interface{}, limit int) ([]domain.Record, error)
	Get(ctx context.Context, kind, id string) (domain.Record, error)
	Create(ctx context.Context, kind string, values map[string]interface{}) (domain.Record, error)
	Update(ctx context.Context, kind, id string, values map[string]interface{}) (domain.Record, error)
	Delete(ctx context.Context, kind, id string) error
}

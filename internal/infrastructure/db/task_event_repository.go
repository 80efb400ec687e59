package db

import (
	"context"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskEventRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskEventRepository(db *gorm.DB, log *logger.Logger) ports.TaskEventRepository {
	return &taskEventRepository{
		db:  db,
		log: log,
	}
}

func (r *taskEventRepository) Create(ctx context.Context, event *domain.TaskEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		r.log.Errorw("task_event_repo_create_failed", "task_id", event.TaskID, "type", event.Type, "stage", event.Stage, "error", err)
		return err
	}
	r.log.Debugw("task_event_repo_create_ok", "id", event.ID, "task_id", event.TaskID, "type", event.Type, "status", event.Status)
	return nil
}

// GetByTask returns a task's events oldest first.
func (r *taskEventRepository) GetByTask(ctx context.Context, taskID uint) ([]domain.TaskEvent, error) {
	events := []domain.TaskEvent{}
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at asc, id asc").
		Find(&events).Error
	if err != nil {
		r.log.Errorw("task_event_repo_get_by_task_failed", "task_id", taskID, "error", err)
		return nil, err
	}
	return events, nil
}

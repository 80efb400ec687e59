package db

import (
	"context"
	"errors"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type taskRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTaskRepository(db *gorm.DB, log *logger.Logger) ports.TaskRepository {
	return &taskRepository{db: db, log: log}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.TaskRecord) error {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		r.log.Errorw("task_repo_create_failed", "error", err)
		return err
	}
	r.log.Infow("task_repo_create_ok", "id", task.ID)
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (*domain.TaskRecord, error) {
	var task domain.TaskRecord
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		r.log.Errorw("task_repo_get_failed", "id", id, "error", err)
		return nil, err
	}
	return &task, nil
}

// List returns records newest first.
func (r *taskRepository) List(ctx context.Context, limit, offset int) ([]domain.TaskRecord, error) {
	tasks := []domain.TaskRecord{}
	q := r.db.WithContext(ctx).Order("created_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListByStatus(ctx context.Context, statuses ...domain.TaskStatus) ([]domain.TaskRecord, error) {
	tasks := []domain.TaskRecord{}
	if err := r.db.WithContext(ctx).Where("status IN ?", statuses).Order("id asc").Find(&tasks).Error; err != nil {
		r.log.Errorw("task_repo_list_by_status_failed", "error", err)
		return nil, err
	}
	return tasks, nil
}

// Update writes every persisted field, so a zero-valued ResultSummary or
// ErrorMessage is stored as such.
func (r *taskRepository) Update(ctx context.Context, task *domain.TaskRecord) error {
	res := r.db.WithContext(ctx).Model(task).Select("status", "current_agent", "result_summary", "error_message", "updated_at").Updates(task)
	if res.Error != nil {
		r.log.Errorw("task_repo_update_failed", "id", task.ID, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTaskNotFound
	}
	r.log.Infow("task_repo_update_ok", "id", task.ID, "status", task.Status, "agent", task.CurrentAgent)
	return nil
}

func (r *taskRepository) Transition(ctx context.Context, task *domain.TaskRecord, from domain.TaskStatus) error {
	res := r.db.WithContext(ctx).Model(task).
		Where("status = ?", from).
		Select("status", "current_agent", "result_summary", "error_message", "updated_at").
		Updates(task)
	if res.Error != nil {
		r.log.Errorw("task_repo_transition_failed", "id", task.ID, "from", from, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 1 {
		r.log.Infow("task_repo_transition_ok", "id", task.ID, "from", from, "status", task.Status, "agent", task.CurrentAgent)
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.TaskRecord{}).Where("id = ?", task.ID).Count(&count).Error; err != nil {
		r.log.Errorw("task_repo_transition_lookup_failed", "id", task.ID, "error", err)
		return err
	}
	if count == 0 {
		return domain.ErrTaskNotFound
	}
	r.log.Warnw("task_repo_transition_lost", "id", task.ID, "from", from, "to", task.Status)
	return domain.ErrTaskMoved
}

func (r *taskRepository) Claim(ctx context.Context, id uint, status domain.TaskStatus, agent string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.TaskRecord{}).
		Where("id = ? AND status = ?", id, domain.TaskStatusPending).
		Updates(map[string]interface{}{
			"status":        status,
			"current_agent": agent,
		})
	if res.Error != nil {
		r.log.Errorw("task_repo_claim_failed", "id", id, "error", res.Error)
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		r.log.Infow("task_repo_claim_ok", "id", id, "status", status)
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.TaskRecord{}).Where("id = ?", id).Count(&count).Error; err != nil {
		r.log.Errorw("task_repo_claim_lookup_failed", "id", id, "error", err)
		return false, err
	}
	if count == 0 {
		return false, domain.ErrTaskNotFound
	}
	return false, nil
}

package db

import (
	"context"
	"errors"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type reportRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReportRepository(db *gorm.DB, log *logger.Logger) ports.ReportRepository {
	return &reportRepository{db: db, log: log}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		r.log.Errorw("report_repo_create_failed", "task_id", report.TaskID, "slug", report.Slug, "error", err)
		return err
	}
	r.log.Infow("report_repo_create_ok", "id", report.ID, "task_id", report.TaskID, "slug", report.Slug)
	return nil
}

func (r *reportRepository) GetBySlug(ctx context.Context, slug string) (*domain.Report, error) {
	var report domain.Report
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		r.log.Errorw("report_repo_get_by_slug_failed", "slug", slug, "error", err)
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) GetByTaskID(ctx context.Context, taskID uint) (*domain.Report, error) {
	var report domain.Report
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReportNotFound
		}
		r.log.Errorw("report_repo_get_by_task_failed", "task_id", taskID, "error", err)
		return nil, err
	}
	return &report, nil
}

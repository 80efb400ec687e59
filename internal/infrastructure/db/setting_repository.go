package db

import (
	"context"
	"errors"

	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type systemSettingRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSystemSettingRepository(db *gorm.DB, log *logger.Logger) ports.SystemSettingRepository {
	return &systemSettingRepository{db: db, log: log}
}

// Get returns nil without error when the key is unset.
func (r *systemSettingRepository) Get(ctx context.Context, key string) (*domain.SystemSetting, error) {
	var setting domain.SystemSetting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("setting_repo_get_failed", "key", key, "error", err)
		return nil, err
	}
	return &setting, nil
}

func (r *systemSettingRepository) Set(ctx context.Context, setting *domain.SystemSetting) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "category", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		r.log.Errorw("setting_repo_set_failed", "key", setting.Key, "error", err)
		return err
	}
	r.log.Infow("setting_repo_set_ok", "key", setting.Key, "category", setting.Category)
	return nil
}

func (r *systemSettingRepository) GetByCategory(ctx context.Context, category string) ([]domain.SystemSetting, error) {
	var settings []domain.SystemSetting
	if err := r.db.WithContext(ctx).Where("category = ?", category).Order("key asc").Find(&settings).Error; err != nil {
		r.log.Errorw("setting_repo_get_by_category_failed", "category", category, "error", err)
		return nil, err
	}
	return settings, nil
}

func (r *systemSettingRepository) Delete(ctx context.Context, key string) error {
	if err := r.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.SystemSetting{}).Error; err != nil {
		r.log.Errorw("setting_repo_delete_failed", "key", key, "error", err)
		return err
	}
	r.log.Infow("setting_repo_delete_ok", "key", key)
	return nil
}

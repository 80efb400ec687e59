package db

import (
	"github.com/vetclinic/aiadmin/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	models := []interface{}{
		&domain.TaskRecord{},
		&domain.Report{},
		&domain.TaskEvent{},
		&domain.SystemSetting{},
	}
	for _, kind := range domain.ContentKinds() {
		models = append(models, kind.Model)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return err
	}

	return createCustomIndexes(db)
}

func createCustomIndexes(db *gorm.DB) error {
	// Timeline lookups read a task's events in insertion order
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_task_events_task_created
		ON task_events (task_id, created_at)
	`).Error; err != nil {
		return err
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_task_records_status_updated
		ON task_records (status, updated_at)
	`).Error; err != nil {
		return err
	}

	return nil
}

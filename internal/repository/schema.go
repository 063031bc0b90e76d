package repository

import (
	"context"
	"fmt"

	"filegate/internal/model"
	"filegate/internal/pkg/retry"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SchemaManager keeps the three tables structurally sound across cold
// starts: missing tables are rebuilt, missing columns added, the
// default category guaranteed, and orphaned files reattached to it.
// EnsureSchema is idempotent and safe to call on every start.
type SchemaManager struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func NewSchemaManager(db *gorm.DB, logger *zap.SugaredLogger) *SchemaManager {
	return &SchemaManager{db: db, logger: logger}
}

// EnsureSchema runs the full self-heal sequence, retried up to 3 times
// with capped exponential backoff before surfacing a fatal error.
func (m *SchemaManager) EnsureSchema(ctx context.Context) error {
	err := retry.Do(ctx, retry.DefaultAttempts, func() error {
		if err := m.heal(ctx); err != nil {
			m.logger.Errorw("schema heal attempt failed", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	return nil
}

func (m *SchemaManager) heal(ctx context.Context) error {
	db := m.db.WithContext(ctx)
	migrator := db.Migrator()

	models := []interface{}{&model.Category{}, &model.UserSetting{}, &model.File{}}

	for _, mdl := range models {
		if !migrator.HasTable(mdl) {
			m.logger.Warnw("table missing, rebuilding", "model", fmt.Sprintf("%T", mdl))
			if err := migrator.CreateTable(mdl); err != nil {
				return fmt.Errorf("create table %T: %w", mdl, err)
			}
			continue
		}
		// AutoMigrate adds any missing columns; gorm treats columns
		// that already exist as success.
		if err := db.AutoMigrate(mdl); err != nil {
			return fmt.Errorf("automigrate %T: %w", mdl, err)
		}
	}

	def, err := m.ensureDefaultCategory(db)
	if err != nil {
		return err
	}

	return m.reattachOrphans(db, def.ID)
}

// ensureDefaultCategory guarantees exactly one "default" category.
// Creation failure is re-checked once; if the row is still absent the
// error is fatal, because every new file/user binding depends on it.
func (m *SchemaManager) ensureDefaultCategory(db *gorm.DB) (*model.Category, error) {
	var def model.Category
	err := db.Where("name = ?", model.DefaultCategoryName).First(&def).Error
	if err == nil {
		return &def, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("lookup default category: %w", err)
	}

	if err := db.Create(&model.Category{Name: model.DefaultCategoryName}).Error; err != nil {
		m.logger.Errorw("failed to create default category", "error", err)
	}

	if err := db.Where("name = ?", model.DefaultCategoryName).First(&def).Error; err != nil {
		return nil, fmt.Errorf("default category still missing after create: %w", err)
	}
	return &def, nil
}

func (m *SchemaManager) reattachOrphans(db *gorm.DB, defaultID uint) error {
	res := db.Model(&model.File{}).
		Where("category_id IS NULL").
		Update("category_id", defaultID)
	if res.Error != nil {
		return fmt.Errorf("reattach orphaned files: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		m.logger.Infow("reattached orphaned files to default category", "count", res.RowsAffected)
	}

	return db.Model(&model.UserSetting{}).
		Where("current_category_id IS NOT NULL AND current_category_id NOT IN (?)",
			db.Model(&model.Category{}).Select("id")).
		Update("current_category_id", defaultID).Error
}

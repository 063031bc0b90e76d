package repository

import (
	"testing"

	"filegate/internal/model"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

// newTestDB opens an in-memory SQLite (modernc.org/sqlite, no cgo) for
// repository tests.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file::memory:"}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := db.AutoMigrate(&model.Category{}, &model.UserSetting{}, &model.File{}); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}

func mustCreateDefaultCategory(t *testing.T, db *gorm.DB) *model.Category {
	t.Helper()
	def := &model.Category{Name: model.DefaultCategoryName}
	if err := db.Create(def).Error; err != nil {
		t.Fatalf("failed to create default category: %v", err)
	}
	return def
}

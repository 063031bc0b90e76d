package repository

import (
	"fmt"
	"strings"

	"filegate/internal/model"

	"gorm.io/gorm"
)

type FileRepository interface {
	Create(file *model.File) error
	FindByID(id uint) (*model.File, error)
	// FindByName returns the most recently created row when several
	// files share a name.
	FindByName(name string) (*model.File, error)
	FindByBackendRef(ref string) (*model.File, error)
	List(categoryID *uint) ([]model.File, error)
	Search(query string) ([]model.File, error)
	// UpdateRename flips (backend_ref, message_ref, file_name) as one
	// statement so the row never mixes old and new pointers.
	UpdateRename(id uint, name, backendRef string, messageRef int) error
	UpdateRemark(id uint, remark string) error
	UpdateCategory(id uint, categoryID *uint) error
	Delete(id uint) error
	// ReattachCategory moves every file of a deleted category to the
	// default one.
	ReattachCategory(categoryID, defaultID uint) error
	// StatsByChat returns file count and total byte size owned by a chat.
	StatsByChat(chatID int64) (int64, int64, error)
}

type fileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &fileRepository{db: db}
}

func (r *fileRepository) Create(file *model.File) error {
	return r.db.Create(file).Error
}

func (r *fileRepository) FindByID(id uint) (*model.File, error) {
	var file model.File
	if err := r.db.First(&file, id).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindByName(name string) (*model.File, error) {
	var file model.File
	err := r.db.Where("file_name = ?", name).Order("created_at DESC").First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) FindByBackendRef(ref string) (*model.File, error) {
	var file model.File
	if err := r.db.Where("backend_ref = ?", ref).First(&file).Error; err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *fileRepository) List(categoryID *uint) ([]model.File, error) {
	var files []model.File
	q := r.db.Order("created_at DESC")
	if categoryID != nil {
		q = q.Where("category_id = ?", *categoryID)
	}
	if err := q.Find(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepository) Search(query string) ([]model.File, error) {
	var files []model.File
	pattern := fmt.Sprint("%" + strings.ToLower(query) + "%")
	err := r.db.
		Where("LOWER(file_name) LIKE ? OR LOWER(remark) LIKE ?", pattern, pattern).
		Order("created_at DESC").
		Find(&files).Error
	if err != nil {
		return nil, err
	}
	return files, nil
}

func (r *fileRepository) UpdateRename(id uint, name, backendRef string, messageRef int) error {
	return r.db.Model(&model.File{}).Where("id = ?", id).Updates(map[string]interface{}{
		"file_name":   name,
		"backend_ref": backendRef,
		"message_ref": messageRef,
	}).Error
}

func (r *fileRepository) UpdateRemark(id uint, remark string) error {
	return r.db.Model(&model.File{}).Where("id = ?", id).Update("remark", remark).Error
}

func (r *fileRepository) UpdateCategory(id uint, categoryID *uint) error {
	return r.db.Model(&model.File{}).Where("id = ?", id).Update("category_id", categoryID).Error
}

func (r *fileRepository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&model.File{}, id).Error
}

func (r *fileRepository) ReattachCategory(categoryID, defaultID uint) error {
	return r.db.Model(&model.File{}).
		Where("category_id = ?", categoryID).
		Update("category_id", defaultID).Error
}

func (r *fileRepository) StatsByChat(chatID int64) (int64, int64, error) {
	var count int64
	if err := r.db.Model(&model.File{}).Where("chat_id = ?", chatID).Count(&count).Error; err != nil {
		return 0, 0, err
	}

	var size struct{ Total int64 }
	err := r.db.Model(&model.File{}).
		Select("COALESCE(SUM(file_size), 0) AS total").
		Where("chat_id = ?", chatID).
		Scan(&size).Error
	if err != nil {
		return 0, 0, err
	}

	return count, size.Total, nil
}

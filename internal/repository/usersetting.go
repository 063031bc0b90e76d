package repository

import (
	"errors"

	"filegate/internal/model"

	"gorm.io/gorm"
)

type UserSettingRepository interface {
	// GetOrCreate returns the settings row for a chat, creating it
	// with defaults on first contact.
	GetOrCreate(chatID int64) (*model.UserSetting, error)
	Save(setting *model.UserSetting) error
	// ResetCategory repoints every user whose current category matches
	// the given id back to the default category.
	ResetCategory(categoryID, defaultID uint) error
}

type userSettingRepository struct {
	db *gorm.DB
}

func NewUserSettingRepository(db *gorm.DB) UserSettingRepository {
	return &userSettingRepository{db: db}
}

func (r *userSettingRepository) GetOrCreate(chatID int64) (*model.UserSetting, error) {
	var setting model.UserSetting
	err := r.db.Where("chat_id = ?", chatID).First(&setting).Error
	if err == nil {
		return &setting, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	setting = model.UserSetting{
		ChatID:      chatID,
		StorageType: model.StorageTelegram,
		WaitingFor:  model.StateIdle,
	}
	if err := r.db.Create(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *userSettingRepository) Save(setting *model.UserSetting) error {
	// Save writes all fields so cleared state (empty WaitingFor, nil
	// EditingFileID) is persisted too.
	return r.db.Save(setting).Error
}

func (r *userSettingRepository) ResetCategory(categoryID, defaultID uint) error {
	return r.db.Model(&model.UserSetting{}).
		Where("current_category_id = ?", categoryID).
		Update("current_category_id", defaultID).Error
}

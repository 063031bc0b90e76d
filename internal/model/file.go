package model

import (
	"fmt"

	"gorm.io/gorm"
)

// StorageType selects which backend holds a file's bytes.
type StorageType string

const (
	StorageS3       StorageType = "s3"
	StorageTelegram StorageType = "telegram"
)

func (s StorageType) Valid() bool {
	return s == StorageS3 || s == StorageTelegram
}

// File is a stored object plus the metadata needed to serve it back.
// BackendRef is opaque: an S3 object key or a Telegram file_id.
// MessageRef is the Telegram message id holding the attachment, 0 for S3.
type File struct {
	gorm.Model
	FileName    string      `gorm:"not null;index" json:"file_name"`
	FileSize    int64       `json:"file_size"`
	MimeType    string      `json:"mime_type"`
	StorageType StorageType `gorm:"not null" json:"storage_type"`
	BackendRef  string      `gorm:"not null;index" json:"-"`
	MessageRef  int         `json:"-"`
	CategoryID  *uint       `gorm:"index" json:"category_id"`
	ChatID      int64       `gorm:"index" json:"chat_id"`
	Remark      string      `json:"remark"`
}

// URL derives the stable public address a file is served under.
func (f *File) URL(domain string) string {
	return fmt.Sprintf("https://%s/%s", domain, f.FileName)
}

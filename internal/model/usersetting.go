package model

import "gorm.io/gorm"

// DialogueState says how the next free-text message from a chat is
// interpreted. Set before prompting the user, cleared after the reply
// is consumed or on unrelated navigation.
type DialogueState string

const (
	StateIdle         DialogueState = ""
	StateNewCategory  DialogueState = "new_category"
	StateRenameTarget DialogueState = "rename_target"
	StateNewSuffix    DialogueState = "new_suffix"
	StateDeleteTarget DialogueState = "delete_file"
)

// UserSetting holds per-chat bot state. One row per chat, created
// lazily on first interaction.
type UserSetting struct {
	gorm.Model
	ChatID            int64       `gorm:"uniqueIndex;not null"`
	StorageType       StorageType `gorm:"not null;default:telegram"`
	CurrentCategoryID *uint
	WaitingFor        DialogueState `gorm:"not null;default:''"`
	EditingFileID     *uint
}

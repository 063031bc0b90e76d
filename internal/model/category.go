package model

import "gorm.io/gorm"

// DefaultCategoryName is the always-present fallback category. Files and
// user pointers are reattached to it whenever their own category is removed.
const DefaultCategoryName = "default"

type Category struct {
	gorm.Model
	Name string `gorm:"uniqueIndex;not null" json:"name"`
}

func (c *Category) IsDefault() bool {
	return c.Name == DefaultCategoryName
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag represents a tag a user can apply to their recipes.
// Name uniqueness per user (case-insensitive) is enforced by the handlers,
// not by the schema.
type Tag struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`

	// Relationships
	Recipes []Recipe `gorm:"many2many:recipe_tags;" json:"recipes,omitempty"`
}

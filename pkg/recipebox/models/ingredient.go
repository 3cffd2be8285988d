package models

import (
	"time"

	"gorm.io/gorm"
)

// Ingredient represents an ingredient a user can attach to their recipes.
// Same ownership and naming rules as Tag.
type Ingredient struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	Name      string         `gorm:"not null" json:"name"`

	// Relationships
	Recipes []Recipe `gorm:"many2many:recipe_ingredients;" json:"recipes,omitempty"`
}

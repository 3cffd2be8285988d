package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Recipe represents a recipe owned by a user
type Recipe struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
	UserID      uint            `gorm:"not null;index" json:"user_id"`
	Title       string          `gorm:"not null" json:"title"`
	TimeMinutes int             `gorm:"not null" json:"time_minutes"`
	Price       decimal.Decimal `gorm:"type:decimal(5,2)" json:"price"`
	Link        string          `json:"link"`
	Description string          `json:"description"`
	Image       string          `json:"image"` // path under the media root, empty if none

	// Relationships
	User        User         `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Tags        []Tag        `gorm:"many2many:recipe_tags;" json:"tags,omitempty"`
	Ingredients []Ingredient `gorm:"many2many:recipe_ingredients;" json:"ingredients,omitempty"`
}

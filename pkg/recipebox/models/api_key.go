package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey represents an opaque bearer token for programmatic access.
// Only the SHA-256 hash is stored; the prefix identifies the key in listings.
type APIKey struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	KeyHash    string         `gorm:"not null" json:"-"`
	KeyPrefix  string         `gorm:"not null" json:"key_prefix"`
	Label      string         `json:"label"`
	LastUsedAt *time.Time     `json:"last_used_at"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

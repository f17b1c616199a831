package models

import "time"

// Content publication states.
const (
	ContentStatusDraft     = "draft"
	ContentStatusPublished = "published"
	ContentStatusArchived  = "archived"
)

// Content is a protected entry gated behind a valid card.
type Content struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Title       string `gorm:"type:varchar(100);not null"`
	Description string `gorm:"type:varchar(255)"`
	Body        string `gorm:"type:text;not null"`

	Status string `gorm:"type:varchar(16);not null;default:'draft'"` // draft, published or archived.

	CreatedBy uint64 `gorm:"not null"` // Authoring admin.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

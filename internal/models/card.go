package models

import (
	"time"

	"gorm.io/datatypes"
)

// Card types recognized by the duration policy.
const (
	CardTypeDay    = "day"
	CardTypeMonth  = "month"
	CardTypeYear   = "year"
	CardTypeCustom = "custom"
)

// Card lifecycle states.
const (
	CardStatusUnused  = "unused"
	CardStatusUsed    = "used"
	CardStatusExpired = "expired"
)

// Card represents a time-limited access code.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Code         string `gorm:"type:varchar(32);not null;uniqueIndex"` // Unique card code.
	Type         string `gorm:"type:varchar(16);not null;default:'month'"`
	DurationDays int    `gorm:"not null;default:30"` // Validity window in days once activated.

	Status string `gorm:"type:varchar(16);not null;default:'unused';index"` // unused, used or expired.

	ActivatedAt *time.Time // Activation time; nil until activated.
	ExpiresAt   *time.Time // Expiry time; set together with ActivatedAt.

	BoundUserInfo datatypes.JSON `gorm:"type:jsonb"` // Metadata captured at activation, write-once.

	AssignedUserID *uint64 `gorm:"index"`                       // User the card is bound to, if any.
	AssignedUser   *User   `gorm:"foreignKey:AssignedUserID"`   // Bound user record.
	CreatedBy      uint64  `gorm:"not null;index"`              // Issuing admin.
	Creator        *User   `gorm:"foreignKey:CreatedBy"`        // Issuer record.
	Remark         string  `gorm:"type:varchar(255)"`           // Free-form note.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// Activated reports whether the card has been activated.
func (c *Card) Activated() bool {
	return c.ActivatedAt != nil
}

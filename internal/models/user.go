package models

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleSuper = "super"
)

// User represents an administrator or issuer account.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:varchar(50);not null;uniqueIndex"` // Unique login name.
	Password string `gorm:"type:text;not null"`                    // Hashed password.
	Email    string `gorm:"type:varchar(255)"`                     // Contact email, optional.

	Role   string `gorm:"type:varchar(16);not null;default:'admin'"` // admin or super.
	Active bool   `gorm:"not null;default:true"`                     // Whether the user can sign in.

	TelegramID string `gorm:"type:varchar(64);index"` // Telegram principal allowed to use bot commands.
	TOTPSecret string `gorm:"type:text"`              // TOTP secret for MFA, empty when disabled.

	LastLoginAt *time.Time // Last successful login, if any.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// IsSuper reports whether the user holds the super role.
func (u *User) IsSuper() bool {
	return u.Role == RoleSuper
}

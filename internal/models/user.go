package models

import (
	"time"

	"github.com/civilregistry/backend/internal/authz"
)

// User is an account in the identity store
type User struct {
	Base
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName    string     `gorm:"type:varchar(100)" json:"firstName"`
	LastName     string     `gorm:"type:varchar(100)" json:"lastName"`
	PasswordHash string     `gorm:"type:varchar(255);not null" json:"-"`
	Role         authz.Role `gorm:"type:varchar(20);not null;default:'applicant'" json:"role"`
	MFAEnabled   bool       `gorm:"default:false" json:"mfaEnabled"`
	MFASecret    string     `gorm:"type:varchar(64)" json:"-"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// IsAdmin reports whether the account holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == authz.RoleAdmin
}

package models

import (
	"github.com/google/uuid"
)

// Biometric stores an opaque biometric capture for a user
type Biometric struct {
	Base
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	ApplicationID *uuid.UUID `gorm:"type:uuid;index" json:"applicationId,omitempty"`
	CapturedBy    uuid.UUID  `gorm:"type:uuid;not null" json:"capturedBy"`
	BiometricData JSON       `gorm:"type:jsonb;not null" json:"biometricData"`
}

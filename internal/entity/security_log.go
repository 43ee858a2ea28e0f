package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SecurityAction string

const (
	LoginSuccess         SecurityAction = "login_success"
	LoginFailed          SecurityAction = "login_failed"
	Logout               SecurityAction = "logout"
	Reset                SecurityAction = "password_reset"
	ResetRequested       SecurityAction = "password_reset_requested"
	MFAFailed            SecurityAction = "mfa_failed"
	SessionRevoked       SecurityAction = "session_revoked"
	RegistrationVerified SecurityAction = "registration_verified"
	AccountDeleted       SecurityAction = "account_deleted"
)

type SecurityLog struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserID *uuid.UUID `gorm:"type:uuid;index"`

	IPAddress *string        `gorm:"type:varchar(45)"`
	Action    SecurityAction `gorm:"type:varchar(32);not null"`

	Metadata datatypes.JSON

	CreatedAt time.Time
}

func (l *SecurityLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendingUser is a sign-up waiting for its emailed code. Only the bcrypt hash
// of the password is ever stored.
type PendingUser struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:text;not null"`
	FirstName    string    `gorm:"type:varchar(100);not null"`
	LastName     string    `gorm:"type:varchar(100);not null"`

	CodeHash  string    `gorm:"type:text;not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	Attempts  int       `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PendingUser) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *PendingUser) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

func (p *PendingUser) Locked(maxAttempts int) bool {
	return maxAttempts > 0 && p.Attempts >= maxAttempts
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TaskID      *uuid.UUID `gorm:"type:uuid;index"`
	SenderID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;index"`

	Body   string `gorm:"type:text;not null"`
	ReadAt *time.Time

	CreatedAt time.Time
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

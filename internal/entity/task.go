package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskOpen     TaskStatus = "open"
	TaskAssigned TaskStatus = "assigned"
	TaskClosed   TaskStatus = "closed"
)

type Task struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`

	Title       string     `gorm:"type:varchar(200);not null"`
	Description string     `gorm:"type:text;not null"`
	BudgetCents int64      `gorm:"not null"`
	Status      TaskStatus `gorm:"type:varchar(16);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Task) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = TaskOpen
	}
	return nil
}

package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Bid struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TaskID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_task_bidder"`
	BidderID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bids_task_bidder;index"`

	AmountCents int64  `gorm:"not null"`
	Note        string `gorm:"type:text;not null"`

	CreatedAt time.Time
}

func (b *Bid) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

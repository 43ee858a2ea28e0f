package repository

import (
	"context"

	"jobly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidRepository interface {
	Create(ctx context.Context, bid *entity.Bid) error
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]entity.Bid, error)
	ExistsForBidder(ctx context.Context, taskID, bidderID uuid.UUID) (bool, error)
	// DeleteByUser removes the user's own bids and every bid on tasks they own.
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type bidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) BidRepository {
	return &bidRepository{db: db}
}

func (r *bidRepository) Create(ctx context.Context, bid *entity.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

func (r *bidRepository) ListByTask(ctx context.Context, taskID uuid.UUID) ([]entity.Bid, error) {
	var bids []entity.Bid
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *bidRepository) ExistsForBidder(ctx context.Context, taskID, bidderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Bid{}).
		Where("task_id = ? AND bidder_id = ?", taskID, bidderID).
		Count(&count).Error
	return count > 0, err
}

func (r *bidRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	owned := r.db.Model(&entity.Task{}).Select("id").Where("owner_id = ?", userID)
	return r.db.WithContext(ctx).
		Where("bidder_id = ? OR task_id IN (?)", userID, owned).
		Delete(&entity.Bid{}).
		Error
}

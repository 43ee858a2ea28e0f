package repository

import (
	"context"

	"jobly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Message, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Message, error) {
	var messages []entity.Message
	query := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	owned := r.db.Model(&entity.Task{}).Select("id").Where("owner_id = ?", userID)
	return r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ? OR task_id IN (?)", userID, userID, owned).
		Delete(&entity.Message{}).
		Error
}

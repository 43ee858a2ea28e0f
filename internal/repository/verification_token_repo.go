package repository

import (
	"context"
	"errors"
	"time"

	"jobly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationTokenRepository interface {
	Create(ctx context.Context, token *entity.VerificationToken) error
	FindValid(ctx context.Context, tokenHash string, tokenType entity.VerificationType, now time.Time) (*entity.VerificationToken, error)
	// MarkUsed is a conditional update; it reports false when another caller
	// already consumed the token.
	MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	InvalidateForUser(ctx context.Context, userID uuid.UUID, tokenType entity.VerificationType, now time.Time) error
	DeleteByUser(ctx context.Context, userID uuid.UUID) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationTokenRepository struct {
	db *gorm.DB
}

func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, t *entity.VerificationToken) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *verificationTokenRepository) FindValid(
	ctx context.Context,
	tokenHash string,
	tokenType entity.VerificationType,
	now time.Time,
) (*entity.VerificationToken, error) {

	var token entity.VerificationToken
	err := r.db.WithContext(ctx).
		Where(`
			token_hash = ? AND
			type = ? AND
			used_at IS NULL AND
			expires_at > ?
		`, tokenHash, tokenType, now).
		First(&token).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *verificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("id = ? AND used_at IS NULL AND expires_at > ?", id, now).
		Update("used_at", now)
	return result.RowsAffected == 1, result.Error
}

func (r *verificationTokenRepository) InvalidateForUser(
	ctx context.Context,
	userID uuid.UUID,
	tokenType entity.VerificationType,
	now time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&entity.VerificationToken{}).
		Where("user_id = ? AND type = ? AND used_at IS NULL", userID, tokenType).
		Update("used_at", now).
		Error
}

func (r *verificationTokenRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&entity.VerificationToken{}).
		Error
}

func (r *verificationTokenRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ? OR used_at IS NOT NULL", now).
		Delete(&entity.VerificationToken{})
	return result.RowsAffected, result.Error
}

package repository

import (
	"context"
	"errors"
	"time"

	"jobly/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PendingUserRepository interface {
	// CreateOrReplaceExpired stores pending unless an unexpired registration
	// for the same email exists. It reports whether pending was stored.
	CreateOrReplaceExpired(ctx context.Context, pending *entity.PendingUser, now time.Time) (bool, error)
	// ReissueCode swaps the code and clears its attempt count. The expiry is kept.
	ReissueCode(ctx context.Context, id uuid.UUID, codeHash string) error
	FindByEmail(ctx context.Context, email string) (*entity.PendingUser, error)
	FindActiveByCodeHash(ctx context.Context, codeHash string, now time.Time, maxAttempts int) (*entity.PendingUser, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) error
	// Consume deletes the row only while it still matches the code, is
	// unexpired and unlocked. It reports whether this call removed it.
	Consume(ctx context.Context, id uuid.UUID, codeHash string, now time.Time, maxAttempts int) (bool, error)
	DeleteByEmail(ctx context.Context, email string) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type pendingUserRepository struct {
	db *gorm.DB
}

func NewPendingUserRepository(db *gorm.DB) PendingUserRepository {
	return &pendingUserRepository{db: db}
}

func (r *pendingUserRepository) CreateOrReplaceExpired(ctx context.Context, pending *entity.PendingUser, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "pending_users.expires_at <= ?", Vars: []any{now}},
			}},
			DoUpdates: clause.AssignmentColumns([]string{
				"password_hash",
				"first_name",
				"last_name",
				"code_hash",
				"expires_at",
				"attempts",
				"updated_at",
			}),
		}).
		Create(pending)
	return result.RowsAffected > 0, result.Error
}

func (r *pendingUserRepository) ReissueCode(ctx context.Context, id uuid.UUID, codeHash string) error {
	return r.db.WithContext(ctx).
		Model(&entity.PendingUser{}).
		Where("id = ?", id).
		Updates(map[string]any{"code_hash": codeHash, "attempts": 0}).
		Error
}

func (r *pendingUserRepository) FindByEmail(ctx context.Context, email string) (*entity.PendingUser, error) {
	var pending entity.PendingUser
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&pending).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *pendingUserRepository) FindActiveByCodeHash(
	ctx context.Context,
	codeHash string,
	now time.Time,
	maxAttempts int,
) (*entity.PendingUser, error) {
	var pending entity.PendingUser
	err := r.db.WithContext(ctx).
		Where("code_hash = ? AND expires_at > ? AND attempts < ?", codeHash, now, maxAttempts).
		Order("created_at DESC").
		First(&pending).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

func (r *pendingUserRepository) IncrementAttempts(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&entity.PendingUser{}).
		Where("id = ?", id).
		UpdateColumn("attempts", gorm.Expr("attempts + 1")).
		Error
}

func (r *pendingUserRepository) Consume(
	ctx context.Context,
	id uuid.UUID,
	codeHash string,
	now time.Time,
	maxAttempts int,
) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND code_hash = ? AND expires_at > ? AND attempts < ?", id, codeHash, now, maxAttempts).
		Delete(&entity.PendingUser{})
	return result.RowsAffected == 1, result.Error
}

func (r *pendingUserRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&entity.PendingUser{}).
		Error
}

func (r *pendingUserRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&entity.PendingUser{})
	return result.RowsAffected, result.Error
}

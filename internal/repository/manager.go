package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories groups every gorm repository bound to the same handle, either
// the pool or an open transaction.
type Repositories struct {
	Users         UserRepository
	Pending       PendingUserRepository
	Verifications VerificationTokenRepository
	MFASecrets    MFASecretRepository
	SecurityLogs  SecurityLogRepository
	Tasks         TaskRepository
	Bids          BidRepository
	Messages      MessageRepository
}

type Manager interface {
	Repositories() Repositories
	Transaction(ctx context.Context, fn func(repos Repositories) error) error
}

type gormManager struct {
	db    *gorm.DB
	repos Repositories
}

func NewManager(db *gorm.DB) Manager {
	return &gormManager{db: db, repos: bind(db)}
}

func (m *gormManager) Repositories() Repositories {
	return m.repos
}

func (m *gormManager) Transaction(ctx context.Context, fn func(repos Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(bind(tx))
	})
}

func bind(db *gorm.DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Pending:       NewPendingUserRepository(db),
		Verifications: NewVerificationTokenRepository(db),
		MFASecrets:    NewMFASecretRepository(db),
		SecurityLogs:  NewSecurityLogRepository(db),
		Tasks:         NewTaskRepository(db),
		Bids:          NewBidRepository(db),
		Messages:      NewMessageRepository(db),
	}
}

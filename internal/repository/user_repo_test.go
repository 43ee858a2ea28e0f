package repository

import (
	"context"
	"errors"
	"testing"

	"jobly/internal/entity"
	"jobly/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) *entity.User {
	hash := "hash"
	return &entity.User{
		Email:         email,
		PasswordHash:  &hash,
		FirstName:     "Alice",
		LastName:      "Liddell",
		EmailVerified: true,
		IsActive:      true,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewDB(t))

	user := newUser("alice@example.com")
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, entity.UserRoleUser, user.Role)

	byEmail, err := repo.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alice Liddell", byID.DisplayName())

	missing, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.Error(t, repo.Create(ctx, newUser("alice@example.com")))
}

func TestUserRepository_GitHubLookup(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.NewDB(t))

	githubID := int64(4242)
	user := newUser("octo@example.com")
	user.PasswordHash = nil
	user.GitHubID = &githubID
	require.NoError(t, repo.Create(ctx, user))

	found, err := repo.FindByGitHubID(ctx, githubID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Nil(t, found.PasswordHash)
}

func TestUserRepository_DeleteCascadeInTransaction(t *testing.T) {
	ctx := context.Background()
	manager := NewManager(testutil.NewDB(t))
	repos := manager.Repositories()

	owner := newUser("owner@example.com")
	bidder := newUser("bidder@example.com")
	require.NoError(t, repos.Users.Create(ctx, owner))
	require.NoError(t, repos.Users.Create(ctx, bidder))

	task := &entity.Task{OwnerID: owner.ID, Title: "Fix sink", Description: "Leaks", BudgetCents: 5000}
	require.NoError(t, repos.Tasks.Create(ctx, task))
	require.NoError(t, repos.Bids.Create(ctx, &entity.Bid{TaskID: task.ID, BidderID: bidder.ID, AmountCents: 4500}))
	require.NoError(t, repos.Messages.Create(ctx, &entity.Message{
		TaskID:      &task.ID,
		SenderID:    bidder.ID,
		RecipientID: owner.ID,
		Body:        "I can help",
	}))

	// a failing callback rolls everything back
	boom := errors.New("boom")
	err := manager.Transaction(ctx, func(tx Repositories) error {
		if _, err := tx.Users.Delete(ctx, owner.ID); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	still, err := repos.Users.FindByID(ctx, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, still)

	err = manager.Transaction(ctx, func(tx Repositories) error {
		if err := tx.Bids.DeleteByUser(ctx, owner.ID); err != nil {
			return err
		}
		if err := tx.Messages.DeleteByUser(ctx, owner.ID); err != nil {
			return err
		}
		if err := tx.Tasks.DeleteByOwner(ctx, owner.ID); err != nil {
			return err
		}
		_, err := tx.Users.Delete(ctx, owner.ID)
		return err
	})
	require.NoError(t, err)

	bids, err := repos.Bids.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)

	messages, err := repos.Messages.ListForUser(ctx, bidder.ID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)

	gone, err := repos.Tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := repos.Users.FindByID(ctx, bidder.ID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

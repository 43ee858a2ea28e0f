package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"jobly/internal/entity"
	"jobly/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrTaskNotOpen   = newAuthError(CodeInvalidInput, "task is not accepting bids", http.StatusConflict)
	ErrOwnTask       = newAuthError(CodeInvalidInput, "you cannot bid on your own task", http.StatusBadRequest)
	ErrDuplicateBid  = newAuthError(CodeInvalidInput, "you already bid on this task", http.StatusConflict)
	ErrSelfMessage   = newAuthError(CodeInvalidInput, "you cannot message yourself", http.StatusBadRequest)
	ErrUnknownMember = newAuthError(CodeNotFound, "recipient not found", http.StatusNotFound)
)

type CreateTaskInput struct {
	Title       string
	Description string
	BudgetCents int64
}

type PlaceBidInput struct {
	AmountCents int64
	Note        string
}

type SendMessageInput struct {
	RecipientID uuid.UUID
	TaskID      *uuid.UUID
	Body        string
}

type MarketplaceService struct {
	repos repository.Manager
}

func NewMarketplaceService(repos repository.Manager) *MarketplaceService {
	return &MarketplaceService{repos: repos}
}

func (s *MarketplaceService) ListTasks(ctx context.Context, status entity.TaskStatus, limit, offset int) ([]entity.Task, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repos.Repositories().Tasks.List(ctx, status, limit, offset)
}

func (s *MarketplaceService) GetTask(ctx context.Context, id uuid.UUID) (*entity.Task, error) {
	task, err := s.repos.Repositories().Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("lookup task: %w", err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	return task, nil
}

func (s *MarketplaceService) CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*entity.Task, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" || input.BudgetCents <= 0 {
		return nil, ErrInvalidInput
	}
	task := &entity.Task{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		BudgetCents: input.BudgetCents,
		Status:      entity.TaskOpen,
	}
	if err := s.repos.Repositories().Tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

func (s *MarketplaceService) PlaceBid(ctx context.Context, bidderID uuid.UUID, taskID uuid.UUID, input PlaceBidInput) (*entity.Bid, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidInput
	}
	var bid *entity.Bid
	err := s.repos.Transaction(ctx, func(tx repository.Repositories) error {
		task, err := tx.Tasks.FindByID(ctx, taskID)
		if err != nil {
			return err
		}
		if task == nil {
			return ErrNotFound
		}
		if task.OwnerID == bidderID {
			return ErrOwnTask
		}
		if task.Status != entity.TaskOpen {
			return ErrTaskNotOpen
		}
		exists, err := tx.Bids.ExistsForBidder(ctx, taskID, bidderID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateBid
		}
		bid = &entity.Bid{
			TaskID:      taskID,
			BidderID:    bidderID,
			AmountCents: input.AmountCents,
			Note:        strings.TrimSpace(input.Note),
		}
		return tx.Bids.Create(ctx, bid)
	})
	if err != nil {
		if _, ok := AsAuthError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("place bid: %w", err)
	}
	return bid, nil
}

// ListBids returns the bids on a task. Only the task owner may see them.
func (s *MarketplaceService) ListBids(ctx context.Context, requesterID uuid.UUID, taskID uuid.UUID) ([]entity.Bid, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != requesterID {
		return nil, ErrForbidden
	}
	return s.repos.Repositories().Bids.ListByTask(ctx, taskID)
}

func (s *MarketplaceService) SendMessage(ctx context.Context, senderID uuid.UUID, input SendMessageInput) (*entity.Message, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" || input.RecipientID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	if input.RecipientID == senderID {
		return nil, ErrSelfMessage
	}

	repos := s.repos.Repositories()
	recipient, err := repos.Users.FindByID(ctx, input.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("lookup recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrUnknownMember
	}
	if input.TaskID != nil {
		if _, err := s.GetTask(ctx, *input.TaskID); err != nil {
			return nil, err
		}
	}

	message := &entity.Message{
		TaskID:      input.TaskID,
		SenderID:    senderID,
		RecipientID: input.RecipientID,
		Body:        body,
	}
	if err := repos.Messages.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return message, nil
}

func (s *MarketplaceService) ListMessages(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repos.Repositories().Messages.ListForUser(ctx, userID, limit, offset)
}

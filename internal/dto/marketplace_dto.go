package dto

import (
	"time"

	"jobly/internal/entity"
)

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"required,max=10000"`
	BudgetCents int64  `json:"budgetCents" validate:"required,gt=0"`
}

type PlaceBidRequest struct {
	AmountCents int64  `json:"amountCents" validate:"required,gt=0"`
	Note        string `json:"note" validate:"max=2000"`
}

type SendMessageRequest struct {
	RecipientID string  `json:"recipientId" validate:"required,uuid"`
	TaskID      *string `json:"taskId" validate:"omitempty,uuid"`
	Body        string  `json:"body" validate:"required,max=5000"`
}

type TaskResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BudgetCents int64     `json:"budgetCents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

type BidResponse struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId"`
	BidderID    string    `json:"bidderId"`
	AmountCents int64     `json:"amountCents"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"createdAt"`
}

type MessageItemResponse struct {
	ID          string     `json:"id"`
	TaskID      *string    `json:"taskId,omitempty"`
	SenderID    string     `json:"senderId"`
	RecipientID string     `json:"recipientId"`
	Body        string     `json:"body"`
	ReadAt      *time.Time `json:"readAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func TaskResponseFromEntity(task *entity.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID.String(),
		OwnerID:     task.OwnerID.String(),
		Title:       task.Title,
		Description: task.Description,
		BudgetCents: task.BudgetCents,
		Status:      string(task.Status),
		CreatedAt:   task.CreatedAt,
	}
}

func TaskResponsesFromEntities(tasks []entity.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, TaskResponseFromEntity(&tasks[i]))
	}
	return out
}

func BidResponseFromEntity(bid *entity.Bid) BidResponse {
	return BidResponse{
		ID:          bid.ID.String(),
		TaskID:      bid.TaskID.String(),
		BidderID:    bid.BidderID.String(),
		AmountCents: bid.AmountCents,
		Note:        bid.Note,
		CreatedAt:   bid.CreatedAt,
	}
}

func BidResponsesFromEntities(bids []entity.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for i := range bids {
		out = append(out, BidResponseFromEntity(&bids[i]))
	}
	return out
}

func MessageResponseFromEntity(message *entity.Message) MessageItemResponse {
	out := MessageItemResponse{
		ID:          message.ID.String(),
		SenderID:    message.SenderID.String(),
		RecipientID: message.RecipientID.String(),
		Body:        message.Body,
		ReadAt:      message.ReadAt,
		CreatedAt:   message.CreatedAt,
	}
	if message.TaskID != nil {
		taskID := message.TaskID.String()
		out.TaskID = &taskID
	}
	return out
}

func MessageResponsesFromEntities(messages []entity.Message) []MessageItemResponse {
	out := make([]MessageItemResponse, 0, len(messages))
	for i := range messages {
		out = append(out, MessageResponseFromEntity(&messages[i]))
	}
	return out
}

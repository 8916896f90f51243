package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

const defaultInboxLimit = 50

type messageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	ListInbox(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) (bool, error)
}

// MessageService sends and reads direct messages. Whether a sender may reach a
// recipient is decided by the messaging policy on the route.
type MessageService struct {
	repo      messageRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs a MessageService.
func NewMessageService(repo messageRepository, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MessageService{repo: repo, validator: validate, logger: logger}
}

// Send stores a message from senderID.
func (s *MessageService) Send(ctx context.Context, senderID string, req dto.SendMessageRequest) (*models.Message, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Body = strings.TrimSpace(req.Body)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "recipient, subject and body are required")
	}
	if req.RecipientID == senderID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	msg := &models.Message{
		SenderID:    &senderID,
		RecipientID: req.RecipientID,
		Subject:     req.Subject,
		Body:        req.Body,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to send message")
	}
	return msg, nil
}

// Inbox lists the messages addressed to recipientID, newest first.
func (s *MessageService) Inbox(ctx context.Context, recipientID string, query dto.InboxQuery) ([]models.Message, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "limit must be between 1 and 200")
	}
	limit := query.Limit
	if limit == 0 {
		limit = defaultInboxLimit
	}
	messages, err := s.repo.ListInbox(ctx, recipientID, query.UnreadOnly, limit)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to load inbox")
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// MarkRead marks one of the recipient's messages as read.
func (s *MessageService) MarkRead(ctx context.Context, recipientID, messageID string) error {
	ok, err := s.repo.MarkRead(ctx, messageID, recipientID, time.Now().UTC())
	if err != nil {
		return appErrors.ErrInternal.WithCause(err, "failed to update message")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "message not found")
	}
	return nil
}

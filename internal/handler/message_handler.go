package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/response"
)

type messageService interface {
	Send(ctx context.Context, senderID string, req dto.SendMessageRequest) (*models.Message, error)
	Inbox(ctx context.Context, recipientID string, query dto.InboxQuery) ([]models.Message, error)
	MarkRead(ctx context.Context, recipientID, messageID string) error
}

// MessageHandler serves direct messages.
type MessageHandler struct {
	service messageService
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(svc messageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// Send godoc
// @Summary Send a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body dto.SendMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid message payload"))
		return
	}
	// The recipient the policy approved is authoritative.
	if recipient := policyRequest(c).Recipient; recipient != nil {
		req.RecipientID = recipient.ID
	}

	msg, err := h.service.Send(c.Request.Context(), subject.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// Inbox godoc
// @Summary List own messages
// @Tags Messages
// @Produce json
// @Param unread query bool false "Only unread"
// @Param limit query int false "Max messages"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /messages [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	var query dto.InboxQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid inbox query"))
		return
	}
	messages, err := h.service.Inbox(c.Request.Context(), subject.ID, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, map[string]interface{}{"total": len(messages)})
}

// MarkRead godoc
// @Summary Mark a message as read
// @Tags Messages
// @Param messageId path string true "Message ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /messages/{messageId}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	if err := h.service.MarkRead(c.Request.Context(), subject.ID, c.Param("messageId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

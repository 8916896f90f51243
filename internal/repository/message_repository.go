package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/otpas-api/internal/models"
)

// MessageRepository persists direct messages and system notifications.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, sender_id, recipient_id, subject, body, read_at, created_at) VALUES (:id, :sender_id, :recipient_id, :subject, :body, :read_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// ListInbox returns the newest messages addressed to recipientID.
func (r *MessageRepository) ListInbox(ctx context.Context, recipientID string, unreadOnly bool, limit int) ([]models.Message, error) {
	query := `SELECT id, sender_id, recipient_id, subject, body, read_at, created_at FROM messages WHERE recipient_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`
	var messages []models.Message
	if err := r.db.SelectContext(ctx, &messages, query, recipientID, limit); err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return messages, nil
}

// MarkRead stamps read_at on a message owned by recipientID. It reports false
// when no such message exists.
func (r *MessageRepository) MarkRead(ctx context.Context, id, recipientID string, readAt time.Time) (bool, error) {
	const query = `UPDATE messages SET read_at = COALESCE(read_at, $3) WHERE id = $1 AND recipient_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, recipientID, readAt)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark message read rows: %w", err)
	}
	return affected > 0, nil
}

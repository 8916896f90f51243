package models

import "time"

// Message is a direct message between two users. System notifications have no sender.
type Message struct {
	ID          string     `db:"id" json:"id"`
	SenderID    *string    `db:"sender_id" json:"sender_id,omitempty"`
	RecipientID string     `db:"recipient_id" json:"recipient_id"`
	Subject     string     `db:"subject" json:"subject"`
	Body        string     `db:"body" json:"body"`
	ReadAt      *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

package dto

// SendMessageRequest is a direct message to another user.
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Subject     string `json:"subject" validate:"required,max=200"`
	Body        string `json:"body" validate:"required,max=10000"`
}

// InboxQuery filters the caller's inbox.
type InboxQuery struct {
	UnreadOnly bool `form:"unread"`
	Limit      int  `form:"limit" validate:"omitempty,min=1,max=200"`
}

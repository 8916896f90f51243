package dto

import "io"

// SubmitTitleRequest is the student's title proposal.
type SubmitTitleRequest struct {
	InstructorID *string `json:"instructorId" validate:"omitempty,max=64"`
	Title        string  `json:"title" validate:"required,max=255"`
	Description  string  `json:"description" validate:"required,min=20"`
}

// RejectProjectRequest optionally explains a rejection.
type RejectProjectRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=1000"`
}

// CreateEvaluationRequest records an instructor's assessment.
type CreateEvaluationRequest struct {
	Type     string  `json:"type" validate:"required,oneof=proposal progress final"`
	Score    float64 `json:"score" validate:"gte=0,lte=100"`
	Feedback string  `json:"feedback" validate:"max=5000"`
	Draft    bool    `json:"draft"`
}

// FileUpload is an uploaded file as handed from the HTTP layer to a service.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

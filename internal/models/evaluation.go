package models

import "time"

// EvaluationStatus tracks whether an evaluation is still being edited.
type EvaluationStatus string

const (
	EvaluationStatusDraft     EvaluationStatus = "draft"
	EvaluationStatusSubmitted EvaluationStatus = "submitted"
)

// Evaluation is an instructor's assessment of a project. One row exists per (project, type).
type Evaluation struct {
	ID          string           `db:"id" json:"id"`
	ProjectID   string           `db:"project_id" json:"project_id"`
	EvaluatorID string           `db:"evaluator_id" json:"evaluator_id"`
	Type        string           `db:"type" json:"type"`
	Score       float64          `db:"score" json:"score"`
	Feedback    string           `db:"feedback" json:"feedback"`
	Status      EvaluationStatus `db:"status" json:"status"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/otpas-api/internal/models"
)

// EvaluationRepository persists project evaluations.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Upsert stores the evaluation, replacing an earlier one of the same type for
// the project recorded by the same evaluator. It returns sql.ErrNoRows when
// another evaluator already holds that type.
func (r *EvaluationRepository) Upsert(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	const query = `
INSERT INTO evaluations (id, project_id, evaluator_id, type, score, feedback, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
ON CONFLICT (project_id, type) DO UPDATE
SET evaluator_id = EXCLUDED.evaluator_id, score = EXCLUDED.score, feedback = EXCLUDED.feedback,
    status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
WHERE evaluations.evaluator_id = EXCLUDED.evaluator_id
RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query,
		evaluation.ID,
		evaluation.ProjectID,
		evaluation.EvaluatorID,
		evaluation.Type,
		evaluation.Score,
		evaluation.Feedback,
		evaluation.Status,
		now,
	)
	if err := row.Scan(&evaluation.ID, &evaluation.CreatedAt, &evaluation.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("upsert evaluation: %w", err)
	}
	return nil
}

// ListByProject returns every evaluation of a project.
func (r *EvaluationRepository) ListByProject(ctx context.Context, projectID string) ([]models.Evaluation, error) {
	const query = `SELECT id, project_id, evaluator_id, type, score, feedback, status, created_at, updated_at FROM evaluations WHERE project_id = $1 ORDER BY type`
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, projectID); err != nil {
		return nil, fmt.Errorf("list evaluations: %w", err)
	}
	return evaluations, nil
}

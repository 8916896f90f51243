package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/otpas-api/internal/models"
)

// TutorialRepository reads tutorials and stores their materials.
type TutorialRepository struct {
	db *sqlx.DB
}

// NewTutorialRepository constructs the repository.
func NewTutorialRepository(db *sqlx.DB) *TutorialRepository {
	return &TutorialRepository{db: db}
}

// FindByID returns a tutorial or sql.ErrNoRows.
func (r *TutorialRepository) FindByID(ctx context.Context, id string) (*models.Tutorial, error) {
	const query = `SELECT id, course_id, title, is_published, created_at FROM tutorials WHERE id = $1`
	var tutorial models.Tutorial
	if err := r.db.GetContext(ctx, &tutorial, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find tutorial: %w", err)
	}
	return &tutorial, nil
}

// CreateMaterial records an uploaded tutorial file.
func (r *TutorialRepository) CreateMaterial(ctx context.Context, material *models.TutorialMaterial) error {
	if material.ID == "" {
		material.ID = uuid.NewString()
	}
	if material.CreatedAt.IsZero() {
		material.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO tutorial_materials (id, tutorial_id, uploaded_by, file_path, original_name, mime_type, size_bytes, created_at) VALUES (:id, :tutorial_id, :uploaded_by, :file_path, :original_name, :mime_type, :size_bytes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, material); err != nil {
		return fmt.Errorf("create tutorial material: %w", err)
	}
	return nil
}

// ListMaterials returns a tutorial's materials in upload order.
func (r *TutorialRepository) ListMaterials(ctx context.Context, tutorialID string) ([]models.TutorialMaterial, error) {
	const query = `SELECT id, tutorial_id, uploaded_by, file_path, original_name, mime_type, size_bytes, created_at FROM tutorial_materials WHERE tutorial_id = $1 ORDER BY created_at`
	var materials []models.TutorialMaterial
	if err := r.db.SelectContext(ctx, &materials, query, tutorialID); err != nil {
		return nil, fmt.Errorf("list tutorial materials: %w", err)
	}
	return materials, nil
}

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

const projectColumns = `id, student_id, instructor_id, title, description, status, rejection_reason, reviewed_by, reviewed_at, created_at, updated_at`

// ProjectRepository persists projects and their uploaded files.
type ProjectRepository struct {
	db *sqlx.DB
}

// NewProjectRepository constructs the repository.
func NewProjectRepository(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID returns a project or sql.ErrNoRows.
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var project models.Project
	if err := r.db.GetContext(ctx, &project, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find project: %w", err)
	}
	return &project, nil
}

// ListByStudent returns a student's projects, newest first.
func (r *ProjectRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE student_id = $1 ORDER BY created_at DESC`
	var projects []models.Project
	if err := r.db.SelectContext(ctx, &projects, query, studentID); err != nil {
		return nil, fmt.Errorf("list student projects: %w", err)
	}
	return projects, nil
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	project.UpdatedAt = now

	const query = `INSERT INTO projects (id, student_id, instructor_id, title, description, status, created_at, updated_at) VALUES (:id, :student_id, :instructor_id, :title, :description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, project); err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// UpdateStatus applies a review in one statement. The row only changes while
// it still holds review.From; the boolean is false when another writer got there first.
func (r *ProjectRepository) UpdateStatus(ctx context.Context, review models.ProjectReview) (bool, error) {
	const query = `UPDATE projects SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = $6`
	result, err := r.db.ExecContext(ctx, query, review.ProjectID, review.To, review.Reason, review.ReviewerID, review.ReviewedAt, review.From)
	if err != nil {
		return false, fmt.Errorf("update project status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update project status rows: %w", err)
	}
	return affected == 1, nil
}

// CreateFile records an uploaded project document.
func (r *ProjectRepository) CreateFile(ctx context.Context, file *models.ProjectFile) error {
	if file.ID == "" {
		file.ID = uuid.NewString()
	}
	if file.CreatedAt.IsZero() {
		file.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO project_files (id, project_id, uploaded_by, file_path, original_name, mime_type, size_bytes, created_at) VALUES (:id, :project_id, :uploaded_by, :file_path, :original_name, :mime_type, :size_bytes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, file); err != nil {
		return fmt.Errorf("create project file: %w", err)
	}
	return nil
}

// ListByDepartment returns the projects of every student in a department.
func (r *ProjectRepository) ListByDepartment(ctx context.Context, departmentID string) ([]models.DepartmentProjectRow, error) {
	const query = `
SELECT p.id AS project_id, p.title, p.status, p.student_id, s.full_name AS student_name,
       i.full_name AS instructor_name, p.created_at
FROM projects p
JOIN users s ON s.id = p.student_id
LEFT JOIN users i ON i.id = p.instructor_id
WHERE s.department_id = $1
ORDER BY p.created_at DESC`
	var rows []models.DepartmentProjectRow
	if err := r.db.SelectContext(ctx, &rows, query, departmentID); err != nil {
		return nil, fmt.Errorf("list department projects: %w", err)
	}
	return rows, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AssignmentRepository answers the relation lookups used for authorization:
// instructor to student, department head to department and instructor to course.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// Exists reports whether the instructor is assigned to the student.
func (r *AssignmentRepository) Exists(ctx context.Context, instructorID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM instructor_students WHERE instructor_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, instructorID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor assignment: %w", err)
	}
	return true, nil
}

// FindDepartmentByHead returns the department a head is mapped to, or sql.ErrNoRows.
func (r *AssignmentRepository) FindDepartmentByHead(ctx context.Context, userID string) (string, error) {
	const query = `SELECT department_id FROM department_heads WHERE user_id = $1 LIMIT 1`
	var departmentID string
	if err := r.db.GetContext(ctx, &departmentID, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("find department by head: %w", err)
	}
	return departmentID, nil
}

// CourseLinkExists reports whether an active instructor to course link exists.
func (r *AssignmentRepository) CourseLinkExists(ctx context.Context, courseID, instructorID string) (bool, error) {
	const query = `SELECT 1 FROM course_instructors WHERE course_id = $1 AND instructor_id = $2 AND active = TRUE LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, instructorID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check course link: %w", err)
	}
	return true, nil
}

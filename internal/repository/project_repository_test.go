package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/models"
)

func TestProjectFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "student_id", "instructor_id", "title", "description", "status", "rejection_reason", "reviewed_by", "reviewed_at", "created_at", "updated_at"}).
		AddRow("p-1", "s-1", "i-1", "Thesis", "A description long enough", "approved", nil, "i-1", now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + projectColumns + " FROM projects WHERE id = $1")).
		WithArgs("p-1").
		WillReturnRows(rows)

	project, err := repo.FindByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusApproved, project.Status)
	assert.Nil(t, project.RejectionReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	mock.ExpectExec("INSERT INTO projects").
		WithArgs(sqlmock.AnyArg(), "s-1", nil, "Thesis", "A description long enough", models.ProjectStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	project := &models.Project{StudentID: "s-1", Title: "Thesis", Description: "A description long enough", Status: models.ProjectStatusPending}
	require.NoError(t, repo.Create(context.Background(), project))
	assert.NotEmpty(t, project.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectUpdateStatusIsConditional(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	query := regexp.QuoteMeta(`UPDATE projects SET status = $2, rejection_reason = $3, reviewed_by = $4, reviewed_at = $5, updated_at = $5 WHERE id = $1 AND status = $6`)
	now := time.Now().UTC()
	review := models.ProjectReview{ProjectID: "p-1", ReviewerID: "i-1", From: models.ProjectStatusPending, To: models.ProjectStatusApproved, ReviewedAt: now}

	mock.ExpectExec(query).
		WithArgs("p-1", models.ProjectStatusApproved, nil, "i-1", now, models.ProjectStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("p-1", models.ProjectStatusApproved, nil, "i-1", now, models.ProjectStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.UpdateStatus(context.Background(), review)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = repo.UpdateStatus(context.Background(), review)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectListByDepartment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProjectRepository(db)

	rows := sqlmock.NewRows([]string{"project_id", "title", "status", "student_id", "student_name", "instructor_name", "created_at"}).
		AddRow("p-1", "Thesis", "pending", "s-1", "Student One", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.department_id = $1")).WithArgs("3").WillReturnRows(rows)

	list, err := repo.ListByDepartment(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Student One", list[0].StudentName)
	assert.Nil(t, list[0].InstructorName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

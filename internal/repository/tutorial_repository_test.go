package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/models"
)

func TestTutorialFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTutorialRepository(db)

	query := regexp.QuoteMeta(`SELECT id, course_id, title, is_published, created_at FROM tutorials WHERE id = $1`)
	mock.ExpectQuery(query).WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "title", "is_published", "created_at"}).AddRow("t-1", "c-1", "Intro", true, time.Now()))
	mock.ExpectQuery(query).WithArgs("t-2").WillReturnError(sql.ErrNoRows)

	tutorial, err := repo.FindByID(context.Background(), "t-1")
	require.NoError(t, err)
	assert.True(t, tutorial.IsPublished)
	assert.Equal(t, "c-1", tutorial.CourseID)

	_, err = repo.FindByID(context.Background(), "t-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTutorialMaterials(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewTutorialRepository(db)

	mock.ExpectExec("INSERT INTO tutorial_materials").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM tutorial_materials WHERE tutorial_id = $1")).WithArgs("t-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "tutorial_id", "uploaded_by", "file_path", "original_name", "mime_type", "size_bytes", "created_at"}).
			AddRow("m-1", "t-1", "i-1", "tutorials/t-1/m-1.pdf", "notes.pdf", "application/pdf", 1024, time.Now()))

	material := &models.TutorialMaterial{TutorialID: "t-1", UploadedBy: "i-1", FilePath: "tutorials/t-1/m-1.pdf", OriginalName: "notes.pdf", MimeType: "application/pdf", SizeBytes: 1024}
	require.NoError(t, repo.CreateMaterial(context.Background(), material))
	assert.NotEmpty(t, material.ID)

	list, err := repo.ListMaterials(context.Background(), "t-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

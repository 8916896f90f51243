package service

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
)

type stubDepartmentProjects struct {
	rows  map[string][]models.DepartmentProjectRow
	calls int
}

func (s *stubDepartmentProjects) ListByDepartment(_ context.Context, departmentID string) ([]models.DepartmentProjectRow, error) {
	s.calls++
	return s.rows[departmentID], nil
}

type stubUsers map[string]*models.User

func (s stubUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newDepartmentFixture(enabled bool) (*DepartmentService, *stubDepartmentProjects, *memoryCacheRepo) {
	instructorName := "Dr. Rivera"
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	projects := &stubDepartmentProjects{rows: map[string][]models.DepartmentProjectRow{
		"d1": {
			{ProjectID: "p1", Title: "Soil sensors", Status: models.ProjectStatusApproved, StudentID: "s1", StudentName: "Ana", InstructorName: &instructorName, CreatedAt: created},
			{ProjectID: "p2", Title: "Bus routing", Status: models.ProjectStatusPending, StudentID: "s2", StudentName: "Ben", CreatedAt: created},
		},
	}}
	dept := "d1"
	users := stubUsers{"s1": {ID: "s1", Role: models.RoleStudent, DepartmentID: &dept}}
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, CacheConfig{Enabled: true, DefaultTTL: time.Minute}, nil)
	svc := NewDepartmentService(projects, users, cache, DepartmentConfig{ReportsEnabled: enabled, CacheTTL: time.Minute}, nil, nil, nil)
	return svc, projects, repo
}

func TestDepartmentReportCountsAndCaches(t *testing.T) {
	svc, projects, _ := newDepartmentFixture(true)

	report, cached, err := svc.Report(context.Background(), "d1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, report.Totals[models.ProjectStatusApproved])
	assert.Equal(t, 1, report.Totals[models.ProjectStatusPending])
	assert.Equal(t, 0, report.Totals[models.ProjectStatusRejected])

	again, cached, err := svc.Report(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Len(t, again.Projects, 2)
	assert.Equal(t, 1, projects.calls)
}

func TestDepartmentReportInvalidatedForStudent(t *testing.T) {
	svc, projects, repo := newDepartmentFixture(true)

	_, _, err := svc.Report(context.Background(), "d1")
	require.NoError(t, err)
	require.Contains(t, repo.entries, ReportCacheKey("d1"))

	svc.InvalidateForStudent(context.Background(), "s1")
	assert.NotContains(t, repo.entries, ReportCacheKey("d1"))

	svc.InvalidateForStudent(context.Background(), "unknown")

	_, cached, err := svc.Report(context.Background(), "d1")
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, projects.calls)
}

func TestDepartmentReportDisabled(t *testing.T) {
	svc, _, _ := newDepartmentFixture(false)

	_, _, err := svc.Report(context.Background(), "d1")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestDepartmentRenderCSV(t *testing.T) {
	svc, _, _ := newDepartmentFixture(true)

	rendered, err := svc.Render(context.Background(), "d1", dto.ReportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", rendered.ContentType)
	assert.True(t, strings.HasSuffix(rendered.Filename, ".csv"))
	body := string(rendered.Body)
	assert.Contains(t, body, "Soil sensors")
	assert.Contains(t, body, "Dr. Rivera")

	_, err = svc.Render(context.Background(), "d1", dto.ReportFormat("xlsx"))
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestDepartmentListProjectsEmpty(t *testing.T) {
	svc, _, _ := newDepartmentFixture(true)

	rows, err := svc.ListProjects(context.Background(), "d9")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/export"
)

type departmentProjectLister interface {
	ListByDepartment(ctx context.Context, departmentID string) ([]models.DepartmentProjectRow, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type reportCache interface {
	Remember(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func(context.Context) error) (bool, error)
	Invalidate(ctx context.Context, keys ...string) error
}

type datasetRenderer interface {
	ContentType() string
	Render(data export.Dataset) ([]byte, error)
}

// DepartmentConfig tunes department reporting.
type DepartmentConfig struct {
	ReportsEnabled bool
	CacheTTL       time.Duration
}

// DepartmentService serves department-scoped project listings and reports.
type DepartmentService struct {
	projects departmentProjectLister
	users    userLookup
	cache    reportCache
	csv      datasetRenderer
	pdf      datasetRenderer
	logger   *zap.Logger
	cfg      DepartmentConfig
	now      func() time.Time
}

// NewDepartmentService constructs a DepartmentService. Nil renderers fall back to the default exporters.
func NewDepartmentService(projects departmentProjectLister, users userLookup, cache reportCache, cfg DepartmentConfig, logger *zap.Logger, csv, pdf datasetRenderer) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &DepartmentService{
		projects: projects,
		users:    users,
		cache:    cache,
		csv:      csv,
		pdf:      pdf,
		logger:   logger,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ReportCacheKey is the cache key of a department's report dataset.
func ReportCacheKey(departmentID string) string {
	return "report:department:" + departmentID
}

// ListProjects returns the projects of a department's students.
func (s *DepartmentService) ListProjects(ctx context.Context, departmentID string) ([]models.DepartmentProjectRow, error) {
	rows, err := s.projects.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list department projects")
	}
	if rows == nil {
		rows = []models.DepartmentProjectRow{}
	}
	return rows, nil
}

// Report builds the department summary, served from cache when possible.
func (s *DepartmentService) Report(ctx context.Context, departmentID string) (*dto.DepartmentReport, bool, error) {
	if !s.cfg.ReportsEnabled {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "department reports are disabled")
	}

	if s.cache == nil {
		report, err := s.buildReport(ctx, departmentID)
		return report, false, err
	}
	var report dto.DepartmentReport
	cached, err := s.cache.Remember(ctx, ReportCacheKey(departmentID), &report, s.cfg.CacheTTL, func(ctx context.Context) error {
		built, err := s.buildReport(ctx, departmentID)
		if err != nil {
			return err
		}
		report = *built
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &report, cached, nil
}

func (s *DepartmentService) buildReport(ctx context.Context, departmentID string) (*dto.DepartmentReport, error) {
	rows, err := s.ListProjects(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	report := &dto.DepartmentReport{
		DepartmentID: departmentID,
		GeneratedAt:  s.now(),
		Totals: map[models.ProjectStatus]int{
			models.ProjectStatusPending:  0,
			models.ProjectStatusApproved: 0,
			models.ProjectStatusRejected: 0,
		},
		Projects: rows,
	}
	for _, row := range rows {
		report.Totals[row.Status]++
	}
	return report, nil
}

// Render serialises the department report as CSV or PDF.
func (s *DepartmentService) Render(ctx context.Context, departmentID string, format dto.ReportFormat) (*dto.RenderedReport, error) {
	var renderer datasetRenderer
	var ext string
	switch format {
	case dto.ReportFormatCSV:
		renderer, ext = s.csv, "csv"
	case dto.ReportFormatPDF:
		renderer, ext = s.pdf, "pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
	}

	report, _, err := s.Report(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(reportDataset(report))
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to render report")
	}
	return &dto.RenderedReport{
		Filename:    fmt.Sprintf("department-%s-projects-%s.%s", departmentID, report.GeneratedAt.Format("20060102"), ext),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// InvalidateForStudent drops the cached report of the student's department.
// Failures are logged; the cache entry then expires on its TTL.
func (s *DepartmentService) InvalidateForStudent(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		s.logger.Warn("report cache invalidation skipped", zap.String("student_id", studentID), zap.Error(err))
		return
	}
	if user.DepartmentID == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ReportCacheKey(*user.DepartmentID)); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.String("department_id", *user.DepartmentID), zap.Error(err))
	}
}

func reportDataset(report *dto.DepartmentReport) export.Dataset {
	data := export.Dataset{
		Title:   fmt.Sprintf("Department %s projects", report.DepartmentID),
		Headers: []string{"Project", "Title", "Status", "Student", "Instructor", "Submitted"},
	}
	for _, row := range report.Projects {
		instructor := "unassigned"
		if row.InstructorName != nil {
			instructor = *row.InstructorName
		}
		data.Rows = append(data.Rows, map[string]string{
			"Project":    row.ProjectID,
			"Title":      row.Title,
			"Status":     string(row.Status),
			"Student":    row.StudentName,
			"Instructor": instructor,
			"Submitted":  row.CreatedAt.Format("2006-01-02"),
		})
	}
	return data
}

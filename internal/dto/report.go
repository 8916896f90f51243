package dto

import (
	"time"

	"github.com/noah-isme/otpas-api/internal/models"
)

// ReportFormat selects how a department report is rendered.
type ReportFormat string

const (
	ReportFormatJSON ReportFormat = "json"
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatPDF  ReportFormat = "pdf"
)

// DepartmentReportQuery is the query string of the department report endpoint.
type DepartmentReportQuery struct {
	Format ReportFormat `form:"format" validate:"omitempty,oneof=json csv pdf"`
}

// DepartmentReport summarises a department's projects.
type DepartmentReport struct {
	DepartmentID string                        `json:"departmentId"`
	GeneratedAt  time.Time                     `json:"generatedAt"`
	Totals       map[models.ProjectStatus]int  `json:"totals"`
	Projects     []models.DepartmentProjectRow `json:"projects"`
}

// RenderedReport is a report serialised into a downloadable file.
type RenderedReport struct {
	Filename    string
	ContentType string
	Body        []byte
}

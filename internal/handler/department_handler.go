package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/middleware"
	"github.com/noah-isme/otpas-api/internal/models"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/response"
)

type departmentService interface {
	ListProjects(ctx context.Context, departmentID string) ([]models.DepartmentProjectRow, error)
	Report(ctx context.Context, departmentID string) (*dto.DepartmentReport, bool, error)
	Render(ctx context.Context, departmentID string, format dto.ReportFormat) (*dto.RenderedReport, error)
}

// DepartmentHandler serves department-scoped listings and reports. The
// department always comes from the caller's head mapping.
type DepartmentHandler struct {
	service departmentService
}

// NewDepartmentHandler constructs a DepartmentHandler.
func NewDepartmentHandler(svc departmentService) *DepartmentHandler {
	return &DepartmentHandler{service: svc}
}

// ListProjects godoc
// @Summary List projects of the department
// @Tags Departments
// @Produce json
// @Param departmentId path string true "Department ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /departments/{departmentId}/projects [get]
func (h *DepartmentHandler) ListProjects(c *gin.Context) {
	departmentID := policyRequest(c).DepartmentID
	if departmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "department scope was not resolved"))
		return
	}
	rows, err := h.service.ListProjects(c.Request.Context(), departmentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"departmentId": departmentID, "total": len(rows)})
}

// Report godoc
// @Summary Department project report
// @Tags Departments
// @Produce json,text/csv,application/pdf
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /department/reports/projects [get]
func (h *DepartmentHandler) Report(c *gin.Context) {
	departmentID := policyRequest(c).DepartmentID
	if departmentID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "department scope was not resolved"))
		return
	}

	var query dto.DepartmentReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid report query"))
		return
	}

	switch query.Format {
	case "", dto.ReportFormatJSON:
		report, cached, err := h.service.Report(c.Request.Context(), departmentID)
		if err != nil {
			response.Error(c, err)
			return
		}
		middleware.SetCacheHit(c, cached)
		response.JSON(c, http.StatusOK, report, middleware.ExtractMeta(c))
	case dto.ReportFormatCSV, dto.ReportFormatPDF:
		rendered, err := h.service.Render(c.Request.Context(), departmentID, query.Format)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", rendered.Filename))
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, rendered.ContentType, rendered.Body)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
	}
}

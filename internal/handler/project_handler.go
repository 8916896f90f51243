package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/response"
)

type projectService interface {
	SubmitTitle(ctx context.Context, actor policy.Subject, req dto.SubmitTitleRequest) (*models.Project, error)
	ListMine(ctx context.Context, actor policy.Subject) ([]models.Project, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.Project, error)
	Approve(ctx context.Context, actor policy.Subject, projectID string) (*models.Project, error)
	Reject(ctx context.Context, actor policy.Subject, projectID string, req dto.RejectProjectRequest) (*models.Project, error)
	UploadFile(ctx context.Context, actor policy.Subject, projectID string, upload dto.FileUpload) (*models.ProjectFile, error)
	CreateEvaluation(ctx context.Context, actor policy.Subject, projectID string, req dto.CreateEvaluationRequest) (*models.Evaluation, error)
	ListEvaluations(ctx context.Context, projectID string) ([]models.Evaluation, error)
}

// ProjectHandler exposes the project title workflow.
type ProjectHandler struct {
	service projectService
}

// NewProjectHandler constructs a ProjectHandler.
func NewProjectHandler(svc projectService) *ProjectHandler {
	return &ProjectHandler{service: svc}
}

// Submit godoc
// @Summary Submit a project title
// @Tags Projects
// @Accept json
// @Produce json
// @Param payload body dto.SubmitTitleRequest true "Title proposal"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /projects [post]
func (h *ProjectHandler) Submit(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	var req dto.SubmitTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid project payload"))
		return
	}

	project, err := h.service.SubmitTitle(c.Request.Context(), subject, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// ListMine godoc
// @Summary List own projects
// @Tags Projects
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/mine [get]
func (h *ProjectHandler) ListMine(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	projects, err := h.service.ListMine(c.Request.Context(), subject)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, map[string]interface{}{"total": len(projects)})
}

// ListForStudent godoc
// @Summary List an assigned student's projects
// @Tags Projects
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /students/{studentId}/projects [get]
func (h *ProjectHandler) ListForStudent(c *gin.Context) {
	studentID := policyRequest(c).StudentID
	if studentID == "" {
		studentID = c.Param(policy.ParamStudentID)
	}
	projects, err := h.service.ListForStudent(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, projects, map[string]interface{}{"total": len(projects)})
}

// Approve godoc
// @Summary Approve a pending project title
// @Tags Projects
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{projectId}/approve [post]
func (h *ProjectHandler) Approve(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	project, err := h.service.Approve(c.Request.Context(), subject, c.Param(policy.ParamProjectID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project)
}

// Reject godoc
// @Summary Reject a pending project title
// @Tags Projects
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param payload body dto.RejectProjectRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{projectId}/reject [post]
func (h *ProjectHandler) Reject(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	var req dto.RejectProjectRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid rejection payload"))
			return
		}
	}
	project, err := h.service.Reject(c.Request.Context(), subject, c.Param(policy.ParamProjectID), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, project)
}

// Upload godoc
// @Summary Upload a document for an approved project
// @Tags Projects
// @Accept multipart/form-data
// @Produce json
// @Param projectId path string true "Project ID"
// @Param file formData file true "Document"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{projectId}/files [post]
func (h *ProjectHandler) Upload(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	upload, file, err := formUpload(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	stored, err := h.service.UploadFile(c.Request.Context(), subject, c.Param(policy.ParamProjectID), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, stored)
}

// CreateEvaluation godoc
// @Summary Record an evaluation
// @Tags Evaluations
// @Accept json
// @Produce json
// @Param projectId path string true "Project ID"
// @Param payload body dto.CreateEvaluationRequest true "Evaluation"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{projectId}/evaluations [post]
func (h *ProjectHandler) CreateEvaluation(c *gin.Context) {
	subject, ok := subjectFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrMissingCredential)
		return
	}
	var req dto.CreateEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.ErrValidation.WithCause(err, "invalid evaluation payload"))
		return
	}
	evaluation, err := h.service.CreateEvaluation(c.Request.Context(), subject, c.Param(policy.ParamProjectID), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, evaluation)
}

// ListEvaluations godoc
// @Summary List a project's evaluations
// @Tags Evaluations
// @Produce json
// @Param projectId path string true "Project ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /projects/{projectId}/evaluations [get]
func (h *ProjectHandler) ListEvaluations(c *gin.Context) {
	evaluations, err := h.service.ListEvaluations(c.Request.Context(), c.Param(policy.ParamProjectID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, evaluations)
}

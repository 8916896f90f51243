package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	"github.com/noah-isme/otpas-api/internal/service"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
	"github.com/noah-isme/otpas-api/pkg/response"
)

type tutorialService interface {
	UploadMaterial(ctx context.Context, actorID, tutorialID string, upload dto.FileUpload) (*models.TutorialMaterial, error)
	ListMaterials(ctx context.Context, tutorialID string, level models.AccessLevel) (*service.TutorialMaterials, error)
}

// TutorialHandler serves tutorial materials.
type TutorialHandler struct {
	service tutorialService
}

// NewTutorialHandler constructs a TutorialHandler.
func NewTutorialHandler(svc tutorialService) *TutorialHandler {
	return &TutorialHandler{service: svc}
}

// UploadMaterial godoc
// @Summary Upload tutorial material
// @Tags Tutorials
// @Accept multipart/form-data
// @Produce json
// @Param tutorialId path string true "Tutorial ID"
// @Param file formData file true "Material"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tutorials/{tutorialId}/materials [post]
func (h *TutorialHandler) UploadMaterial(c *gin.Context) {
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

	material, err := h.service.UploadMaterial(c.Request.Context(), subject.ID, c.Param(policy.ParamTutorialID), upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, material)
}

// ListMaterials godoc
// @Summary List tutorial materials
// @Description The response meta carries the caller's access level.
// @Tags Tutorials
// @Produce json
// @Param tutorialId path string true "Tutorial ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /tutorials/{tutorialId}/materials [get]
func (h *TutorialHandler) ListMaterials(c *gin.Context) {
	level := policyRequest(c).AccessLevel
	result, err := h.service.ListMaterials(c.Request.Context(), c.Param(policy.ParamTutorialID), level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"accessLevel": level})
}

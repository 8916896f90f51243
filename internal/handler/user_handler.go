package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	"github.com/noah-isme/otpas-api/pkg/response"
)

type profileService interface {
	Profile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// UserHandler serves account lookups.
type UserHandler struct {
	service profileService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc profileService) *UserHandler {
	return &UserHandler{service: svc}
}

// Get godoc
// @Summary Get own account
// @Tags Users
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /users/{userId} [get]
func (h *UserHandler) Get(c *gin.Context) {
	profile, err := h.service.Profile(c.Request.Context(), c.Param(policy.ParamUserID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile)
}

package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/models"
)

func TestUserServiceProfile(t *testing.T) {
	dept := "d1"
	svc := NewUserService(stubUsers{"h1": {ID: "h1", Email: "head@example.com", FullName: "Head", Role: models.RoleDepartmentHead, DepartmentID: &dept, PasswordHash: "secret"}}, nil)

	profile, err := svc.Profile(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDepartmentHead, profile.Role)
	assert.Equal(t, &dept, profile.DepartmentID)

	_, err = svc.Profile(context.Background(), "nobody")
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

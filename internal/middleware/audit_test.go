package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
)

type memoryAudit struct {
	logs []*models.AuditLog
	err  error
}

func (m *memoryAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func auditRouter(recorder *memoryAudit, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/messages", func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})
		c.Set(ContextPolicyRequestKey, policy.NewRequest(policy.Subject{ID: "s1", Role: models.RoleStudent}, map[string]string{policy.ParamRecipientID: "i1"}))
		c.Next()
	}, Audit(recorder, nil, "MESSAGE_SEND", "message"), func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	recorder := &memoryAudit{}
	router := auditRouter(recorder, http.StatusCreated)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/messages", nil))

	require.Len(t, recorder.logs, 1)
	entry := recorder.logs[0]
	assert.Equal(t, "MESSAGE_SEND", entry.Action)
	require.NotNil(t, entry.UserID)
	assert.Equal(t, "s1", *entry.UserID)
	require.NotNil(t, entry.ResourceID)
	assert.Equal(t, "i1", *entry.ResourceID)
	assert.Contains(t, string(entry.NewValues), `"status":201`)
}

func TestAuditSkipsFailuresAndToleratesStoreErrors(t *testing.T) {
	recorder := &memoryAudit{}
	auditRouter(recorder, http.StatusForbidden).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/messages", nil))
	assert.Empty(t, recorder.logs)

	failing := &memoryAudit{err: errors.New("insert failed")}
	w := httptest.NewRecorder()
	auditRouter(failing, http.StatusCreated).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/messages", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

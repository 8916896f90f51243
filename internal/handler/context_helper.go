package handler

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/middleware"
	"github.com/noah-isme/otpas-api/internal/policy"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

const uploadField = "file"

func subjectFromContext(c *gin.Context) (policy.Subject, bool) {
	subject := middleware.CurrentSubject(c)
	return subject, subject.ID != ""
}

// policyRequest returns the request the route's Authorize evaluated, or a bare
// request for the caller when the route has none.
func policyRequest(c *gin.Context) *policy.Request {
	if req, ok := middleware.PolicyRequest(c); ok {
		return req
	}
	return policy.NewRequest(middleware.CurrentSubject(c), nil)
}

// formUpload opens the multipart file field. The caller closes the returned file.
func formUpload(c *gin.Context) (dto.FileUpload, multipart.File, error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return dto.FileUpload{}, nil, appErrors.ErrValidation.WithCause(err, "multipart field \"file\" is required")
	}
	file, err := header.Open()
	if err != nil {
		return dto.FileUpload{}, nil, appErrors.ErrValidation.WithCause(err, "uploaded file could not be read")
	}
	return dto.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}, file, nil
}

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

type tutorialRepository interface {
	FindByID(ctx context.Context, id string) (*models.Tutorial, error)
	CreateMaterial(ctx context.Context, material *models.TutorialMaterial) error
	ListMaterials(ctx context.Context, tutorialID string) ([]models.TutorialMaterial, error)
}

// TutorialMaterials is a tutorial's material list as seen by one caller.
type TutorialMaterials struct {
	Tutorial    models.Tutorial           `json:"tutorial"`
	AccessLevel models.AccessLevel        `json:"accessLevel"`
	Materials   []models.TutorialMaterial `json:"materials"`
}

// TutorialService stores and lists tutorial materials. Access is decided by the
// route's policy chain before these methods run.
type TutorialService struct {
	tutorials tutorialRepository
	storage   fileStore
	audit     auditRecorder
	logger    *zap.Logger
	uploads   UploadConfig
}

// NewTutorialService constructs a TutorialService.
func NewTutorialService(tutorials tutorialRepository, storage fileStore, audit auditRecorder, uploads UploadConfig, logger *zap.Logger) *TutorialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TutorialService{tutorials: tutorials, storage: storage, audit: audit, uploads: uploads, logger: logger}
}

// UploadMaterial stores a file against a tutorial.
func (s *TutorialService) UploadMaterial(ctx context.Context, actorID, tutorialID string, upload dto.FileUpload) (*models.TutorialMaterial, error) {
	if _, err := s.find(ctx, tutorialID); err != nil {
		return nil, err
	}
	if err := checkUpload(upload, s.uploads); err != nil {
		return nil, err
	}

	materialID := uuid.NewString()
	name := fmt.Sprintf("tutorials/%s/%s%s", tutorialID, materialID, strings.ToLower(filepath.Ext(upload.Filename)))
	stored, err := s.storage.SaveStream(name, upload.Content)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to store material")
	}

	material := &models.TutorialMaterial{
		ID:           materialID,
		TutorialID:   tutorialID,
		UploadedBy:   actorID,
		FilePath:     stored,
		OriginalName: filepath.Base(upload.Filename),
		MimeType:     upload.ContentType,
		SizeBytes:    upload.Size,
	}
	if err := s.tutorials.CreateMaterial(ctx, material); err != nil {
		if delErr := s.storage.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned material", zap.String("path", stored), zap.Error(delErr))
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to record material")
	}

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]string{"material_id": material.ID, "name": material.OriginalName})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionMaterialUpload,
			Resource:   "tutorial",
			ResourceID: &tutorialID,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("failed to record material audit log", zap.Error(err))
		}
	}
	return material, nil
}

// ListMaterials returns a tutorial's materials under the caller's access level.
func (s *TutorialService) ListMaterials(ctx context.Context, tutorialID string, level models.AccessLevel) (*TutorialMaterials, error) {
	if level == models.AccessNone {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "no access to tutorial materials")
	}
	tutorial, err := s.find(ctx, tutorialID)
	if err != nil {
		return nil, err
	}
	materials, err := s.tutorials.ListMaterials(ctx, tutorialID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list materials")
	}
	if materials == nil {
		materials = []models.TutorialMaterial{}
	}
	return &TutorialMaterials{Tutorial: *tutorial, AccessLevel: level, Materials: materials}, nil
}

func (s *TutorialService) find(ctx context.Context, tutorialID string) (*models.Tutorial, error) {
	tutorial, err := s.tutorials.FindByID(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutorial not found")
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to load tutorial")
	}
	return tutorial, nil
}

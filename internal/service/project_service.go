package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/otpas-api/internal/dto"
	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/internal/policy"
	appErrors "github.com/noah-isme/otpas-api/pkg/errors"
)

type projectRepository interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Project, error)
	Create(ctx context.Context, project *models.Project) error
	UpdateStatus(ctx context.Context, review models.ProjectReview) (bool, error)
	CreateFile(ctx context.Context, file *models.ProjectFile) error
}

type evaluationRepository interface {
	Upsert(ctx context.Context, evaluation *models.Evaluation) error
	ListByProject(ctx context.Context, projectID string) ([]models.Evaluation, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type fileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

type authorizer interface {
	Evaluate(ctx context.Context, req *policy.Request, chain ...policy.Policy) error
}

type workflowNotifier interface {
	TitleReviewed(ctx context.Context, project *models.Project)
	EvaluationRecorded(ctx context.Context, project *models.Project, evaluation *models.Evaluation)
}

type reportInvalidator interface {
	InvalidateForStudent(ctx context.Context, studentID string)
}

// UploadConfig bounds accepted uploads.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ProjectService runs the title-approval workflow. Every transition evaluates
// its guard through the policy engine before touching storage.
type ProjectService struct {
	projects    projectRepository
	evaluations evaluationRepository
	audit       auditRecorder
	storage     fileStore
	engine      authorizer
	notifier    workflowNotifier
	reports     reportInvalidator
	validator   *validator.Validate
	logger      *zap.Logger
	uploads     UploadConfig
}

// ProjectServiceDeps groups the collaborators of ProjectService.
type ProjectServiceDeps struct {
	Projects    projectRepository
	Evaluations evaluationRepository
	Audit       auditRecorder
	Storage     fileStore
	Engine      authorizer
	Notifier    workflowNotifier
	Reports     reportInvalidator
	Validator   *validator.Validate
	Logger      *zap.Logger
	Uploads     UploadConfig
}

// NewProjectService constructs a ProjectService.
func NewProjectService(deps ProjectServiceDeps) *ProjectService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &ProjectService{
		projects:    deps.Projects,
		evaluations: deps.Evaluations,
		audit:       deps.Audit,
		storage:     deps.Storage,
		engine:      deps.Engine,
		notifier:    deps.Notifier,
		reports:     deps.Reports,
		validator:   deps.Validator,
		logger:      deps.Logger,
		uploads:     deps.Uploads,
	}
}

// SubmitTitle creates a pending project for the calling student.
func (s *ProjectService) SubmitTitle(ctx context.Context, actor policy.Subject, req dto.SubmitTitleRequest) (*models.Project, error) {
	if err := s.engine.Evaluate(ctx, policy.NewRequest(actor, nil), policy.RequireRole(models.RoleStudent)); err != nil {
		return nil, err
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "title is required and description must be at least 20 characters")
	}

	project := &models.Project{
		StudentID:    actor.ID,
		InstructorID: req.InstructorID,
		Title:        req.Title,
		Description:  req.Description,
		Status:       models.ProjectStatusPending,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to create project")
	}

	s.record(ctx, actor.ID, models.AuditActionTitleSubmit, project.ID, nil, map[string]interface{}{"status": project.Status, "title": project.Title})
	return project, nil
}

// ListMine returns the calling student's projects.
func (s *ProjectService) ListMine(ctx context.Context, actor policy.Subject) ([]models.Project, error) {
	return s.ListForStudent(ctx, actor.ID)
}

// ListForStudent returns a student's projects. Callers authorize the access.
func (s *ProjectService) ListForStudent(ctx context.Context, studentID string) ([]models.Project, error) {
	projects, err := s.projects.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list projects")
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Approve moves a pending project to approved.
func (s *ProjectService) Approve(ctx context.Context, actor policy.Subject, projectID string) (*models.Project, error) {
	return s.review(ctx, actor, projectID, models.ProjectStatusApproved, nil)
}

// Reject moves a pending project to rejected with an optional reason.
func (s *ProjectService) Reject(ctx context.Context, actor policy.Subject, projectID string, req dto.RejectProjectRequest) (*models.Project, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid rejection payload")
	}
	reason := req.Reason
	if reason != nil {
		trimmed := strings.TrimSpace(*reason)
		if trimmed == "" {
			reason = nil
		} else {
			reason = &trimmed
		}
	}
	return s.review(ctx, actor, projectID, models.ProjectStatusRejected, reason)
}

func (s *ProjectService) review(ctx context.Context, actor policy.Subject, projectID string, to models.ProjectStatus, reason *string) (*models.Project, error) {
	req := policy.NewRequest(actor, map[string]string{policy.ParamProjectID: projectID})
	if err := s.engine.Evaluate(ctx, req, policy.RequireRole(models.RoleInstructor), policy.InstructorOwnsProject()); err != nil {
		return nil, err
	}
	project := req.Project

	if !project.Status.CanTransitionTo(to) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("project is already %s", project.Status))
	}

	review := models.ProjectReview{
		ProjectID:  project.ID,
		ReviewerID: actor.ID,
		From:       project.Status,
		To:         to,
		Reason:     reason,
		ReviewedAt: time.Now().UTC(),
	}
	applied, err := s.projects.UpdateStatus(ctx, review)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to update project status")
	}
	if !applied {
		return nil, appErrors.Clone(appErrors.ErrConflict, "project is no longer pending")
	}

	previous := project.Status
	project.Status = to
	project.RejectionReason = reason
	project.ReviewedBy = &actor.ID
	project.ReviewedAt = &review.ReviewedAt
	project.UpdatedAt = review.ReviewedAt

	action := models.AuditActionTitleApprove
	if to == models.ProjectStatusRejected {
		action = models.AuditActionTitleReject
	}
	s.record(ctx, actor.ID, action, project.ID,
		map[string]interface{}{"status": previous},
		map[string]interface{}{"status": to, "reason": reason},
	)
	if s.reports != nil {
		s.reports.InvalidateForStudent(ctx, project.StudentID)
	}
	if s.notifier != nil {
		s.notifier.TitleReviewed(ctx, project)
	}
	return project, nil
}

// UploadFile stores a document for an approved project owned by the calling student.
func (s *ProjectService) UploadFile(ctx context.Context, actor policy.Subject, projectID string, upload dto.FileUpload) (*models.ProjectFile, error) {
	req := policy.NewRequest(actor, map[string]string{policy.ParamProjectID: projectID})
	if err := s.engine.Evaluate(ctx, req, policy.StudentOwnsProject(), policy.TitleApprovedForUpload()); err != nil {
		return nil, err
	}
	if err := checkUpload(upload, s.uploads); err != nil {
		return nil, err
	}

	fileID := uuid.NewString()
	name := fmt.Sprintf("projects/%s/%s%s", projectID, fileID, strings.ToLower(filepath.Ext(upload.Filename)))
	stored, err := s.storage.SaveStream(name, upload.Content)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to store file")
	}

	file := &models.ProjectFile{
		ID:           fileID,
		ProjectID:    projectID,
		UploadedBy:   actor.ID,
		FilePath:     stored,
		OriginalName: filepath.Base(upload.Filename),
		MimeType:     upload.ContentType,
		SizeBytes:    upload.Size,
	}
	if err := s.projects.CreateFile(ctx, file); err != nil {
		if delErr := s.storage.Delete(stored); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", stored), zap.Error(delErr))
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to record file")
	}

	s.record(ctx, actor.ID, models.AuditActionProjectUpload, projectID, nil, map[string]interface{}{"file_id": file.ID, "name": file.OriginalName})
	return file, nil
}

// CreateEvaluation records or replaces the caller's evaluation of a given type.
func (s *ProjectService) CreateEvaluation(ctx context.Context, actor policy.Subject, projectID string, body dto.CreateEvaluationRequest) (*models.Evaluation, error) {
	req := policy.NewRequest(actor, map[string]string{policy.ParamProjectID: projectID})
	if err := s.engine.Evaluate(ctx, req, policy.RequireRole(models.RoleInstructor), policy.InstructorOwnsProject()); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(body); err != nil {
		return nil, appErrors.ErrValidation.WithCause(err, "invalid evaluation payload")
	}

	status := models.EvaluationStatusSubmitted
	if body.Draft {
		status = models.EvaluationStatusDraft
	}
	evaluation := &models.Evaluation{
		ProjectID:   projectID,
		EvaluatorID: actor.ID,
		Type:        body.Type,
		Score:       body.Score,
		Feedback:    strings.TrimSpace(body.Feedback),
		Status:      status,
	}
	if err := s.evaluations.Upsert(ctx, evaluation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "evaluation of this type was recorded by another instructor")
		}
		return nil, appErrors.ErrInternal.WithCause(err, "failed to save evaluation")
	}

	s.record(ctx, actor.ID, models.AuditActionEvaluationCreate, projectID, nil, map[string]interface{}{"evaluation_id": evaluation.ID, "type": evaluation.Type, "score": evaluation.Score})
	if s.notifier != nil && status == models.EvaluationStatusSubmitted {
		s.notifier.EvaluationRecorded(ctx, req.Project, evaluation)
	}
	return evaluation, nil
}

// ListEvaluations returns a project's evaluations. Callers authorize the access.
func (s *ProjectService) ListEvaluations(ctx context.Context, projectID string) ([]models.Evaluation, error) {
	evaluations, err := s.evaluations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, appErrors.ErrInternal.WithCause(err, "failed to list evaluations")
	}
	if evaluations == nil {
		evaluations = []models.Evaluation{}
	}
	return evaluations, nil
}

func (s *ProjectService) record(ctx context.Context, actorID, action, projectID string, oldValues, newValues map[string]interface{}) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "project",
		ResourceID: &projectID,
	}
	if oldValues != nil {
		entry.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		entry.NewValues, _ = json.Marshal(newValues)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record project audit log", zap.String("action", action), zap.String("project_id", projectID), zap.Error(err))
	}
}

func checkUpload(upload dto.FileUpload, cfg UploadConfig) error {
	if upload.Content == nil || upload.Filename == "" {
		return appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if cfg.MaxFileSizeBytes > 0 && upload.Size > cfg.MaxFileSizeBytes {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds the %d byte limit", cfg.MaxFileSizeBytes))
	}
	if len(cfg.AllowedMIMEs) == 0 {
		return nil
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.ContentType, ";", 2)[0]))
	for _, allowed := range cfg.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %q is not allowed", upload.ContentType))
}

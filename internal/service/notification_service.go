package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/otpas-api/internal/models"
	"github.com/noah-isme/otpas-api/pkg/jobs"
)

// Notification job types.
const (
	JobTitleReviewed      = "notify.title_reviewed"
	JobEvaluationRecorded = "notify.evaluation_recorded"
)

// Notification is the payload of a notification job.
type Notification struct {
	RecipientID string
	Subject     string
	Body        string
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type notificationMetrics interface {
	ObserveNotification(outcome string)
}

type messageStore interface {
	Create(ctx context.Context, msg *models.Message) error
}

// NotificationService turns workflow events into queued system messages.
// Enqueue failures are logged and never fail the workflow step.
type NotificationService struct {
	queue   jobEnqueuer
	metrics notificationMetrics
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(queue jobEnqueuer, metrics notificationMetrics, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{queue: queue, metrics: metrics, logger: logger}
}

// TitleReviewed tells the student the outcome of their title review.
func (s *NotificationService) TitleReviewed(ctx context.Context, project *models.Project) {
	if project == nil {
		return
	}
	body := fmt.Sprintf("Your project title %q was %s.", project.Title, project.Status)
	if project.RejectionReason != nil {
		body += " Reason: " + *project.RejectionReason
	}
	s.enqueue(JobTitleReviewed, Notification{
		RecipientID: project.StudentID,
		Subject:     fmt.Sprintf("Project title %s", project.Status),
		Body:        body,
	})
}

// EvaluationRecorded tells the student a submitted evaluation is available.
func (s *NotificationService) EvaluationRecorded(ctx context.Context, project *models.Project, evaluation *models.Evaluation) {
	if project == nil || evaluation == nil {
		return
	}
	s.enqueue(JobEvaluationRecorded, Notification{
		RecipientID: project.StudentID,
		Subject:     fmt.Sprintf("New %s evaluation", evaluation.Type),
		Body:        fmt.Sprintf("Your project %q received a %s evaluation with score %.1f.", project.Title, evaluation.Type, evaluation.Score),
	})
}

func (s *NotificationService) enqueue(jobType string, payload Notification) {
	if s.queue == nil {
		return
	}
	job := jobs.Job{ID: uuid.NewString(), Type: jobType, Payload: payload}
	if err := s.queue.Enqueue(job); err != nil {
		s.observe("enqueue_failed")
		s.logger.Warn("failed to enqueue notification", zap.String("type", jobType), zap.String("recipient_id", payload.RecipientID), zap.Error(err))
		return
	}
	s.observe("enqueued")
}

func (s *NotificationService) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(outcome)
	}
}

// NotificationWorker delivers notification jobs as system messages.
type NotificationWorker struct {
	messages messageStore
	metrics  notificationMetrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotificationWorker constructs a worker.
func NewNotificationWorker(messages messageStore, metrics notificationMetrics, logger *zap.Logger) *NotificationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		messages: messages,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle processes a queue job.
func (w *NotificationWorker) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(Notification)
	if !ok {
		w.logger.Sugar().Warnw("dropping notification with unexpected payload", "job_id", job.ID, "type", job.Type)
		return nil
	}
	msg := &models.Message{
		ID:          job.ID,
		RecipientID: payload.RecipientID,
		Subject:     payload.Subject,
		Body:        payload.Body,
		CreatedAt:   w.now(),
	}
	if err := w.messages.Create(ctx, msg); err != nil {
		if w.metrics != nil {
			w.metrics.ObserveNotification("delivery_failed")
		}
		return err
	}
	if w.metrics != nil {
		w.metrics.ObserveNotification("delivered")
	}
	return nil
}

// DeadLetter records a notification the queue gave up delivering.
func (w *NotificationWorker) DeadLetter(job jobs.Job, err error) {
	if w.metrics != nil {
		w.metrics.ObserveNotification("dead_lettered")
	}
	w.logger.Error("notification abandoned", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
}

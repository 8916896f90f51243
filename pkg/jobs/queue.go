package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrNotStarted is returned by Enqueue before Start.
	ErrNotStarted = errors.New("queue not started")
	// ErrStopped is returned once Stop has been called.
	ErrStopped = errors.New("queue stopped")
	// ErrFull is returned when the buffer has no room; Enqueue never blocks.
	ErrFull = errors.New("queue full")
)

const maxBackoff = 30 * time.Second

// Job is a unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// DeadLetterFunc receives jobs the queue gave up on.
type DeadLetterFunc func(Job, error)

// QueueConfig sizes the worker pool and its retry policy.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first backoff; later attempts double it up to 30s.
	RetryDelay   time.Duration
	OnDeadLetter DeadLetterFunc
	Logger       *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines. Jobs buffered when
// Stop is called are still delivered; pending retries are abandoned.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
	retries sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewQueue builds a queue; zero config values get small defaults.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.workers.Add(q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		go q.run()
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop refuses new jobs, drains the buffer and waits for the workers.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started || q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.cancel()
	q.mu.Unlock()

	q.retries.Wait()
	close(q.jobs)
	q.workers.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue adds job without blocking.
func (q *Queue) Enqueue(job Job) error {
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	return q.push(job, true)
}

func (q *Queue) push(job Job, requireStarted bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	switch {
	case requireStarted && !q.started:
		return fmt.Errorf("%s: %w", q.name, ErrNotStarted)
	case q.stopped:
		return fmt.Errorf("%s: %w", q.name, ErrStopped)
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%s: %w", q.name, ErrFull)
	}
}

func (q *Queue) run() {
	defer q.workers.Done()
	for job := range q.jobs {
		ctx := q.ctx
		if ctx.Err() != nil {
			// draining after Stop
			ctx = context.WithoutCancel(ctx)
		}
		if err := q.handler(ctx, job); err != nil {
			q.retry(job, err)
		}
	}
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	log := q.logger.With(zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt))
	if job.Attempt > q.cfg.MaxRetries {
		log.Error("job exceeded retries", zap.Error(err))
		q.deadLetter(job, err)
		return
	}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		log.Error("job dropped during shutdown", zap.Error(err))
		q.deadLetter(job, err)
		return
	}
	q.retries.Add(1)
	q.mu.Unlock()

	delay := q.backoff(job.Attempt)
	log.Warn("job failed, retrying", zap.Duration("delay", delay), zap.Error(err))
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.deadLetter(job, fmt.Errorf("retry abandoned: %w", err))
		case <-timer.C:
			if pushErr := q.push(job, false); pushErr != nil {
				log.Error("failed to requeue job", zap.Error(pushErr))
				q.deadLetter(job, pushErr)
			}
		}
	}()
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt && delay < maxBackoff; i++ {
		delay *= 2
	}
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func (q *Queue) deadLetter(job Job, err error) {
	if q.cfg.OnDeadLetter != nil {
		q.cfg.OnDeadLetter(job, err)
	}
}

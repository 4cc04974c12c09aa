// Package jobs runs model retrains off the request path.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/career-predictor/internal/metrics"
	"go.uber.org/zap"
)

var (
	// ErrQueueFull is returned when the pending buffer has no room.
	ErrQueueFull = errors.New("retrain queue is full")
	// ErrQueueClosed is returned after Close.
	ErrQueueClosed = errors.New("retrain queue is closed")
	// ErrJobNotFound is returned by Get for unknown or evicted jobs.
	ErrJobNotFound = errors.New("retrain job not found")
)

const (
	DefaultBufferSize  = 8
	DefaultMaxRetained = 100
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusRunning        Status = "running"
	StatusSucceeded      Status = "succeeded"
	StatusFailed         Status = "failed"
	StatusPartialFailure Status = "partial_failure"
)

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusPartialFailure
}

// Job is a snapshot of one retrain request.
type Job struct {
	ID               uuid.UUID  `json:"id"`
	Reason           string     `json:"reason"`
	DatasetCommitted bool       `json:"dataset_committed"`
	Status           Status     `json:"status"`
	Error            string     `json:"error,omitempty"`
	EnqueuedAt       time.Time  `json:"enqueued_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
}

// Retrainer rebuilds and publishes the model.
type Retrainer interface {
	Retrain(ctx context.Context) error
}

// Options configures a Queue.
type Options struct {
	BufferSize  int
	MaxRetained int
	Logger      *zap.Logger
	Now         func() time.Time
}

// Queue feeds retrain jobs to a single worker. Retrains are CPU bound and
// share one dataset file, so there is never more than one in flight.
type Queue struct {
	retrainer   Retrainer
	pending     chan uuid.UUID
	maxRetained int
	logger      *zap.Logger
	now         func() time.Time

	mu       sync.RWMutex
	jobs     map[uuid.UUID]*Job
	finished []uuid.UUID
	closed   bool
}

// NewQueue creates a queue. Call Run to start the worker.
func NewQueue(retrainer Retrainer, opts Options) *Queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.MaxRetained <= 0 {
		opts.MaxRetained = DefaultMaxRetained
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Queue{
		retrainer:   retrainer,
		pending:     make(chan uuid.UUID, opts.BufferSize),
		maxRetained: opts.MaxRetained,
		logger:      opts.Logger.Named("jobs"),
		now:         opts.Now,
		jobs:        make(map[uuid.UUID]*Job),
	}
}

// Enqueue schedules a retrain. datasetCommitted marks jobs triggered by a
// dataset replacement so a failure is reported as a partial failure.
func (q *Queue) Enqueue(reason string, datasetCommitted bool) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrQueueClosed
	}

	job := &Job{
		ID:               uuid.New(),
		Reason:           reason,
		DatasetCommitted: datasetCommitted,
		Status:           StatusQueued,
		EnqueuedAt:       q.now(),
	}

	select {
	case q.pending <- job.ID:
	default:
		return nil, ErrQueueFull
	}

	q.jobs[job.ID] = job
	metrics.RetrainJobsQueued.Inc()
	q.logger.Info("retrain job queued",
		zap.String("job_id", job.ID.String()),
		zap.String("reason", reason),
		zap.Bool("dataset_committed", datasetCommitted),
	)

	snapshot := *job
	return &snapshot, nil
}

// Get returns a snapshot of the job with the given ID.
func (q *Queue) Get(id uuid.UUID) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	snapshot := *job
	return &snapshot, nil
}

// Run processes jobs until ctx is cancelled or the queue is closed and drained.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-q.pending:
			if !ok {
				return nil
			}
			q.process(ctx, id)
		}
	}
}

// Close stops accepting jobs. Already queued jobs are still processed by Run.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.pending)
}

func (q *Queue) process(ctx context.Context, id uuid.UUID) {
	metrics.RetrainJobsQueued.Dec()

	started := q.now()
	q.update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = &started
	})
	log := q.logger.With(zap.String("job_id", id.String()))
	log.Info("retrain job started")

	err := q.retrainer.Retrain(ctx)

	finished := q.now()
	q.update(id, func(j *Job) {
		j.FinishedAt = &finished
		switch {
		case err == nil:
			j.Status = StatusSucceeded
		case j.DatasetCommitted:
			j.Status = StatusPartialFailure
			j.Error = err.Error()
		default:
			j.Status = StatusFailed
			j.Error = err.Error()
		}
	})

	if err != nil {
		log.Error("retrain job failed", zap.Error(err), zap.Duration("duration", finished.Sub(started)))
	} else {
		log.Info("retrain job succeeded", zap.Duration("duration", finished.Sub(started)))
	}
	q.retire(id)
}

func (q *Queue) update(id uuid.UUID, fn func(*Job)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job, ok := q.jobs[id]; ok {
		fn(job)
	}
}

// retire records a finished job and evicts the oldest beyond maxRetained.
func (q *Queue) retire(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, id)
	for len(q.finished) > q.maxRetained {
		delete(q.jobs, q.finished[0])
		q.finished = q.finished[1:]
	}
}

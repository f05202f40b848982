package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/philippe-ths/ai-running-coach/pkg/observability"
)

// HandlerFunc processes one job. The context carries the per-job deadline.
type HandlerFunc func(ctx context.Context, job *Job) error

// Worker consumes a queue and dispatches jobs to registered handlers.
type Worker struct {
	queue      *Queue
	handlers   map[string]HandlerFunc
	jobTimeout time.Duration
	logger     *slog.Logger
}

// NewWorker builds a worker over the queue with a 5-minute per-job
// wall-clock limit.
func NewWorker(q *Queue, logger *slog.Logger) *Worker {
	return &Worker{
		queue:      q,
		handlers:   make(map[string]HandlerFunc),
		jobTimeout: 5 * time.Minute,
		logger:     logger,
	}
}

// Handle registers the handler for a job type.
func (w *Worker) Handle(jobType string, fn HandlerFunc) {
	w.handlers[jobType] = fn
}

// Run consumes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker started", "queue", w.queue.name)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping", "queue", w.queue.name)
			return ctx.Err()
		default:
		}

		job, err := w.queue.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("dequeue failed", "error", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}
		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	handler, ok := w.handlers[job.Type]
	if !ok {
		w.logger.Warn("no handler for job type", "type", job.Type, "job_id", job.ID)
		observability.JobsProcessedTotal.WithLabelValues(job.Type, "unhandled").Inc()
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := handler(jobCtx, job)
	elapsed := time.Since(start)

	if err != nil {
		w.logger.Error("job failed", "type", job.Type, "job_id", job.ID, "duration", elapsed, "error", err)
		observability.JobsProcessedTotal.WithLabelValues(job.Type, "failed").Inc()
		sentry.CaptureException(fmt.Errorf("job %s (%s): %w", job.ID, job.Type, err))
		return
	}

	w.logger.Info("job done", "type", job.Type, "job_id", job.ID, "duration", elapsed)
	observability.JobsProcessedTotal.WithLabelValues(job.Type, "ok").Inc()
}

package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/data/repos"
	types "github.com/yungbote/filevault-backend/internal/domain"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/queue"
)

// Runner executes one claimed job and returns its result document.
type Runner interface {
	Run(ctx context.Context, job *types.DetectJob) (datatypes.JSON, error)
}

const (
	defaultWorkerCount = 2
	defaultMaxAttempts = 3
	dequeueWait        = 2 * time.Second
)

// Worker drains the task queue with a small pool of goroutines. The job
// table is the durable truth: claiming is an optimistic queued→running
// status flip, so a payload delivered twice is simply skipped by the loser.
type Worker struct {
	db          *gorm.DB
	log         *logger.Logger
	jobs        repos.DetectJobRepo
	tasks       queue.TaskQueue
	runner      Runner
	count       int
	maxAttempts int
}

func NewWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.DetectJobRepo,
	tasks queue.TaskQueue,
	runner Runner,
	count int,
) *Worker {
	if count <= 0 {
		count = defaultWorkerCount
	}
	return &Worker{
		db:          db,
		log:         baseLog.With("component", "DetectWorker"),
		jobs:        jobRepo,
		tasks:       tasks,
		runner:      runner,
		count:       count,
		maxAttempts: defaultMaxAttempts,
	}
}

// Recover re-pushes every job still queued in the table onto the task
// queue. Run at startup so a crash between the row insert and the queue
// push, or a Redis flush, cannot strand work.
func (w *Worker) Recover(ctx context.Context) error {
	ids, err := w.jobs.ListQueuedIDs(dbctx.Context{Ctx: ctx}, 500)
	if err != nil {
		return fmt.Errorf("list queued jobs: %w", err)
	}
	for _, id := range ids {
		if err := w.tasks.Enqueue(ctx, id.String()); err != nil {
			return fmt.Errorf("re-push job %s: %w", id, err)
		}
	}
	if len(ids) > 0 {
		w.log.Info("re-pushed queued jobs", "count", len(ids))
	}
	return nil
}

func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.count; i++ {
		go w.loop(ctx, i)
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	log := w.log.With("worker_slot", slot)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		payload, err := w.tasks.Dequeue(ctx, dequeueWait)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Warn("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if payload == "" {
			continue
		}

		id, err := uuid.Parse(payload)
		if err != nil {
			log.Warn("discarding malformed task payload", "payload", payload)
			continue
		}
		w.process(ctx, log, id)
	}
}

func (w *Worker) process(ctx context.Context, log *logger.Logger, id uuid.UUID) {
	dbc := dbctx.Context{Ctx: ctx}

	claimed, err := w.jobs.Claim(dbc, id)
	if err != nil {
		log.Warn("claim failed", "error", err, "job_id", id)
		return
	}
	if !claimed {
		// Another worker holds it, or the row is gone.
		return
	}

	job, err := w.jobs.GetByID(dbc, id)
	if err != nil {
		log.Error("claimed job vanished", "error", err, "job_id", id)
		return
	}

	result, runErr := w.runSafely(ctx, job)
	if runErr == nil {
		if err := w.jobs.MarkDone(dbc, id, result); err != nil {
			log.Error("mark done failed", "error", err, "job_id", id)
		}
		log.Info("detect job done", "job_id", id, "digest", job.Digest)
		return
	}

	if ctx.Err() != nil {
		// Shutdown mid-run: hand the job back for the next process
		// without burning an attempt on our account.
		_ = w.jobs.Requeue(dbctx.Context{Ctx: context.Background()}, id, runErr.Error())
		return
	}

	if job.Attempts >= w.maxAttempts {
		log.Error("detect job failed permanently",
			"error", runErr,
			"job_id", id,
			"attempts", job.Attempts,
		)
		if err := w.jobs.MarkFailed(dbc, id, runErr.Error()); err != nil {
			log.Error("mark failed failed", "error", err, "job_id", id)
		}
		return
	}

	log.Warn("detect job failed, requeueing",
		"error", runErr,
		"job_id", id,
		"attempts", job.Attempts,
	)
	if err := w.jobs.Requeue(dbc, id, runErr.Error()); err != nil {
		log.Error("requeue failed", "error", err, "job_id", id)
		return
	}
	if err := w.tasks.Enqueue(ctx, id.String()); err != nil {
		log.Warn("queue push for retry failed, startup recovery will re-push", "error", err, "job_id", id)
	}
}

// runSafely converts a runner panic into a job failure instead of taking
// the worker down with it.
func (w *Worker) runSafely(ctx context.Context, job *types.DetectJob) (result datatypes.JSON, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("runner panic", "job_id", job.ID, "panic", r)
			err = fmt.Errorf("runner panic: %v", r)
		}
	}()
	return w.runner.Run(ctx, job)
}

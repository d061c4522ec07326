package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/data/repos"
	types "github.com/yungbote/filevault-backend/internal/domain"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/imagemeta"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/queue"
	"github.com/yungbote/filevault-backend/internal/vault"
)

// DetectPayload is what a detect worker has to know about an artifact: its
// durable location plus whatever could be probed from the leading bytes.
type DetectPayload struct {
	Location    string `json:"location"`
	ObjectKey   string `json:"object_key"`
	Digest      string `json:"digest"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type DetectService interface {
	// Enqueue records a detect job for a committed artifact and wakes a
	// worker. The row insert is the durable step; the queue push is only a
	// signal and its failure is recoverable (startup re-push).
	Enqueue(ctx context.Context, saved *vault.SaveResult) (*types.DetectJob, error)
	GetJob(ctx context.Context, id uuid.UUID) (*types.DetectJob, error)
}

type detectService struct {
	db    *gorm.DB
	log   *logger.Logger
	jobs  repos.DetectJobRepo
	tasks queue.TaskQueue
}

func NewDetectService(db *gorm.DB, baseLog *logger.Logger, jobs repos.DetectJobRepo, tasks queue.TaskQueue) DetectService {
	return &detectService{
		db:    db,
		log:   baseLog.With("service", "DetectService"),
		jobs:  jobs,
		tasks: tasks,
	}
}

func (s *detectService) Enqueue(ctx context.Context, saved *vault.SaveResult) (*types.DetectJob, error) {
	if saved == nil {
		return nil, fmt.Errorf("Enqueue: save result required")
	}

	meta := imagemeta.Probe(saved.Head)
	payload := DetectPayload{
		Location:    saved.Location,
		ObjectKey:   saved.Key,
		Digest:      saved.Digest,
		Size:        saved.Size,
		ContentType: meta.ContentType,
		Width:       meta.Width,
		Height:      meta.Height,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("Enqueue: marshal payload: %w", err)
	}

	job := &types.DetectJob{
		ID:        uuid.New(),
		Digest:    saved.Digest,
		ObjectKey: saved.Key,
		Location:  saved.Location,
		Status:    types.DetectJobStatusQueued,
		Payload:   datatypes.JSON(raw),
	}
	if err := s.jobs.Create(dbctx.Context{Ctx: ctx}, job); err != nil {
		return nil, fmt.Errorf("Enqueue: create job row: %w", err)
	}

	if err := s.tasks.Enqueue(ctx, job.ID.String()); err != nil {
		// The row is durable; the worker re-pushes queued rows on startup.
		s.log.Warn("queue push failed, job row remains queued",
			"error", err,
			"job_id", job.ID,
		)
	}
	return job, nil
}

func (s *detectService) GetJob(ctx context.Context, id uuid.UUID) (*types.DetectJob, error) {
	return s.jobs.GetByID(dbctx.Context{Ctx: ctx}, id)
}

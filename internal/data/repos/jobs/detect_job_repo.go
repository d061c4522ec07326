package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/filevault-backend/internal/domain"
	domjobs "github.com/yungbote/filevault-backend/internal/domain/jobs"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type DetectJobRepo interface {
	Create(dbc dbctx.Context, job *types.DetectJob) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DetectJob, error)
	// Claim flips a queued job to running, reporting false when another
	// worker already holds it or the job is gone.
	Claim(dbc dbctx.Context, id uuid.UUID) (bool, error)
	SetStage(dbc dbctx.Context, id uuid.UUID, stage string) error
	MarkDone(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error
	MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	Requeue(dbc dbctx.Context, id uuid.UUID, errMsg string) error
	ListQueuedIDs(dbc dbctx.Context, limit int) ([]uuid.UUID, error)
}

type detectJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDetectJobRepo(db *gorm.DB, baseLog *logger.Logger) DetectJobRepo {
	return &detectJobRepo{
		db:  db,
		log: baseLog.With("repo", "DetectJobRepo"),
	}
}

func (r *detectJobRepo) Create(dbc dbctx.Context, job *types.DetectJob) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if job == nil {
		return pkgerrors.ErrInvalidArgument
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = domjobs.StatusQueued
	}
	return t.WithContext(dbc.Ctx).Create(job).Error
}

func (r *detectJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.DetectJob, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	var job types.DetectJob
	err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *detectJobRepo) Claim(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return false, pkgerrors.ErrInvalidArgument
	}
	now := time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.DetectJob{}).
		Where("id = ? AND status = ?", id, domjobs.StatusQueued).
		Updates(map[string]interface{}{
			"status":     domjobs.StatusRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *detectJobRepo) SetStage(dbc dbctx.Context, id uuid.UUID, stage string) error {
	return r.updateFields(dbc, id, map[string]interface{}{
		"stage": stage,
	})
}

func (r *detectJobRepo) MarkDone(dbc dbctx.Context, id uuid.UUID, result datatypes.JSON) error {
	now := time.Now().UTC()
	return r.updateFields(dbc, id, map[string]interface{}{
		"status":      domjobs.StatusDone,
		"result":      result,
		"error":       "",
		"finished_at": now,
	})
}

func (r *detectJobRepo) MarkFailed(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	now := time.Now().UTC()
	return r.updateFields(dbc, id, map[string]interface{}{
		"status":      domjobs.StatusFailed,
		"error":       errMsg,
		"finished_at": now,
	})
}

func (r *detectJobRepo) Requeue(dbc dbctx.Context, id uuid.UUID, errMsg string) error {
	return r.updateFields(dbc, id, map[string]interface{}{
		"status": domjobs.StatusQueued,
		"stage":  "",
		"error":  errMsg,
	})
}

func (r *detectJobRepo) ListQueuedIDs(dbc dbctx.Context, limit int) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 100
	}
	out := []uuid.UUID{}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.DetectJob{}).
		Where("status = ?", domjobs.StatusQueued).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *detectJobRepo) updateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return pkgerrors.ErrInvalidArgument
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.DetectJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

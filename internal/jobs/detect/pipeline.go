package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/filevault-backend/internal/data/repos"
	types "github.com/yungbote/filevault-backend/internal/domain"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/vault"
)

// Pipeline simulates the downstream detector: it verifies the artifact is
// still where the job says it is, then walks the stage plan, updating the
// row's stage and sleeping each stage's duration.
type Pipeline struct {
	log   *logger.Logger
	jobs  repos.DetectJobRepo
	vault vault.Vault
	spec  Spec
}

func NewPipeline(baseLog *logger.Logger, jobs repos.DetectJobRepo, v vault.Vault, spec Spec) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("component", "DetectPipeline"),
		jobs:  jobs,
		vault: v,
		spec:  spec,
	}
}

type result struct {
	Simulated  bool     `json:"simulated"`
	Stages     []string `json:"stages"`
	Detections []any    `json:"detections"`
	ElapsedMS  int64    `json:"elapsed_ms"`
}

func (p *Pipeline) Run(ctx context.Context, job *types.DetectJob) (datatypes.JSON, error) {
	if job == nil {
		return nil, fmt.Errorf("detect pipeline: job required")
	}

	if p.vault != nil && job.ObjectKey != "" {
		ok, err := p.vault.Exists(ctx, job.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("detect pipeline: check artifact %s: %w", job.ObjectKey, err)
		}
		if !ok {
			return nil, fmt.Errorf("detect pipeline: artifact %s missing", job.ObjectKey)
		}
	}

	start := time.Now()
	dbc := dbctx.Context{Ctx: ctx}
	completed := make([]string, 0, len(p.spec.Stages))
	for _, stage := range p.spec.Stages {
		if err := p.jobs.SetStage(dbc, job.ID, stage.Name); err != nil {
			return nil, fmt.Errorf("detect pipeline: record stage %q: %w", stage.Name, err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(stage.Duration):
		}
		completed = append(completed, stage.Name)
	}

	raw, err := json.Marshal(result{
		Simulated:  true,
		Stages:     completed,
		Detections: []any{},
		ElapsedMS:  time.Since(start).Milliseconds(),
	})
	if err != nil {
		return nil, fmt.Errorf("detect pipeline: marshal result: %w", err)
	}
	return datatypes.JSON(raw), nil
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/yungbote/filevault-backend/internal/domain"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/vault"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeFileHashRepo struct {
	mu        sync.Mutex
	digests   map[string]struct{}
	findCalls int
	insertErr error
}

func newFakeFileHashRepo() *fakeFileHashRepo {
	return &fakeFileHashRepo{digests: map[string]struct{}{}}
}

func (f *fakeFileHashRepo) InsertIfAbsent(_ dbctx.Context, digest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, ok := f.digests[digest]; ok {
		return false, nil
	}
	f.digests[digest] = struct{}{}
	return true, nil
}

func (f *fakeFileHashRepo) FindExisting(_ dbctx.Context, digests []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	out := []string{}
	for _, d := range digests {
		if _, ok := f.digests[d]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeFileHashRepo) Count(dbctx.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.digests)), nil
}

type fakeDetectJobRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.DetectJob
}

func newFakeDetectJobRepo() *fakeDetectJobRepo {
	return &fakeDetectJobRepo{rows: map[uuid.UUID]*types.DetectJob{}}
}

func (f *fakeDetectJobRepo) Create(_ dbctx.Context, job *types.DetectJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.DetectJobStatusQueued
	}
	cp := *job
	f.rows[job.ID] = &cp
	return nil
}

func (f *fakeDetectJobRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*types.DetectJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.rows[id]
	if !ok {
		return nil, pkgerrors.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeDetectJobRepo) Claim(_ dbctx.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.rows[id]
	if !ok || job.Status != types.DetectJobStatusQueued {
		return false, nil
	}
	job.Status = types.DetectJobStatusRunning
	job.Attempts++
	return true, nil
}

func (f *fakeDetectJobRepo) SetStage(_ dbctx.Context, id uuid.UUID, stage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.rows[id]; ok {
		job.Stage = stage
	}
	return nil
}

func (f *fakeDetectJobRepo) MarkDone(_ dbctx.Context, id uuid.UUID, result datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.rows[id]; ok {
		job.Status = types.DetectJobStatusDone
		job.Result = result
		job.Error = ""
	}
	return nil
}

func (f *fakeDetectJobRepo) MarkFailed(_ dbctx.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.rows[id]; ok {
		job.Status = types.DetectJobStatusFailed
		job.Error = errMsg
	}
	return nil
}

func (f *fakeDetectJobRepo) Requeue(_ dbctx.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.rows[id]; ok {
		job.Status = types.DetectJobStatusQueued
		job.Stage = ""
		job.Error = errMsg
	}
	return nil
}

func (f *fakeDetectJobRepo) ListQueuedIDs(_ dbctx.Context, limit int) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []uuid.UUID{}
	for id, job := range f.rows {
		if job.Status == types.DetectJobStatusQueued {
			out = append(out, id)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// fakeVault hashes for real but keeps nothing on disk.
type fakeVault struct {
	mu      sync.Mutex
	saves   int
	saveErr error
}

func (f *fakeVault) Save(_ context.Context, originalName string, r io.Reader, declaredSize int64) (*vault.SaveResult, error) {
	f.mu.Lock()
	f.saves++
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	h := sha256.New()
	n, copyErr := io.Copy(h, r)
	if copyErr != nil {
		return nil, copyErr
	}
	digest := hex.EncodeToString(h.Sum(nil))
	key := "uploads/2026/08/27/" + digest[:16] + "_" + vault.SanitizeName(originalName)
	return &vault.SaveResult{
		Digest:   digest,
		Key:      key,
		Size:     n,
		Location: "/data/" + key,
		Head:     []byte("fake"),
	}, nil
}

func (f *fakeVault) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeVault) Exists(context.Context, string) (bool, error) { return false, nil }

func (f *fakeVault) Locate(key string) string { return "/data/" + key }

type failingQueue struct{}

func (failingQueue) Enqueue(context.Context, string) error { return fmt.Errorf("redis down") }
func (failingQueue) Dequeue(context.Context, time.Duration) (string, error) {
	return "", nil
}
func (failingQueue) Close() error { return nil }

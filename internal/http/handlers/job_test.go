package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/filevault-backend/internal/domain"
	"github.com/yungbote/filevault-backend/internal/domain/jobs"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/vault"
)

type stubDetect struct {
	job *types.DetectJob
}

func (s *stubDetect) Enqueue(context.Context, *vault.SaveResult) (*types.DetectJob, error) {
	return nil, nil
}

func (s *stubDetect) GetJob(_ context.Context, id uuid.UUID) (*types.DetectJob, error) {
	if s.job == nil || s.job.ID != id {
		return nil, pkgerrors.ErrNotFound
	}
	return s.job, nil
}

func jobRouter(t *testing.T, svc *stubDetect) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/jobs/:id", NewJobHandler(svc).GetJob)
	return r
}

func TestGetJobFound(t *testing.T) {
	t.Parallel()
	id := uuid.New()
	svc := &stubDetect{job: &types.DetectJob{ID: id, Status: jobs.StatusDone, Stage: "publish"}}
	r := jobRouter(t, svc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+id.String(), nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=200 body=%s", rec.Code, rec.Body.String())
	}
	var got struct {
		Job types.DetectJob `json:"job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Job.ID != id || got.Job.Status != jobs.StatusDone {
		t.Fatalf("job=%+v want id=%s status=done", got.Job, id)
	}
}

func TestGetJobInvalidID(t *testing.T) {
	t.Parallel()
	r := jobRouter(t, &stubDetect{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/not-a-uuid", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d want=400", rec.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()
	r := jobRouter(t, &stubDetect{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+uuid.NewString(), nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d want=404", rec.Code)
	}
}

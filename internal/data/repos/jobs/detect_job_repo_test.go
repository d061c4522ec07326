package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/filevault-backend/internal/data/repos/testutil"
	domjobs "github.com/yungbote/filevault-backend/internal/domain/jobs"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
)

func TestDetectJobRepoLifecycle(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDetectJobRepo(db, testutil.Logger(t))

	job := testutil.SeedDetectJob(t, ctx, tx, strings.Repeat("12", 32), "uploads/2026/08/21/1212_photo.png")

	claimed, err := repo.Claim(dbc, job.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Fatalf("Claim: claimed=false want=true")
	}

	// A second claim must lose: the job is no longer queued.
	claimed, err = repo.Claim(dbc, job.ID)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if claimed {
		t.Fatalf("second Claim: claimed=true want=false")
	}

	if err := repo.SetStage(dbc, job.ID, "preprocess"); err != nil {
		t.Fatalf("SetStage: %v", err)
	}
	if err := repo.MarkDone(dbc, job.ID, datatypes.JSON([]byte(`{"ok":true}`))); err != nil {
		t.Fatalf("MarkDone: %v", err)
	}

	got, err := repo.GetByID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domjobs.StatusDone {
		t.Fatalf("status=%q want=%q", got.Status, domjobs.StatusDone)
	}
	if got.Attempts != 1 {
		t.Fatalf("attempts=%d want=1", got.Attempts)
	}
	if got.Stage != "preprocess" {
		t.Fatalf("stage=%q want=%q", got.Stage, "preprocess")
	}
	if got.FinishedAt == nil {
		t.Fatalf("finished_at not set")
	}
}

func TestDetectJobRepoFailAndRequeue(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewDetectJobRepo(db, testutil.Logger(t))

	job := testutil.SeedDetectJob(t, ctx, tx, strings.Repeat("34", 32), "uploads/2026/08/21/3434_photo.png")

	if _, err := repo.Claim(dbc, job.ID); err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if err := repo.Requeue(dbc, job.ID, "transient failure"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}

	ids, err := repo.ListQueuedIDs(dbc, 10)
	if err != nil {
		t.Fatalf("ListQueuedIDs: %v", err)
	}
	found := false
	for _, id := range ids {
		if id == job.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("requeued job missing from queued list: %v", ids)
	}

	// Requeued jobs are claimable again.
	claimed, err := repo.Claim(dbc, job.ID)
	if err != nil || !claimed {
		t.Fatalf("reclaim: claimed=%v err=%v", claimed, err)
	}
	if err := repo.MarkFailed(dbc, job.ID, "gave up"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	got, err := repo.GetByID(dbc, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domjobs.StatusFailed {
		t.Fatalf("status=%q want=%q", got.Status, domjobs.StatusFailed)
	}
	if got.Attempts != 2 {
		t.Fatalf("attempts=%d want=2", got.Attempts)
	}
	if got.Error != "gave up" {
		t.Fatalf("error=%q want=%q", got.Error, "gave up")
	}
}

func TestDetectJobRepoGetByIDNotFound(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewDetectJobRepo(db, testutil.Logger(t))

	_, err := repo.GetByID(dbc, uuid.New())
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

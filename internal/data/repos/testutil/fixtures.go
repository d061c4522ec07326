package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/filevault-backend/internal/domain"
	domjobs "github.com/yungbote/filevault-backend/internal/domain/jobs"
)

func SeedFileHash(tb testing.TB, ctx context.Context, tx *gorm.DB, digest string) *types.FileHash {
	tb.Helper()
	fh := &types.FileHash{
		ID:     uuid.New(),
		Digest: digest,
	}
	if err := tx.WithContext(ctx).Create(fh).Error; err != nil {
		tb.Fatalf("seed file hash: %v", err)
	}
	return fh
}

func SeedDetectJob(tb testing.TB, ctx context.Context, tx *gorm.DB, digest, objectKey string) *types.DetectJob {
	tb.Helper()
	j := &types.DetectJob{
		ID:        uuid.New(),
		Digest:    digest,
		ObjectKey: objectKey,
		Location:  "/data/" + objectKey,
		Status:    domjobs.StatusQueued,
		Payload:   datatypes.JSON([]byte(`{}`)),
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed detect job: %v", err)
	}
	return j
}

package files

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/filevault-backend/internal/data/dberr"
	types "github.com/yungbote/filevault-backend/internal/domain"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type FileHashRepo interface {
	// InsertIfAbsent records a digest, reporting whether this call created
	// the row. A concurrent insert of the same digest is absorbed as
	// "already present", never surfaced as an error.
	InsertIfAbsent(dbc dbctx.Context, digest string) (bool, error)
	// FindExisting returns the subset of digests already recorded, in one
	// round trip regardless of batch size.
	FindExisting(dbc dbctx.Context, digests []string) ([]string, error)
	Count(dbc dbctx.Context) (int64, error)
}

type fileHashRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFileHashRepo(db *gorm.DB, baseLog *logger.Logger) FileHashRepo {
	return &fileHashRepo{
		db:  db,
		log: baseLog.With("repo", "FileHashRepo"),
	}
}

func (r *fileHashRepo) InsertIfAbsent(dbc dbctx.Context, digest string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	digest = strings.TrimSpace(digest)
	if digest == "" {
		return false, pkgerrors.ErrInvalidArgument
	}
	row := &types.FileHash{
		ID:     uuid.New(),
		Digest: digest,
	}
	res := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "digest"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		if dberr.IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *fileHashRepo) FindExisting(dbc dbctx.Context, digests []string) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []string{}
	if len(digests) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.FileHash{}).
		Where("digest IN ?", digests).
		Pluck("digest", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *fileHashRepo) Count(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := t.WithContext(dbc.Ctx).
		Model(&types.FileHash{}).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/data/repos"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type HashCheckService interface {
	// CheckExistence answers which of the candidate digests are already
	// indexed. The result holds exactly one key per distinct normalized
	// candidate; an empty normalized set short-circuits to {} without
	// touching storage. Lookup is one bulk query regardless of batch size.
	CheckExistence(ctx context.Context, candidates []interface{}) (map[string]bool, error)
}

type hashCheckService struct {
	db         *gorm.DB
	log        *logger.Logger
	fileHashes repos.FileHashRepo
}

func NewHashCheckService(db *gorm.DB, baseLog *logger.Logger, fileHashes repos.FileHashRepo) HashCheckService {
	return &hashCheckService{
		db:         db,
		log:        baseLog.With("service", "HashCheckService"),
		fileHashes: fileHashes,
	}
}

// NormalizeCandidates filters a raw candidate sequence down to the entries
// worth querying: non-string and blank entries are dropped, duplicates
// collapse to their first occurrence. Matching is case-sensitive and exact;
// values are not trimmed, only tested for being all-whitespace.
func NormalizeCandidates(raw []interface{}) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if strings.TrimSpace(s) == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func (s *hashCheckService) CheckExistence(ctx context.Context, candidates []interface{}) (map[string]bool, error) {
	normalized := NormalizeCandidates(candidates)
	result := make(map[string]bool, len(normalized))
	if len(normalized) == 0 {
		return result, nil
	}

	existing, err := s.fileHashes.FindExisting(dbctx.Context{Ctx: ctx}, normalized)
	if err != nil {
		return nil, fmt.Errorf("CheckExistence: bulk lookup: %w", err)
	}
	present := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		present[d] = struct{}{}
	}
	for _, c := range normalized {
		_, ok := present[c]
		result[c] = ok
	}
	return result, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/data/repos"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/vault"
)

// ErrFileTooLarge mirrors the vault sentinel at the service boundary so
// handlers never import storage internals to classify the failure.
var ErrFileTooLarge = vault.ErrFileTooLarge

// IngestResult is the contract of a successful ingestion. SavedAt is the
// storage-relative key of the committed artifact.
type IngestResult struct {
	Digest   string `json:"hash"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	SavedAt  string `json:"saved_at"`
}

type IngestService interface {
	// Ingest streams one upload through the hash-and-store pipeline:
	// validate size, hash while writing, commit atomically, record the
	// digest, and hand the artifact to the detect queue. The detect
	// notification is fire-and-forget; its failure never rolls back a
	// committed ingestion.
	Ingest(ctx context.Context, originalName string, file io.Reader, declaredSize int64) (*IngestResult, error)
}

type ingestService struct {
	db         *gorm.DB
	log        *logger.Logger
	vault      vault.Vault
	fileHashes repos.FileHashRepo
	detect     DetectService
	maxBytes   int64
}

func NewIngestService(
	db *gorm.DB,
	baseLog *logger.Logger,
	v vault.Vault,
	fileHashes repos.FileHashRepo,
	detect DetectService,
	maxBytes int64,
) IngestService {
	return &ingestService{
		db:         db,
		log:        baseLog.With("service", "IngestService"),
		vault:      v,
		fileHashes: fileHashes,
		detect:     detect,
		maxBytes:   maxBytes,
	}
}

func (s *ingestService) Ingest(ctx context.Context, originalName string, file io.Reader, declaredSize int64) (*IngestResult, error) {
	if file == nil {
		return nil, fmt.Errorf("Ingest: file reader required")
	}
	if s.maxBytes > 0 && declaredSize > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	saved, err := s.vault.Save(ctx, originalName, file, declaredSize)
	if err != nil {
		if errors.Is(err, vault.ErrFileTooLarge) {
			return nil, ErrFileTooLarge
		}
		return nil, fmt.Errorf("Ingest: store upload: %w", err)
	}

	// The artifact is committed before the index insert, so a "created"
	// response always maps to a real recoverable file. An insert failure
	// leaves an orphaned artifact, never a record without bytes.
	dbc := dbctx.Context{Ctx: ctx}
	inserted, err := s.fileHashes.InsertIfAbsent(dbc, saved.Digest)
	if err != nil {
		s.log.Error("failed to index digest after commit",
			"error", err,
			"digest", saved.Digest,
			"object_key", saved.Key,
		)
		return nil, fmt.Errorf("Ingest: index digest: %w", err)
	}
	if !inserted {
		s.log.Debug("digest already indexed", "digest", saved.Digest)
	}

	if s.detect != nil {
		if _, err := s.detect.Enqueue(ctx, saved); err != nil {
			s.log.Warn("detect enqueue failed, ingestion unaffected",
				"error", err,
				"digest", saved.Digest,
			)
		}
	}

	s.log.Info("file ingested",
		"digest", saved.Digest,
		"object_key", saved.Key,
		"size", saved.Size,
		"deduplicated", !inserted,
	)

	return &IngestResult{
		Digest:   saved.Digest,
		Filename: originalName,
		Size:     saved.Size,
		SavedAt:  saved.Key,
	}, nil
}

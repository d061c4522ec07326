package vault

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// localVault keeps artifacts in a date-partitioned tree on the local
// filesystem. Writes spool to a temporary file in the final directory and
// commit with an atomic rename, so no reader ever observes a half-written
// artifact at its final path.
type localVault struct {
	root     string
	maxBytes int64
	log      *logger.Logger
	now      func() time.Time
}

func NewLocalVault(root string, maxBytes int64, baseLog *logger.Logger) (Vault, error) {
	if root == "" {
		return nil, fmt.Errorf("upload root required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &localVault{
		root:     abs,
		maxBytes: maxBytes,
		log:      baseLog.With("service", "LocalVault"),
		now:      time.Now,
	}, nil
}

func (v *localVault) Save(ctx context.Context, originalName string, r io.Reader, declaredSize int64) (*SaveResult, error) {
	if v.maxBytes > 0 && declaredSize > v.maxBytes {
		return nil, ErrFileTooLarge
	}

	now := v.now().UTC()
	// The key prefixes "uploads/"; the tree on disk lives directly under
	// root, so strip it before joining.
	dayDir := filepath.Join(
		v.root,
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
	)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return nil, fmt.Errorf("create day directory: %w", err)
	}

	// The random component guarantees concurrent same-named uploads never
	// collide before their digests are known.
	tmpPath := filepath.Join(dayDir, fmt.Sprintf(".tmp-%s", uuid.New().String()))
	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	digest, size, head, err := hashingCopy(ctx, tmp, r, v.maxBytes)
	if err != nil {
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	name := artifactName(digest, originalName)
	finalPath := filepath.Join(dayDir, name)
	// Same directory, same filesystem: rename is atomic. Re-ingesting
	// identical content targets the same final path, so the rename also
	// makes duplicate uploads idempotent at the storage layer.
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return nil, fmt.Errorf("commit artifact: %w", err)
	}
	committed = true

	return &SaveResult{
		Digest:   digest,
		Key:      dateKey(now, name),
		Size:     size,
		Location: finalPath,
		Head:     head,
	}, nil
}

func (v *localVault) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(v.Locate(key))
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return f, nil
}

func (v *localVault) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(v.Locate(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (v *localVault) Locate(key string) string {
	rel := keyRelativeToRoot(key)
	return filepath.Join(v.root, filepath.FromSlash(rel))
}

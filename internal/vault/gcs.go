package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

const (
	ModeLocal       = "local"
	ModeGCS         = "gcs"
	ModeGCSEmulator = "gcs_emulator"
)

// gcsVault commits artifacts to a GCS bucket under the same content-derived
// keys the local tree uses. The upload is still spooled and hashed through a
// local scratch file first: the object key cannot exist before the digest
// does.
type gcsVault struct {
	client   *storage.Client
	bucket   string
	maxBytes int64
	log      *logger.Logger
	now      func() time.Time
}

func NewGCSVault(ctx context.Context, mode, bucket string, maxBytes int64, baseLog *logger.Logger) (Vault, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS_BUCKET required for storage mode %q", mode)
	}
	var client *storage.Client
	var err error
	switch mode {
	case ModeGCS:
		opts := clientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		client, err = storage.NewClient(ctx, opts...)
	case ModeGCSEmulator:
		host := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")
		if host == "" {
			return nil, fmt.Errorf("storage mode %q requires STORAGE_EMULATOR_HOST", mode)
		}
		_ = os.Setenv("STORAGE_EMULATOR_HOST", host)
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", mode)
	}
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &gcsVault{
		client:   client,
		bucket:   bucket,
		maxBytes: maxBytes,
		log:      baseLog.With("service", "GCSVault", "bucket", bucket),
		now:      time.Now,
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (v *gcsVault) Save(ctx context.Context, originalName string, r io.Reader, declaredSize int64) (*SaveResult, error) {
	if v.maxBytes > 0 && declaredSize > v.maxBytes {
		return nil, ErrFileTooLarge
	}

	scratch, err := os.CreateTemp("", "filevault-spool-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}
	defer func() {
		_ = scratch.Close()
		_ = os.Remove(scratch.Name())
	}()

	digest, size, head, err := hashingCopy(ctx, scratch, r, v.maxBytes)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	key := dateKey(now, artifactName(digest, originalName))
	res := &SaveResult{
		Digest:   digest,
		Key:      key,
		Size:     size,
		Location: v.Locate(key),
		Head:     head,
	}

	obj := v.client.Bucket(v.bucket).Object(key)
	// Content-derived keys make re-uploads idempotent; skip the redundant
	// network write when the object is already committed.
	if _, attrsErr := obj.Attrs(ctx); attrsErr == nil {
		v.log.Debug("artifact already committed, skipping upload", "key", key)
		return res, nil
	} else if !errors.Is(attrsErr, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("check object %s: %w", key, attrsErr)
	}

	if _, err := scratch.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind scratch file: %w", err)
	}
	w := obj.NewWriter(ctx)
	if _, err := io.Copy(w, scratch); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("upload artifact %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("commit artifact %s: %w", key, err)
	}
	return res, nil
}

func (v *gcsVault) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rd, err := v.client.Bucket(v.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", key, err)
	}
	return rd, nil
}

func (v *gcsVault) Exists(ctx context.Context, key string) (bool, error) {
	_, err := v.client.Bucket(v.bucket).Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	return false, err
}

func (v *gcsVault) Locate(key string) string {
	return fmt.Sprintf("gs://%s/%s", v.bucket, key)
}

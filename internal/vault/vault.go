package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size
// ceiling, either by declared size or measured during the copy.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

// copyChunkSize is the unit of the fused hash-and-write loop. Memory use
// during ingestion is bounded by this, never by the payload size.
const copyChunkSize = 8 * 1024

// headProbeSize bounds how many leading bytes are retained for content
// sniffing and image dimension probing.
const headProbeSize = 8 * 1024

// SaveResult describes one committed artifact.
type SaveResult struct {
	// Digest is the lowercase hex SHA-256 of the full content, 64 chars.
	Digest string
	// Key is the storage-relative path of the artifact, forward slashes:
	// uploads/<YYYY>/<MM>/<DD>/<first-16-hex>_<sanitized-stem><ext>.
	Key string
	// Size is the measured byte count.
	Size int64
	// Location is the durable absolute location handed to downstream
	// consumers: a filesystem path or a gs:// URL depending on mode.
	Location string
	// Head holds up to the first 8 KiB of content for metadata probing.
	Head []byte
}

// Vault stores uploaded content under its content-derived key. Committed
// artifacts are immutable; Save owns the write path exclusively.
type Vault interface {
	// Save streams r to durable storage while hashing it in a single pass
	// and commits the bytes under their content-derived key. Saving
	// identical content twice is idempotent: same digest, same key.
	// declaredSize, when non-negative, is checked against the ceiling
	// before any byte is read.
	Save(ctx context.Context, originalName string, r io.Reader, declaredSize int64) (*SaveResult, error)
	// Open returns the committed content for a key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Exists reports whether an artifact is committed at key.
	Exists(ctx context.Context, key string) (bool, error)
	// Locate maps a key to the durable absolute location Save would report.
	Locate(key string) string
}

var unsafeNameChars = regexp.MustCompile(`[^0-9A-Za-z.\-_]`)

// SanitizeName replaces every byte outside [0-9A-Za-z.-_] with an
// underscore so user-chosen names cannot escape or pollute the storage
// namespace.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// artifactName derives the final filename for a digest and the original
// upload name: <first 16 hex of digest>_<sanitized-stem><sanitized-ext>.
// The digest prefix de-collides unrelated files that share a user-chosen
// name and makes every artifact content-traceable.
func artifactName(digest, originalName string) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s%s", digest[:16], SanitizeName(stem), SanitizeName(ext))
}

// dateKey builds the storage-relative key for an artifact committed now:
// uploads/<YYYY>/<MM>/<DD>/<name>, always forward-slashed.
func dateKey(now time.Time, name string) string {
	return path.Join(
		"uploads",
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%02d", now.Day()),
		name,
	)
}

// keyRelativeToRoot strips the leading uploads/ segment: the configured
// root directory is the uploads tree itself.
func keyRelativeToRoot(key string) string {
	return strings.TrimPrefix(path.Clean(key), "uploads/")
}

// hashingCopy drives the single-pass pipeline: it reads r in fixed-size
// chunks, feeds each chunk to the SHA-256 accumulator, retains a bounded
// head for probing, and writes the chunk verbatim to w. It fails with
// ErrFileTooLarge as soon as the running count passes maxBytes.
func hashingCopy(ctx context.Context, w io.Writer, r io.Reader, maxBytes int64) (digest string, size int64, head []byte, err error) {
	h := sha256.New()
	buf := make([]byte, copyChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return "", size, head, err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			size += int64(n)
			if maxBytes > 0 && size > maxBytes {
				return "", size, head, ErrFileTooLarge
			}
			chunk := buf[:n]
			if room := headProbeSize - len(head); room > 0 {
				take := chunk
				if len(take) > room {
					take = take[:room]
				}
				head = append(head, take...)
			}
			h.Write(chunk)
			if _, err := w.Write(chunk); err != nil {
				return "", size, head, fmt.Errorf("write chunk: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", size, head, fmt.Errorf("read upload stream: %w", readErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), size, head, nil
}

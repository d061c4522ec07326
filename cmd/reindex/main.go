// Command reindex rebuilds the digest existence index from an upload tree.
// It walks UPLOAD_ROOT, hashes every committed artifact, and inserts any
// digest the index is missing. Safe to run against a live tree: inserts
// are conflict-tolerant and in-flight temp files are skipped.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/filevault-backend/internal/data/db"
	"github.com/yungbote/filevault-backend/internal/data/repos"
	"github.com/yungbote/filevault-backend/internal/platform/dbctx"
	"github.com/yungbote/filevault-backend/internal/platform/envutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

const hashWorkers = 8

func main() {
	log, err := logger.New(envutil.Str("LOG_MODE", "development"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	root := envutil.Str("UPLOAD_ROOT", "./uploads")

	dbSvc, err := db.New(log)
	if err != nil {
		log.Error("init database", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAll(dbSvc.DB()); err != nil {
		log.Error("automigrate", "error", err)
		os.Exit(1)
	}
	fileHashes := repos.NewFileHashRepo(dbSvc.DB(), log)

	var scanned, inserted, skipped, failed int64

	ctx := context.Background()
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(hashWorkers)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// In-flight writes carry a temp prefix until the commit rename.
		if strings.HasPrefix(d.Name(), ".tmp-") {
			atomic.AddInt64(&skipped, 1)
			return nil
		}
		g.Go(func() error {
			atomic.AddInt64(&scanned, 1)
			digest, err := digestFile(path)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn("hash failed", "path", path, "error", err)
				return nil
			}
			created, err := fileHashes.InsertIfAbsent(dbctx.Context{Ctx: gCtx}, digest)
			if err != nil {
				atomic.AddInt64(&failed, 1)
				log.Warn("index insert failed", "path", path, "digest", digest, "error", err)
				return nil
			}
			if created {
				atomic.AddInt64(&inserted, 1)
			}
			return nil
		})
		return nil
	})
	if walkErr != nil {
		log.Error("walk upload tree", "root", root, "error", walkErr)
		os.Exit(1)
	}
	if err := g.Wait(); err != nil {
		log.Error("reindex aborted", "error", err)
		os.Exit(1)
	}

	log.Info("reindex complete",
		"root", root,
		"scanned", atomic.LoadInt64(&scanned),
		"inserted", atomic.LoadInt64(&inserted),
		"skipped_temp", atomic.LoadInt64(&skipped),
		"failed", atomic.LoadInt64(&failed),
	)
	fmt.Printf("scanned=%d inserted=%d skipped_temp=%d failed=%d\n",
		atomic.LoadInt64(&scanned), atomic.LoadInt64(&inserted),
		atomic.LoadInt64(&skipped), atomic.LoadInt64(&failed))
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

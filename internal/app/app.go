package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/data/db"
	"github.com/yungbote/filevault-backend/internal/data/repos"
	httpx "github.com/yungbote/filevault-backend/internal/http"
	httpH "github.com/yungbote/filevault-backend/internal/http/handlers"
	"github.com/yungbote/filevault-backend/internal/jobs"
	"github.com/yungbote/filevault-backend/internal/jobs/detect"
	"github.com/yungbote/filevault-backend/internal/observability"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/queue"
	"github.com/yungbote/filevault-backend/internal/services"
	"github.com/yungbote/filevault-backend/internal/vault"
)

const shutdownGrace = 5 * time.Second

type Services struct {
	Ingest    services.IngestService
	HashCheck services.HashCheckService
	Detect    services.DetectService
}

type Repos struct {
	FileHashes repos.FileHashRepo
	DetectJobs repos.DetectJobRepo
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    Repos
	Services Services
	Vault    vault.Vault
	Queue    queue.TaskQueue
	Worker   *jobs.Worker

	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Sync()
		return nil, err
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "filevault-backend",
		Environment: cfg.LogMode,
	})

	dbSvc, err := db.New(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	theDB := dbSvc.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	v, err := buildVault(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	tasks, err := buildQueue(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := Repos{
		FileHashes: repos.NewFileHashRepo(theDB, log),
		DetectJobs: repos.NewDetectJobRepo(theDB, log),
	}

	detectSvc := services.NewDetectService(theDB, log, reposet.DetectJobs, tasks)
	serviceset := Services{
		Detect:    detectSvc,
		Ingest:    services.NewIngestService(theDB, log, v, reposet.FileHashes, detectSvc, cfg.MaxUploadBytes),
		HashCheck: services.NewHashCheckService(theDB, log, reposet.FileHashes),
	}

	pipeline := detect.NewPipeline(log, reposet.DetectJobs, v, detect.LoadSpec(log))
	worker := jobs.NewWorker(theDB, log, reposet.DetectJobs, tasks, pipeline, cfg.WorkerCount)

	routerCfg := httpx.RouterConfig{
		Log:           log,
		UploadHandler: httpH.NewUploadHandler(log, serviceset.Ingest, cfg.MaxUploadBytes),
		HashHandler:   httpH.NewHashHandler(log, serviceset.HashCheck),
		JobHandler:    httpH.NewJobHandler(serviceset.Detect),
		HealthHandler: httpH.NewHealthHandler(),
		ClientOrigins: cfg.ClientOrigins,
		TracingOn:     cfg.TracingOn,
	}
	if cfg.StorageMode == vault.ModeLocal {
		routerCfg.StaticUploadRoot = cfg.UploadRoot
	}

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       httpx.NewRouter(routerCfg),
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Vault:        v,
		Queue:        tasks,
		Worker:       worker,
		otelShutdown: otelShutdown,
	}, nil
}

func buildVault(ctx context.Context, cfg Config, log *logger.Logger) (vault.Vault, error) {
	switch cfg.StorageMode {
	case vault.ModeLocal:
		return vault.NewLocalVault(cfg.UploadRoot, cfg.MaxUploadBytes, log)
	case vault.ModeGCS, vault.ModeGCSEmulator:
		return vault.NewGCSVault(ctx, cfg.StorageMode, cfg.GCSBucket, cfg.MaxUploadBytes, log)
	default:
		return nil, &ConfigError{Code: "bad_storage_mode", Detail: fmt.Sprintf("unsupported STORAGE_MODE %q", cfg.StorageMode)}
	}
}

// buildQueue backs the detect queue with Redis when REDIS_ADDR is set and
// falls back to an in-process queue otherwise. The in-process queue loses
// wakeups on restart; startup recovery re-pushes queued rows either way.
func buildQueue(cfg Config, log *logger.Logger) (queue.TaskQueue, error) {
	if cfg.RedisAddr != "" {
		q, err := queue.NewRedisQueue(log, cfg.RedisAddr, cfg.RedisPassword, cfg.QueueKey)
		if err != nil {
			return nil, fmt.Errorf("init redis queue: %w", err)
		}
		return q, nil
	}
	log.Warn("REDIS_ADDR not set; using in-process detect queue")
	return queue.NewMemoryQueue(0), nil
}

// Start launches the detect worker pool. Startup recovery runs first so
// jobs stranded by a crash or queue flush get re-pushed before workers
// begin waiting for new ones.
func (a *App) Start(ctx context.Context) {
	if a == nil || a.cancel != nil {
		return
	}
	workerCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if err := a.Worker.Recover(workerCtx); err != nil {
		a.Log.Error("detect job recovery failed", "error", err)
	}
	a.Worker.Start(workerCtx)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Queue != nil {
		_ = a.Queue.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

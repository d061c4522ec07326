package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/filevault-backend/internal/http/handlers"
	httpMW "github.com/yungbote/filevault-backend/internal/http/middleware"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	UploadHandler *httpH.UploadHandler
	HashHandler   *httpH.HashHandler
	JobHandler    *httpH.JobHandler
	HealthHandler *httpH.HealthHandler

	ClientOrigins []string
	TracingOn     bool

	// StaticUploadRoot, when set, serves the committed upload tree
	// read-only at /uploads (local storage mode only).
	StaticUploadRoot string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingOn {
		r.Use(otelgin.Middleware("filevault-backend"))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.ClientOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.UploadHandler != nil {
			api.POST("/upload", cfg.UploadHandler.Upload)
		}
		if cfg.HashHandler != nil {
			api.POST("/hashes/check", cfg.HashHandler.CheckHashes)
		}
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	if cfg.StaticUploadRoot != "" {
		// Directory listing stays off; artifacts are immutable files.
		r.StaticFS("/uploads", gin.Dir(cfg.StaticUploadRoot, false))
	}

	return r
}

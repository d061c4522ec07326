package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/filevault-backend/internal/platform/envutil"
	"github.com/yungbote/filevault-backend/internal/vault"
)

const defaultMaxUploadBytes = 25 << 20 // 25MiB ceiling, enforced again during the streaming copy

// ConfigError carries a machine-readable code so startup failures can be
// matched in tests and ops tooling without string comparison.
type ConfigError struct {
	Code   string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Code, e.Detail)
}

type Config struct {
	Port    string
	LogMode string

	ClientOrigins []string

	// Storage
	StorageMode    string // local | gcs | gcs_emulator
	UploadRoot     string
	GCSBucket      string
	MaxUploadBytes int64

	// Queue
	RedisAddr     string
	RedisPassword string
	QueueKey      string

	// Detect worker
	WorkerCount    int
	DetectSpecPath string

	TracingOn bool
}

func LoadConfig() Config {
	return Config{
		Port:           envutil.Str("PORT", "8080"),
		LogMode:        envutil.Str("LOG_MODE", "development"),
		ClientOrigins:  splitOrigins(envutil.Str("CLIENT_ORIGINS", "")),
		StorageMode:    strings.ToLower(envutil.Str("STORAGE_MODE", vault.ModeLocal)),
		UploadRoot:     envutil.Str("UPLOAD_ROOT", "./uploads"),
		GCSBucket:      envutil.Str("GCS_BUCKET", ""),
		MaxUploadBytes: envutil.Int64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		RedisAddr:      envutil.Str("REDIS_ADDR", ""),
		RedisPassword:  envutil.Str("REDIS_PASSWORD", ""),
		QueueKey:       envutil.Str("DETECT_QUEUE_KEY", "filevault:detect:queue"),
		WorkerCount:    envutil.Int("DETECT_WORKER_COUNT", 2),
		DetectSpecPath: envutil.Str("DETECT_PIPELINE_YAML", ""),
		TracingOn:      envutil.Bool("OTEL_ENABLED", false),
	}
}

func (c Config) Validate() error {
	switch c.StorageMode {
	case vault.ModeLocal:
		if strings.TrimSpace(c.UploadRoot) == "" {
			return &ConfigError{Code: "upload_root_required", Detail: "UPLOAD_ROOT must be set for local storage"}
		}
	case vault.ModeGCS, vault.ModeGCSEmulator:
		if strings.TrimSpace(c.GCSBucket) == "" {
			return &ConfigError{Code: "gcs_bucket_required", Detail: "GCS_BUCKET must be set for " + c.StorageMode + " storage"}
		}
	default:
		return &ConfigError{Code: "bad_storage_mode", Detail: fmt.Sprintf("unsupported STORAGE_MODE %q", c.StorageMode)}
	}
	if c.MaxUploadBytes <= 0 {
		return &ConfigError{Code: "bad_max_upload", Detail: "MAX_UPLOAD_BYTES must be positive"}
	}
	if c.WorkerCount <= 0 {
		return &ConfigError{Code: "bad_worker_count", Detail: "DETECT_WORKER_COUNT must be positive"}
	}
	return nil
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

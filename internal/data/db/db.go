package db

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/envutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

// Service owns the gorm handle. DB_DRIVER selects the backing store:
// postgres (default) for deployments, sqlite for single-box setups.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(logg *logger.Logger) (*Service, error) {
	driver := strings.ToLower(envutil.Str("DB_DRIVER", "postgres"))
	switch driver {
	case "postgres":
		return newPostgres(logg)
	case "sqlite":
		return newSQLite(logg)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

func (s *Service) DB() *gorm.DB { return s.db }

package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/envutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

func newSQLite(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "SQLiteService")

	path := envutil.Str("SQLITE_PATH", "filevault.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", path, err)
	}

	// Serialized writes; the unique digest constraint still guards races.
	if err := db.Exec(`PRAGMA busy_timeout = 5000;`).Error; err != nil {
		return nil, fmt.Errorf("failed to set busy_timeout: %w", err)
	}

	serviceLog.Info("Opened SQLite database", "path", path)
	return &Service{db: db, log: serviceLog}, nil
}

package db

import (
	types "github.com/yungbote/filevault-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Existence index
		&types.FileHash{},

		// Async detection
		&types.DetectJob{},
	)
}

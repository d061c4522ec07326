package files

import (
	"time"

	"github.com/google/uuid"
)

// FileHash is one row of the existence index: one distinct file content
// ever ingested, keyed by its SHA-256 digest. Rows are created once and
// never mutated or deleted.
type FileHash struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Digest    string    `gorm:"column:digest;size:255;not null;uniqueIndex" json:"digest"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (FileHash) TableName() string { return "file_hash" }

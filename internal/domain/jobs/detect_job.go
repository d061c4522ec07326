package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// DetectJob tracks one asynchronous detection pass over a committed
// artifact. The row is the durable source of truth for job state; the
// Redis list only wakes workers up.
type DetectJob struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Digest     string         `gorm:"column:digest;size:255;not null;index" json:"digest"`
	ObjectKey  string         `gorm:"column:object_key;not null" json:"object_key"`
	Location   string         `gorm:"column:location;not null" json:"location"`
	Status     string         `gorm:"column:status;not null;index" json:"status"`
	Stage      string         `gorm:"column:stage" json:"stage,omitempty"`
	Attempts   int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Error      string         `gorm:"column:error" json:"error,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result     datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	StartedAt  *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null" json:"updated_at"`
}

func (DetectJob) TableName() string { return "detect_job" }

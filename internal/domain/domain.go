package domain

import (
	"github.com/yungbote/filevault-backend/internal/domain/files"
	"github.com/yungbote/filevault-backend/internal/domain/jobs"
)

const (
	DetectJobStatusQueued  = jobs.StatusQueued
	DetectJobStatusRunning = jobs.StatusRunning
	DetectJobStatusDone    = jobs.StatusDone
	DetectJobStatusFailed  = jobs.StatusFailed
)

type FileHash = files.FileHash
type DetectJob = jobs.DetectJob

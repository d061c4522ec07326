package repos

import (
	"github.com/yungbote/filevault-backend/internal/data/repos/files"
	"github.com/yungbote/filevault-backend/internal/data/repos/jobs"
)

type FileHashRepo = files.FileHashRepo
type DetectJobRepo = jobs.DetectJobRepo

var NewFileHashRepo = files.NewFileHashRepo
var NewDetectJobRepo = jobs.NewDetectJobRepo

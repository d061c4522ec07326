package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/filevault-backend/internal/http/response"
	pkgerrors "github.com/yungbote/filevault-backend/internal/pkg/errors"
	"github.com/yungbote/filevault-backend/internal/services"
)

type JobHandler struct {
	detect services.DetectService
}

func NewJobHandler(detect services.DetectService) *JobHandler {
	return &JobHandler{detect: detect}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", errors.New("job id must be a UUID"))
		return
	}
	job, err := h.detect.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "job_not_found", errors.New("job not found"))
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", errors.New("failed to load job"))
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}

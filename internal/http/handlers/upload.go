package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/filevault-backend/internal/http/response"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

// Client-facing messages are part of the API contract; keep them byte-exact.
var (
	errFileRequired = errors.New("file parameter is required")
	errFileTooLarge = errors.New("file size exceeds maximum allowed size of 25MB")
	errUploadFailed = errors.New("failed to store uploaded file")
)

type UploadHandler struct {
	log      *logger.Logger
	ingest   services.IngestService
	maxBytes int64
}

func NewUploadHandler(baseLog *logger.Logger, ingest services.IngestService, maxBytes int64) *UploadHandler {
	return &UploadHandler{
		log:      baseLog.With("handler", "UploadHandler"),
		ingest:   ingest,
		maxBytes: maxBytes,
	}
}

// POST /api/upload
func (h *UploadHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "file_required", errFileRequired)
		return
	}

	// Declared-size precheck: reject before reading the body where the
	// multipart header already tells us it cannot fit.
	if h.maxBytes > 0 && fileHeader.Size > h.maxBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errFileTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error("failed to open multipart file", "error", err, "filename", fileHeader.Filename)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", errUploadFailed)
		return
	}
	defer file.Close()

	res, err := h.ingest.Ingest(c.Request.Context(), fileHeader.Filename, file, fileHeader.Size)
	if err != nil {
		if errors.Is(err, services.ErrFileTooLarge) {
			response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", errFileTooLarge)
			return
		}
		// Full detail stays server-side; the client gets a generic message.
		h.log.Error("ingest failed", "error", err, "filename", fileHeader.Filename)
		response.RespondError(c, http.StatusInternalServerError, "upload_failed", errUploadFailed)
		return
	}

	response.RespondCreated(c, res)
}

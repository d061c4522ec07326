package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/filevault-backend/internal/http/response"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

const maxHashBatch = 1000

var (
	errInvalidBody     = errors.New("invalid JSON body")
	errHashesNotArray  = errors.New("hashes must be an array")
	errTooManyHashes   = errors.New("maximum 1000 hashes allowed per request")
	errHashCheckFailed = errors.New("failed to check hashes")
)

type HashHandler struct {
	log    *logger.Logger
	hashes services.HashCheckService
}

func NewHashHandler(baseLog *logger.Logger, hashes services.HashCheckService) *HashHandler {
	return &HashHandler{
		log:    baseLog.With("handler", "HashHandler"),
		hashes: hashes,
	}
}

type checkHashesRequest struct {
	Hashes json.RawMessage `json:"hashes"`
}

// POST /api/hashes/check
func (h *HashHandler) CheckHashes(c *gin.Context) {
	var body checkHashesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", errInvalidBody)
		return
	}

	candidates, ok := coerceCandidates(body.Hashes)
	if !ok {
		response.RespondError(c, http.StatusBadRequest, "invalid_hashes", errHashesNotArray)
		return
	}
	// The cap applies to the raw batch, before normalization.
	if len(candidates) > maxHashBatch {
		response.RespondError(c, http.StatusBadRequest, "too_many_hashes", errTooManyHashes)
		return
	}

	result, err := h.hashes.CheckExistence(c.Request.Context(), candidates)
	if err != nil {
		h.log.Error("hash existence check failed", "error", err, "batch_size", len(candidates))
		response.RespondError(c, http.StatusInternalServerError, "hash_check_failed", errHashCheckFailed)
		return
	}
	response.RespondOK(c, result)
}

// coerceCandidates interprets the raw hashes field: absent or null is an
// empty batch, a lone string is a one-element batch, an array is taken as
// is. Anything else is a shape error.
func coerceCandidates(raw json.RawMessage) ([]interface{}, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []interface{}{}, true
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, false
		}
		return []interface{}{s}, true
	case '[':
		var arr []interface{}
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil, false
		}
		return arr, true
	default:
		return nil, false
	}
}

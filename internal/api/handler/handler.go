package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"peerprep/backend/internal/matchhub"
	"peerprep/backend/internal/matching"
	"peerprep/backend/internal/models"
	"peerprep/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler wires the HTTP API to the coordinator, the push hub and storage.
type Handler struct {
	Matching *matching.Coordinator
	Hub      *matchhub.Hub
	Storage  storage.Storage

	// JWTSecret enables token issuing and per-user authorization when set.
	JWTSecret []byte
	// AllowedOrigins limits WebSocket upgrades; empty or "*" allows any origin.
	AllowedOrigins []string
}

func NewHandler(coordinator *matching.Coordinator, hub *matchhub.Hub, store storage.Storage) *Handler {
	return &Handler{
		Matching: coordinator,
		Hub:      hub,
		Storage:  store,
	}
}

// respondError maps domain errors onto status codes.
func respondError(c *gin.Context, err error) {
	var validation *models.ValidationError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": validation.Field})
	case errors.Is(err, matching.ErrUnknownSession),
		errors.Is(err, matching.ErrNoPendingRequest),
		errors.Is(err, storage.ErrMatchNotFound),
		errors.Is(err, storage.ErrPreferenceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrAlreadyMatched),
		errors.Is(err, matching.ErrDuplicateDecision):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, matching.ErrShuttingDown):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// holdDuration reads a hold time from the query: a Go duration ("15s") or
// plain seconds ("15"). Missing means def; the result never exceeds limit.
func holdDuration(c *gin.Context, key string, def, limit time.Duration) (time.Duration, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		secs, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return 0, &models.ValidationError{Field: key, Reason: "must be a duration"}
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, &models.ValidationError{Field: key, Reason: "cannot be negative"}
	}
	return min(d, limit), nil
}

// Health reports liveness and the coordinator's load.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"waiting":  len(h.Matching.Waiting()),
		"sessions": h.Matching.ActiveSessions(),
	})
}

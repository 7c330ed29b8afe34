package handler

import (
	"errors"
	"net/http"
	"strconv"

	"peerprep/backend/internal/models"
	"peerprep/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

const defaultHistoryLimit = 20

func (h *Handler) PutPreference(c *gin.Context) {
	var req models.PreferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &models.ValidationError{Field: "body", Reason: "is not valid JSON"})
		return
	}
	req.UserID = c.Param("userId")

	set, err := models.NewPreferenceSet(req)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := h.Storage.UpsertPreference(set.ToUserPreference()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *Handler) GetPreference(c *gin.Context) {
	pref, err := h.Storage.GetPreference(c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *Handler) DeletePreference(c *gin.Context) {
	err := h.Storage.DeletePreference(c.Param("userId"))
	if err != nil && !errors.Is(err, storage.ErrPreferenceNotFound) {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// History lists the user's past matches, newest first. ?limit= caps the list.
func (h *Handler) History(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, &models.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		limit = n
	}

	history, err := h.Storage.GetMatchesForUser(c.Param("userId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if history == nil {
		history = []models.MatchRecord{}
	}
	c.JSON(http.StatusOK, history)
}

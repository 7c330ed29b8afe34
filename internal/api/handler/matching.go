package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"peerprep/backend/internal/config"
	"peerprep/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// RequestMatch registers the user's preferences. An empty body reuses the
// saved preference. ?wait= holds the call open until a match or the hold ends.
func (h *Handler) RequestMatch(c *gin.Context) {
	userID := c.Param("userId")

	hold, err := holdDuration(c, "wait", 0, config.MaxRequestHold)
	if err != nil {
		respondError(c, err)
		return
	}

	req, err := h.preferenceRequest(c, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	prefs, err := models.NewPreferenceSet(req)
	if err != nil {
		respondError(c, err)
		return
	}

	out, err := h.Matching.RequestMatch(c.Request.Context(), prefs)
	if err != nil {
		respondError(c, err)
		return
	}

	if out.Status == models.OutcomeWaiting && hold > 0 {
		ctx, cancel := context.WithTimeout(c.Request.Context(), hold)
		defer cancel()
		out, err = h.Matching.AwaitMatch(ctx, userID)
		if errors.Is(err, context.Canceled) {
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
	}

	writeOutcome(c, out)
}

func (h *Handler) preferenceRequest(c *gin.Context, userID string) (models.PreferenceRequest, error) {
	var req models.PreferenceRequest

	body, err := c.GetRawData()
	if err != nil {
		return req, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		saved, err := h.Storage.GetPreference(userID)
		if err != nil {
			return req, &models.ValidationError{Field: "body", Reason: "is empty and no saved preference exists"}
		}
		set, err := saved.PreferenceSet()
		if err != nil {
			return req, err
		}
		return set.Request(), nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, &models.ValidationError{Field: "body", Reason: "is not valid JSON"}
	}
	req.UserID = userID
	return req, nil
}

func writeOutcome(c *gin.Context, out models.Outcome) {
	if out.Status == models.OutcomeWaiting {
		c.JSON(http.StatusAccepted, out)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AwaitMatch long-polls for the outcome of the user's pending request.
func (h *Handler) AwaitMatch(c *gin.Context) {
	hold, err := holdDuration(c, "timeout", config.MaxRequestHold, config.MaxRequestHold)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), hold)
	defer cancel()

	out, err := h.Matching.AwaitMatch(ctx, c.Param("userId"))
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	writeOutcome(c, out)
}

// Connect blocks until the user's session resolves and reports SUCCESS or
// REJECTED. A hold that runs out answers 202 PENDING.
func (h *Handler) Connect(c *gin.Context) {
	hold, err := holdDuration(c, "timeout", config.MaxConnectHold, config.MaxConnectHold)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), hold)
	defer cancel()

	res, err := h.Matching.AwaitResolution(ctx, c.Param("userId"))
	if errors.Is(err, context.Canceled) {
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	status := res.WireStatus()
	body := gin.H{"status": status, "matchId": res.MatchID, "state": res.State}
	if res.ResolvedBy != "" {
		body["resolvedBy"] = res.ResolvedBy
	}
	if status == models.WirePending {
		c.JSON(http.StatusAccepted, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) Accept(c *gin.Context) {
	matchID := c.Param("matchId")
	state, err := h.Matching.Accept(c.Param("userId"), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchId": matchID, "status": state})
}

func (h *Handler) Reject(c *gin.Context) {
	matchID := c.Param("matchId")
	state, err := h.Matching.Reject(c.Param("userId"), matchID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matchId": matchID, "status": state})
}

// Cancel withdraws a wait or vetoes a session. It never fails.
func (h *Handler) Cancel(c *gin.Context) {
	result := h.Matching.Cancel(c.Param("userId"))

	status := string(models.OutcomeCancelled)
	if result == models.CancelNone {
		status = string(models.CancelNone)
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "result": result})
}

func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.Matching.Status(c.Param("userId")))
}

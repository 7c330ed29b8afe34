package handler

import (
	"log"
	"net/http"
	"slices"

	"peerprep/backend/internal/matchhub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 || slices.Contains(h.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(h.AllowedOrigins, origin)
}

// ServeWebSocket upgrades the request and attaches the socket to the hub as
// the user's push channel.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := c.Param("userId")

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the failure response.
		log.Printf("WARNING: websocket upgrade failed for %s: %v", userID, err)
		return
	}

	client := matchhub.NewWebSocketClient(userID, conn, h.Hub)
	h.Hub.RegisterCh <- client
	client.Run()
}

package handler

import "github.com/gin-gonic/gin"

// BasePath prefixes every route of the matching API.
const BasePath = "/api/matching-service"

// RegisterRoutes mounts the API on r. Per-user routes go through RequireUser.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group(BasePath)

	api.GET("/health", h.Health)
	api.GET("/auth/token", h.IssueToken)

	user := api.Group("", h.RequireUser())
	user.POST("/request-match/:userId", h.RequestMatch)
	user.GET("/await-match/:userId", h.AwaitMatch)
	user.POST("/accept/:userId/:matchId", h.Accept)
	user.POST("/reject/:userId/:matchId", h.Reject)
	user.POST("/cancel/:userId", h.Cancel)
	user.DELETE("/cancel-match/:userId", h.Cancel)
	user.GET("/status/:userId", h.Status)
	user.GET("/history/:userId", h.History)

	user.PUT("/preferences/:userId", h.PutPreference)
	user.GET("/preferences/:userId", h.GetPreference)
	user.DELETE("/preferences/:userId", h.DeletePreference)

	user.GET("/ws/:userId", h.ServeWebSocket)

	// Connect: blocks until the user's session resolves.
	user.GET("/:userId", h.Connect)
	user.POST("/:userId", h.Connect)
}

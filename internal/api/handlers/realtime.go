package handlers

import (
	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RealtimeHandler upgrades authenticated requests to websocket connections
type RealtimeHandler struct {
	hub *realtime.Hub
}

// NewRealtimeHandler creates a new realtime handler
func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// Connect serves a websocket until the client disconnects
func (h *RealtimeHandler) Connect(c *gin.Context) {
	userID := middleware.UserID(c)
	// The upgrader has already answered the request when this fails
	if err := h.hub.ServeWS(c.Writer, c.Request, userID); err != nil {
		log.Warn().Err(err).Str("user_id", userID.String()).Msg("Websocket upgrade failed")
	}
}

// RegisterRoutes registers the handler's routes
func (h *RealtimeHandler) RegisterRoutes(router gin.IRoutes, requireAuth gin.HandlerFunc) {
	router.GET("/ws", requireAuth, h.Connect)
}

package handlers

import (
	"net/http"

	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/services"

	"github.com/gin-gonic/gin"
)

// ParticipantHandler handles participant management requests
type ParticipantHandler struct {
	participants *services.ParticipantService
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(participants *services.ParticipantService) *ParticipantHandler {
	return &ParticipantHandler{participants: participants}
}

// List returns an event's confirmed attendees
func (h *ParticipantHandler) List(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	attendees, err := h.participants.List(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendees)
}

// Kick removes a participant; only the event creator may do so
func (h *ParticipantHandler) Kick(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	userID, ok := paramID(c, "userId")
	if !ok {
		return
	}
	if err := h.participants.Kick(c.Request.Context(), middleware.UserID(c), eventID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Leave removes the caller from an event
func (h *ParticipantHandler) Leave(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.participants.Leave(c.Request.Context(), middleware.UserID(c), eventID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *ParticipantHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := api.Group("/events/:id")
	g.GET("/participants", h.List)
	g.DELETE("/participants/:userId", requireAuth, h.Kick)
	g.POST("/leave", requireAuth, h.Leave)
}

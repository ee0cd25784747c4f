package handlers

import (
	"net/http"
	"strings"

	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/services"

	"github.com/gin-gonic/gin"
)

// RSVPHandler handles RSVP requests
type RSVPHandler struct {
	rsvps *services.RSVPService
}

// NewRSVPHandler creates a new RSVP handler
func NewRSVPHandler(rsvps *services.RSVPService) *RSVPHandler {
	return &RSVPHandler{rsvps: rsvps}
}

// Upsert creates or partially updates the caller's RSVP
func (h *RSVPHandler) Upsert(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpsertRSVPInput
	if !bindJSON(c, &req) {
		return
	}
	rsvp, err := h.rsvps.Upsert(c.Request.Context(), middleware.UserID(c), eventID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rsvp)
}

// Get returns the caller's RSVP
func (h *RSVPHandler) Get(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	rsvp, err := h.rsvps.Get(c.Request.Context(), middleware.UserID(c), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rsvp)
}

// Remove deletes the caller's RSVP
func (h *RSVPHandler) Remove(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.rsvps.Remove(c.Request.Context(), middleware.UserID(c), eventID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List returns an event's RSVPs, optionally filtered by ?status=
func (h *RSVPHandler) List(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var status *models.RSVPStatus
	if raw := c.Query("status"); raw != "" {
		s := models.RSVPStatus(strings.ToUpper(raw))
		if !s.Valid() {
			badRequest(c, "Invalid status")
			return
		}
		status = &s
	}

	attendees, err := h.rsvps.ListForEvent(c.Request.Context(), eventID, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, attendees)
}

// Counts returns per-status totals for an event
func (h *RSVPHandler) Counts(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	counts, err := h.rsvps.Counts(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}

// RegisterRoutes registers the handler's routes
func (h *RSVPHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := api.Group("/events/:id")
	g.POST("/rsvp", requireAuth, h.Upsert)
	g.GET("/rsvp", requireAuth, h.Get)
	g.DELETE("/rsvp", requireAuth, h.Remove)
	g.GET("/rsvps", h.List)
	g.GET("/rsvps/counts", h.Counts)
}

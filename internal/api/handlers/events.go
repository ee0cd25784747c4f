package handlers

import (
	"net/http"
	"strings"

	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/services"

	"github.com/gin-gonic/gin"
)

// EventHandler handles event requests
type EventHandler struct {
	events *services.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// Create stores a new event owned by the caller
func (h *EventHandler) Create(c *gin.Context) {
	var req services.CreateEventInput
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.events.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// List returns public events
func (h *EventHandler) List(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset")
	if !ok {
		return
	}

	events, err := h.events.List(c.Request.Context(), services.ListEventsInput{
		UpcomingOnly: c.Query("upcoming") == "true",
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Search finds public upcoming events by text
func (h *EventHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		badRequest(c, "Query parameter q is required")
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	events, err := h.events.Search(c.Request.Context(), q, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Created returns the caller's own events
func (h *EventHandler) Created(c *gin.Context) {
	events, err := h.events.ListCreatedBy(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Participating returns the events the caller is attending or might attend
func (h *EventHandler) Participating(c *gin.Context) {
	events, err := h.events.ListParticipating(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Dashboard returns the caller's dashboard
func (h *EventHandler) Dashboard(c *gin.Context) {
	dash, err := h.events.Dashboard(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// Get returns one event
func (h *EventHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	event, err := h.events.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Attendees returns an event with its attendee list
func (h *EventHandler) Attendees(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	view, err := h.events.GetWithAttendees(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Dietary returns the dietary sections offered for an event
func (h *EventHandler) Dietary(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	sections, err := h.events.DietarySections(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sections)
}

// Update changes an event owned by the caller
func (h *EventHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.UpdateEventInput
	if !bindJSON(c, &req) {
		return
	}
	event, err := h.events.Update(c.Request.Context(), middleware.UserID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, event)
}

// Delete removes an event owned by the caller
func (h *EventHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.events.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *EventHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	g := api.Group("/events")
	g.GET("", h.List)
	g.POST("", requireAuth, h.Create)
	g.GET("/search", h.Search)
	g.GET("/created", requireAuth, h.Created)
	g.GET("/participating", requireAuth, h.Participating)
	g.GET("/dashboard", requireAuth, h.Dashboard)
	g.GET("/:id", h.Get)
	g.PUT("/:id", requireAuth, h.Update)
	g.DELETE("/:id", requireAuth, h.Delete)
	g.GET("/:id/attendees", h.Attendees)
	g.GET("/:id/dietary", h.Dietary)
}

package handlers

import (
	"net/http"

	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PollHandler handles poll requests
type PollHandler struct {
	polls *services.PollService
}

// NewPollHandler creates a new poll handler
func NewPollHandler(polls *services.PollService) *PollHandler {
	return &PollHandler{polls: polls}
}

type voteRequest struct {
	OptionID uuid.UUID `json:"optionId"`
}

// Create opens a poll on an event
func (h *PollHandler) Create(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req services.CreatePollInput
	if !bindJSON(c, &req) {
		return
	}
	poll, err := h.polls.Create(c.Request.Context(), middleware.UserID(c), eventID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, poll)
}

// ListForEvent returns an event's polls
func (h *PollHandler) ListForEvent(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	polls, err := h.polls.ListForEvent(c.Request.Context(), eventID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, polls)
}

// Get returns one poll with its tally
func (h *PollHandler) Get(c *gin.Context) {
	pollID, ok := paramID(c, "id")
	if !ok {
		return
	}
	poll, err := h.polls.Get(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// Vote records the caller's choice
func (h *PollHandler) Vote(c *gin.Context) {
	pollID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.OptionID == uuid.Nil {
		badRequest(c, "optionId is required")
		return
	}
	poll, err := h.polls.Vote(c.Request.Context(), middleware.UserID(c), pollID, req.OptionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// Close ends voting
func (h *PollHandler) Close(c *gin.Context) {
	pollID, ok := paramID(c, "id")
	if !ok {
		return
	}
	poll, err := h.polls.Close(c.Request.Context(), middleware.UserID(c), pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

// Delete removes a poll
func (h *PollHandler) Delete(c *gin.Context) {
	pollID, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.polls.Delete(c.Request.Context(), middleware.UserID(c), pollID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *PollHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	api.POST("/events/:id/polls", requireAuth, h.Create)
	api.GET("/events/:id/polls", h.ListForEvent)

	g := api.Group("/polls")
	g.GET("/:id", h.Get)
	g.POST("/:id/vote", requireAuth, h.Vote)
	g.POST("/:id/close", requireAuth, h.Close)
	g.DELETE("/:id", requireAuth, h.Delete)
}

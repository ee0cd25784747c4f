package handlers

import (
	"net/http"
	"time"

	"example.com/connectsphere/internal/api/middleware"
	"example.com/connectsphere/internal/services"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
)

// ChatHandler handles event chat requests
type ChatHandler struct {
	chat *services.ChatService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// Send posts a message to an event
func (h *ChatHandler) Send(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.chat.Send(c.Request.Context(), middleware.UserID(c), eventID, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// List returns a page of an event's messages. ?before accepts any common
// date format and pages backwards from it.
func (h *ChatHandler) List(c *gin.Context) {
	eventID, ok := paramID(c, "id")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			badRequest(c, "Invalid before")
			return
		}
		before = &t
	}

	messages, err := h.chat.List(c.Request.Context(), middleware.UserID(c), eventID, before, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, messages)
}

// Delete removes a message; its author or the event creator may do so
func (h *ChatHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.chat.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RegisterRoutes registers the handler's routes
func (h *ChatHandler) RegisterRoutes(api *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	api.POST("/events/:id/messages", requireAuth, h.Send)
	api.GET("/events/:id/messages", requireAuth, h.List)
	api.DELETE("/messages/:id", requireAuth, h.Delete)
}

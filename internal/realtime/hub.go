// Package realtime pushes frames to websocket clients grouped by event and by user.
package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Frame kinds pushed to clients
const (
	KindNewMessage           = "new-message"
	KindMessageDeleted       = "message-deleted"
	KindRSVPUpdated          = "rsvp-updated"
	KindRSVPRemoved          = "rsvp-removed"
	KindEventRSVPUpdated     = "event-rsvp-updated"
	KindEventRSVPRemoved     = "event-rsvp-removed"
	KindPollCreated          = "poll-created"
	KindPollVote             = "poll-vote"
	KindPollClosed           = "poll-closed"
	KindPollDeleted          = "poll-deleted"
	KindParticipantKicked    = "participant-kicked"
	KindKickedFromEvent      = "kicked-from-event"
	KindParticipantLeft      = "participant-left"
	KindParticipantLeftEvent = "participant-left-event"
	KindNotification         = "notification"
	KindEventCreated         = "event-created"
	KindEventUpdated         = "event-updated"
	KindEventDeleted         = "event-deleted"
	KindError                = "error"
)

// Broadcaster pushes frames to groups. Delivery is fire-and-forget.
type Broadcaster interface {
	EmitToEvent(eventID uuid.UUID, kind string, payload interface{})
	EmitToUser(userID uuid.UUID, kind string, payload interface{})
}

// Frame is the JSON shape of every message on the socket, in both directions
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// JoinPolicy decides whether a user may watch an event's group
type JoinPolicy func(ctx context.Context, userID, eventID uuid.UUID) bool

// EventGroup names the group of clients watching an event
func EventGroup(eventID uuid.UUID) string {
	return "event:" + eventID.String()
}

// UserGroup names the group of a user's own connections
func UserGroup(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Hub tracks connected clients and their group memberships
type Hub struct {
	mu           sync.RWMutex
	groups       map[string]map[*Client]struct{}
	clients      map[*Client]struct{}
	metrics      *metrics.Metrics
	joinPolicy   JoinPolicy
	sendBuffer   int
	pingInterval time.Duration
	writeTimeout time.Duration
	origins      []string
}

// NewHub creates an empty hub
func NewHub(cfg config.RealtimeConfig, m *metrics.Metrics) *Hub {
	h := &Hub{
		groups:       make(map[string]map[*Client]struct{}),
		clients:      make(map[*Client]struct{}),
		metrics:      m,
		sendBuffer:   cfg.SendBuffer,
		pingInterval: cfg.PingInterval,
		writeTimeout: cfg.WriteTimeout,
		origins:      cfg.AllowedOrigins,
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = 64
	}
	if h.pingInterval <= 0 {
		h.pingInterval = 30 * time.Second
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = 10 * time.Second
	}
	return h
}

// SetJoinPolicy installs the check applied to join-event requests
func (h *Hub) SetJoinPolicy(p JoinPolicy) {
	h.mu.Lock()
	h.joinPolicy = p
	h.mu.Unlock()
}

// EmitToEvent pushes a frame to everyone watching the event
func (h *Hub) EmitToEvent(eventID uuid.UUID, kind string, payload interface{}) {
	h.emit(EventGroup(eventID), kind, payload)
}

// EmitToUser pushes a frame to every connection of the user
func (h *Hub) EmitToUser(userID uuid.UUID, kind string, payload interface{}) {
	h.emit(UserGroup(userID), kind, payload)
}

func (h *Hub) emit(group, kind string, payload interface{}) {
	data, err := json.Marshal(Frame{Event: kind, Data: payload})
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("Failed to marshal realtime frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[group] {
		queued := c.enqueue(data)
		h.metrics.RecordFrame(!queued)
		if !queued {
			log.Warn().Str("group", group).Str("kind", kind).Str("user_id", c.userID.String()).Msg("Client send buffer full, dropping frame")
		}
	}
}

// Members returns the number of clients in a group
func (h *Hub) Members(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// ConnectionCount returns the number of connected clients
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(n)
	// Every connection receives its own user's frames
	h.join(c, UserGroup(c.userID))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for group := range c.groups {
		h.removeLocked(c, group)
	}
	close(c.send)
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetConnections(n)
}

func (h *Hub) join(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[c] = struct{}{}
	c.groups[group] = struct{}{}
}

func (h *Hub) leave(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, group)
}

func (h *Hub) removeLocked(c *Client, group string) {
	delete(c.groups, group)
	if members, ok := h.groups[group]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) canJoinEvent(ctx context.Context, userID, eventID uuid.UUID) bool {
	h.mu.RLock()
	policy := h.joinPolicy
	h.mu.RUnlock()
	if policy == nil {
		return true
	}
	return policy(ctx, userID, eventID)
}

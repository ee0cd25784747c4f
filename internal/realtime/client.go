package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Client commands
const (
	CommandJoinEvent  = "join-event"
	CommandLeaveEvent = "leave-event"
	CommandJoinUser   = "join-user"
	CommandLeaveUser  = "leave-user"
)

const maxMessageSize = 4096

// Client is one websocket connection of an authenticated user
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan []byte
	groups map[string]struct{} // guarded by hub.mu
}

type inboundFrame struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

func (c *Client) enqueue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// ServeWS upgrades the request and serves the connection until it closes
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return errors.Wrap(err, "failed to upgrade websocket")
	}

	c := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, h.sendBuffer),
		groups: make(map[string]struct{}),
	}
	h.register(c)

	log.Debug().Str("user_id", userID.String()).Msg("Websocket client connected")

	go c.writePump()
	c.readPump(context.WithoutCancel(r.Context()))
	return nil
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
		log.Debug().Str("user_id", c.userID.String()).Msg("Websocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.pingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.pingInterval * 2))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("user_id", c.userID.String()).Msg("Websocket read error")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reject("malformed frame")
			continue
		}
		c.handle(ctx, frame)
	}
}

func (c *Client) handle(ctx context.Context, frame inboundFrame) {
	switch frame.Event {
	case CommandJoinEvent, CommandLeaveEvent:
		eventID, err := uuid.Parse(frame.Data)
		if err != nil {
			c.reject("invalid event id")
			return
		}
		if frame.Event == CommandLeaveEvent {
			c.hub.leave(c, EventGroup(eventID))
			return
		}
		if !c.hub.canJoinEvent(ctx, c.userID, eventID) {
			c.reject("not allowed to join event")
			return
		}
		c.hub.join(c, EventGroup(eventID))
	case CommandJoinUser, CommandLeaveUser:
		// A connection may only listen to its own user's frames
		userID, err := uuid.Parse(frame.Data)
		if err != nil || userID != c.userID {
			c.reject("not allowed to join user")
			return
		}
		if frame.Event == CommandLeaveUser {
			c.hub.leave(c, UserGroup(userID))
			return
		}
		c.hub.join(c, UserGroup(userID))
	default:
		c.reject("unknown command")
	}
}

func (c *Client) reject(reason string) {
	data, err := json.Marshal(Frame{Event: KindError, Data: map[string]string{"message": reason}})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; ok {
		c.enqueue(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

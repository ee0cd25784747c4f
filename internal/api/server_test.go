package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/api"
	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime/realtimetest"
	"example.com/connectsphere/internal/services"
	"example.com/connectsphere/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type client struct {
	t       *testing.T
	handler http.Handler
}

func newClient(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	store := cache.NewLocalStore("test:")
	t.Cleanup(func() { _ = store.Close() })
	m := metrics.NewMetrics()

	deps := services.Deps{
		DB:         db,
		Store:      store,
		Dispatcher: services.NewDispatcher(store, realtimetest.NewRecorder(), "test-instance", m),
		Metrics:    m,
	}
	svc := services.New(deps, services.AuthOptions{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, nil)

	cfg := config.ServerConfig{Address: "127.0.0.1:0", CorsEnabled: true, CorsOrigins: []string{"*"}, MetricsEnabled: true}
	server := api.NewServer(cfg, svc, nil, nil, m)
	return &client{t: t, handler: server.Handler()}
}

func (c *client) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func (c *client) decode(rec *httptest.ResponseRecorder, dest interface{}) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func (c *client) signup(name string) (string, uuid.UUID) {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		"name":     name,
		"password": "correct horse",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	var res services.AuthResult
	c.decode(rec, &res)
	return res.Token, res.User.ID
}

func (c *client) createEvent(token string, public bool) models.Event {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/events", token, map[string]interface{}{
		"title":        "Where to eat",
		"datetime":     time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"locationText": "TBD",
		"isPublic":     public,
		"category":     "meal",
	})
	require.Equal(c.t, http.StatusCreated, rec.Code, rec.Body.String())

	var event models.Event
	c.decode(rec, &event)
	return event
}

func TestHealthAndMetrics(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = c.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestAuthRequired(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodPost, "/api/events", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, id := c.signup("sam")
	rec = c.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	c.decode(rec, &me)
	assert.Equal(t, id, me.ID)
	assert.NotContains(t, rec.Body.String(), "passwordHash")
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	c := newClient(t)
	hostToken, _ := c.signup("host")
	guestToken, guestID := c.signup("guest")
	event := c.createEvent(hostToken, true)
	base := "/api/events/" + event.ID.String()

	rec := c.do(http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/events/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, base, guestToken, map[string]string{"title": "Mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodPost, base+"/rsvp", guestToken, map[string]interface{}{"status": "YES", "hasPlusOne": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, base+"/rsvps/counts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var counts models.RSVPCounts
	c.decode(rec, &counts)
	assert.Equal(t, 1, counts.Yes)
	assert.Equal(t, 2, counts.TotalAttending)

	rec = c.do(http.MethodGet, base+"/rsvps?status=maybe", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = c.do(http.MethodGet, base+"/rsvps?status=sometimes", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, base+"/messages", guestToken, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, base+"/messages", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var messages []models.MessageView
	c.decode(rec, &messages)
	require.Len(t, messages, 1)
	assert.Equal(t, "guest", messages[0].UserName)

	rec = c.do(http.MethodGet, base+"/participants", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var participants []models.Attendee
	c.decode(rec, &participants)
	require.Len(t, participants, 1)
	assert.Equal(t, guestID, participants[0].UserID)

	rec = c.do(http.MethodDelete, base+"/participants/"+guestID.String(), hostToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodDelete, base+"/participants/"+guestID.String(), hostToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"User is not a participant of this event"}`, rec.Body.String())

	rec = c.do(http.MethodDelete, base, hostToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = c.do(http.MethodGet, base, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPollsOverHTTP(t *testing.T) {
	c := newClient(t)
	hostToken, _ := c.signup("host")
	guestToken, _ := c.signup("guest")
	event := c.createEvent(hostToken, false)
	base := "/api/events/" + event.ID.String()

	rec := c.do(http.MethodPost, base+"/polls", hostToken, map[string]interface{}{
		"question": "Where should we meet?",
		"options":  []string{"Park", "Cafe"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var poll models.PollSummary
	c.decode(rec, &poll)
	require.Len(t, poll.Options, 2)
	pollPath := "/api/polls/" + poll.ID.String()

	rec = c.do(http.MethodPost, pollPath+"/vote", guestToken, map[string]string{"optionId": poll.Options[0].ID.String()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodPost, base+"/rsvp", guestToken, map[string]string{"status": "YES"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, pollPath+"/vote", guestToken, map[string]string{"optionId": poll.Options[0].ID.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, pollPath+"/vote", guestToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, pollPath+"/close", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, pollPath+"/close", hostToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Event
	c.decode(rec, &updated)
	assert.Equal(t, "Park", updated.LocationText)
}

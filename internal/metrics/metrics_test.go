package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAction(t *testing.T) {
	m := NewMetrics()
	m.RecordAction("rsvp.upsert", time.Now(), nil)
	m.RecordAction("rsvp.upsert", time.Now(), nil)
	m.RecordAction("rsvp.upsert", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.actions.WithLabelValues("rsvp.upsert", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("rsvp.upsert", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordAction("x", time.Now(), nil)
		m.RecordPublish("NEW_MESSAGE", nil)
		m.RecordNotification("chat")
		m.RecordFrame(true)
		m.RecordCacheLookup(false)
		m.SetConnections(3)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := NewMetrics()
	m.RecordNotification("chat")
	m.SetConnections(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `connectsphere_notifications_total{kind="chat"} 1`)
	assert.Contains(t, body, "connectsphere_realtime_connections 2")
}

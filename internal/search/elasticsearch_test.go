package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/connectsphere/config"
	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElastic struct {
	mu       sync.Mutex
	requests []string
	docs     map[string]EventDocument
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.URL.Path == "/":
		_, _ = io.WriteString(w, `{"version":{"number":"7.17.10","build_flavor":"default"},"tagline":"You Know, for Search"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 3 && parts[1] == "_doc":
		var doc EventDocument
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 2 && parts[1] == "_search":
		hits := make([]map[string]interface{}, 0, len(f.docs))
		for _, d := range f.docs {
			hits = append(hits, map[string]interface{}{"_source": d})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"hits": map[string]interface{}{"hits": hits}})
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func newTestClient(t *testing.T) (*ElasticClient, *fakeElastic) {
	t.Helper()
	fake := &fakeElastic{docs: map[string]EventDocument{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	client, err := NewElasticClient(config.ElasticConfig{URL: server.URL, Prefix: "test", Index: "events"})
	require.NoError(t, err)
	return client, fake
}

func TestIndexAndSearchEvents(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	event := &models.Event{
		ID:        uuid.New(),
		Title:     "Picnic",
		Datetime:  time.Now().Add(24 * time.Hour),
		CreatorID: uuid.New(),
		IsPublic:  true,
		Category:  models.CategoryPotluck,
	}
	require.NoError(t, client.IndexEvent(ctx, event))

	ids, err := client.SearchEvents(ctx, "picnic", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{event.ID}, ids)

	fake.mu.Lock()
	assert.Contains(t, fake.requests, "PUT /test-events/_doc/"+event.ID.String())
	fake.mu.Unlock()
}

func TestIndexPrivateEventRemovesDocument(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	event := &models.Event{ID: uuid.New(), Title: "Secret", IsPublic: true}
	require.NoError(t, client.IndexEvent(ctx, event))

	event.IsPublic = false
	require.NoError(t, client.IndexEvent(ctx, event))

	fake.mu.Lock()
	assert.Empty(t, fake.docs)
	fake.mu.Unlock()

	// deleting again is a no-op
	require.NoError(t, client.DeleteEvent(ctx, event.ID))
}

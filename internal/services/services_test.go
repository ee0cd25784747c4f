package services

import (
	"context"
	"testing"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime/realtimetest"
	"example.com/connectsphere/internal/repositories"
	"example.com/connectsphere/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type harness struct {
	ctx   context.Context
	repos *repositories.Repositories
	store *cache.LocalStore
	rec   *realtimetest.Recorder
	deps  Deps
	svc   *Services
}

func newHarness(t *testing.T) *harness {
	return newHarnessWithScheduler(t, nil)
}

func newHarnessWithScheduler(t *testing.T, scheduler *PollScheduler) *harness {
	t.Helper()
	db := testutil.NewDB(t)
	store := cache.NewLocalStore("test:")
	t.Cleanup(func() { _ = store.Close() })
	rec := realtimetest.NewRecorder()

	deps := Deps{
		DB:         db,
		ReadOnlyDB: db,
		Store:      store,
		Dispatcher: NewDispatcher(store, rec, "test-instance", nil),
	}
	return &harness{
		ctx:   context.Background(),
		repos: repositories.New(db, db),
		store: store,
		rec:   rec,
		deps:  deps,
		svc:   New(deps, AuthOptions{Secret: "test-secret", BcryptCost: bcrypt.MinCost}, scheduler),
	}
}

func (h *harness) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Email: uuid.NewString() + "@example.com", Name: name, PasswordHash: "x"}
	require.NoError(t, h.repos.Users.Create(h.ctx, u))
	return u
}

func (h *harness) event(t *testing.T, creator *models.User, public bool) *models.Event {
	t.Helper()
	e, err := h.svc.Events.Create(h.ctx, creator.ID, CreateEventInput{
		Title:        "Dinner at Sam's",
		Datetime:     time.Now().Add(72 * time.Hour),
		LocationText: "Sam's place",
		IsPublic:     public,
		Category:     models.CategoryMeal,
	})
	require.NoError(t, err)
	h.rec.Reset()
	return e
}

func (h *harness) rsvp(t *testing.T, user *models.User, event *models.Event, status models.RSVPStatus) {
	t.Helper()
	_, err := h.svc.RSVPs.Upsert(h.ctx, user.ID, event.ID, UpsertRSVPInput{Status: &status})
	require.NoError(t, err)
	h.rec.Reset()
}

func ptr[T any](v T) *T {
	return &v
}

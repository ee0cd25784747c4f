package services

import (
	"context"
	"testing"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	indexed map[uuid.UUID]bool
	deleted []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndexer) IndexEvent(ctx context.Context, event *models.Event) error {
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]bool{}
	}
	f.indexed[event.ID] = event.IsPublic
	return nil
}

func (f *fakeIndexer) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndexer) SearchEvents(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	return f.hits, f.err
}

func TestEventCreateCachesAndNotifiesCreator(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")

	event, err := h.svc.Events.Create(h.ctx, creator.ID, CreateEventInput{
		Title:    "Drinks",
		Datetime: time.Now().Add(time.Hour),
		Category: models.CategoryDrinks,
	})
	require.NoError(t, err)
	assert.True(t, event.HasFoodOrDrinks)

	var cached models.Event
	require.NoError(t, h.store.Get(h.ctx, cache.GetEventCacheKey(event.ID), &cached))
	assert.Equal(t, event.ID, cached.ID)

	created := h.rec.Find(realtime.KindEventCreated)
	require.Len(t, created, 1)
	assert.Equal(t, realtime.UserGroup(creator.ID), created[0].Group)
}

func TestEventCreateValidation(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")

	_, err := h.svc.Events.Create(h.ctx, creator.ID, CreateEventInput{Datetime: time.Now()})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = h.svc.Events.Create(h.ctx, creator.ID, CreateEventInput{Title: "x", Datetime: time.Now(), Category: "rave"})
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestEventUpdateOwnerOnly(t *testing.T) {
	h := newHarness(t)
	creator, other := h.user(t, "Sam"), h.user(t, "Kim")
	event := h.event(t, creator, true)

	_, err := h.svc.Events.Update(h.ctx, other.ID, event.ID, UpdateEventInput{Title: ptr("Hijacked")})
	assert.Equal(t, KindForbidden, KindOf(err))

	category := models.CategoryActivity
	updated, err := h.svc.Events.Update(h.ctx, creator.ID, event.ID, UpdateEventInput{Title: ptr("Hike"), Category: &category})
	require.NoError(t, err)
	assert.Equal(t, "Hike", updated.Title)
	assert.False(t, updated.HasFoodOrDrinks)
	assert.Equal(t, "Sam's place", updated.LocationText)

	got, err := h.svc.Events.Get(h.ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hike", got.Title)
	assert.Equal(t, []string{realtime.KindEventUpdated}, h.rec.Kinds())
}

func TestEventDeleteCascades(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)
	h.rsvp(t, guest, event, models.RSVPYes)
	h.poll(t, creator, event, "Pizza?", "Yes", "No")

	err := h.svc.Events.Delete(h.ctx, guest.ID, event.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	require.NoError(t, h.svc.Events.Delete(h.ctx, creator.ID, event.ID))

	_, err = h.svc.Events.Get(h.ctx, event.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	ids, err := h.repos.Polls.ListEventPollIDs(h.ctx, event.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Len(t, h.rec.Find(realtime.KindEventDeleted), 1)
}

func TestDashboard(t *testing.T) {
	h := newHarness(t)
	me, host := h.user(t, "Me"), h.user(t, "Host")
	mine := h.event(t, me, false)
	theirs := h.event(t, host, true)
	declined := h.event(t, host, true)
	h.rsvp(t, me, theirs, models.RSVPYes)
	h.rsvp(t, me, declined, models.RSVPNo)

	dash, err := h.svc.Events.Dashboard(h.ctx, me.ID)
	require.NoError(t, err)
	require.Len(t, dash.Created, 1)
	assert.Equal(t, mine.ID, dash.Created[0].ID)
	require.Len(t, dash.Participating, 1)
	assert.Equal(t, theirs.ID, dash.Participating[0].ID)
	assert.Len(t, dash.Upcoming, 2)
}

func TestDietarySections(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")
	event := h.event(t, creator, true)

	sections, err := h.svc.Events.DietarySections(h.ctx, event.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, s.Name)
		assert.NotEmpty(t, s.Options)
	}
	assert.Equal(t, []string{models.SectionPatterns, models.SectionReligious, models.SectionAllergies, models.SectionIntensity}, names)
}

func TestSearchFallsBackToDatabase(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")
	public := h.event(t, creator, true)
	h.event(t, creator, false)

	found, err := h.svc.Events.Search(h.ctx, "dinner", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, public.ID, found[0].ID)
}

func TestSearchUsesIndexer(t *testing.T) {
	h := newHarness(t)
	indexer := &fakeIndexer{}
	deps := h.deps
	deps.Indexer = indexer
	svc := NewEventService(deps, nil)

	creator := h.user(t, "Sam")
	event, err := svc.Create(h.ctx, creator.ID, CreateEventInput{Title: "Board games", Datetime: time.Now().Add(time.Hour), IsPublic: true})
	require.NoError(t, err)
	assert.True(t, indexer.indexed[event.ID])

	indexer.hits = []uuid.UUID{event.ID, uuid.New()}
	found, err := svc.Search(h.ctx, "games", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, event.ID, found[0].ID)

	require.NoError(t, svc.Delete(h.ctx, creator.ID, event.ID))
	assert.Equal(t, []uuid.UUID{event.ID}, indexer.deleted)
}

package services

import (
	"testing"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSVPUpsertKeepsOneRowPerUser(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)

	first, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPYes)})
	require.NoError(t, err)
	second, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPNo)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	rsvps, err := h.repos.RSVPs.ListByEvent(h.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, rsvps, 1)
	assert.Equal(t, models.RSVPNo, rsvps[0].Status)
}

func TestRSVPPartialUpdateRetainsOtherFields(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, false)

	_, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{
		Status:      ptr(models.RSVPYes),
		HasPlusOne:  ptr(true),
		PlusOneName: ptr("Jo"),
		Allergies:   &[]string{"nuts"},
	})
	require.NoError(t, err)

	updated, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPMaybe)})
	require.NoError(t, err)

	assert.Equal(t, models.RSVPMaybe, updated.Status)
	assert.True(t, updated.HasPlusOne)
	require.NotNil(t, updated.PlusOneName)
	assert.Equal(t, "Jo", *updated.PlusOneName)
	assert.Equal(t, []string{"nuts"}, []string(updated.Allergies))
}

func TestRSVPCreateDefaults(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, false)

	rsvp, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPYes)})
	require.NoError(t, err)
	assert.False(t, rsvp.HasPlusOne)
	assert.NotNil(t, rsvp.DietaryPatterns)
	assert.Empty(t, rsvp.DietaryPatterns)
}

func TestRSVPCreateRequiresStatus(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, false)

	_, err := h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{HasPlusOne: ptr(true)})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPStatus("SOMETIMES"))})
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = h.svc.RSVPs.Upsert(h.ctx, guest.ID, uuid.New(), UpsertRSVPInput{Status: ptr(models.RSVPYes)})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRSVPUpsertBroadcastsAndInvalidates(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)

	_, err := h.svc.Events.GetWithAttendees(h.ctx, event.ID)
	require.NoError(t, err)

	_, err = h.svc.RSVPs.Upsert(h.ctx, guest.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPYes)})
	require.NoError(t, err)

	var cached models.EventWithAttendees
	assert.ErrorIs(t, h.store.Get(h.ctx, cache.GetEventAttendeesCacheKey(event.ID), &cached), cache.ErrCacheMiss)

	assert.Equal(t, []string{realtime.KindRSVPUpdated, realtime.KindEventRSVPUpdated}, h.rec.Kinds())
	var payload events.RSVPChange
	require.NoError(t, h.rec.Emissions()[0].Decode(&payload))
	assert.Equal(t, guest.ID, payload.UserID)
	assert.Equal(t, "Alex", payload.UserName)
	assert.True(t, payload.Created)

	view, err := h.svc.Events.GetWithAttendees(h.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, view.Attendees, 1)
	assert.Equal(t, "Alex", view.Attendees[0].Name)
	assert.Equal(t, "Sam", view.CreatorName)
}

func TestRSVPRemove(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)

	err := h.svc.RSVPs.Remove(h.ctx, guest.ID, event.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, h.rec.Emissions())

	h.rsvp(t, guest, event, models.RSVPYes)
	require.NoError(t, h.svc.RSVPs.Remove(h.ctx, guest.ID, event.ID))
	assert.Equal(t, []string{realtime.KindRSVPRemoved, realtime.KindEventRSVPRemoved}, h.rec.Kinds())

	_, err = h.svc.RSVPs.Get(h.ctx, guest.ID, event.ID)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestRSVPCounts(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")
	event := h.event(t, creator, true)

	a, b, c := h.user(t, "A"), h.user(t, "B"), h.user(t, "C")
	_, err := h.svc.RSVPs.Upsert(h.ctx, a.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPYes), HasPlusOne: ptr(true)})
	require.NoError(t, err)
	h.rsvp(t, b, event, models.RSVPMaybe)
	h.rsvp(t, c, event, models.RSVPNo)

	counts, err := h.svc.RSVPs.Counts(h.ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RSVPCounts{Yes: 1, Maybe: 1, No: 1, PlusOnes: 1, TotalAttending: 2}, *counts)

	yes := models.RSVPYes
	list, err := h.svc.RSVPs.ListForEvent(h.ctx, event.ID, &yes)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "A", list[0].Name)
}

package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKickNonParticipantHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	creator, stranger := h.user(t, "Sam"), h.user(t, "Kim")
	event := h.event(t, creator, true)

	_, err := h.svc.Events.GetWithAttendees(h.ctx, event.ID)
	require.NoError(t, err)

	err = h.svc.Participants.Kick(h.ctx, creator.ID, event.ID, stranger.ID)
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "User is not a participant of this event", MessageOf(err))

	assert.Empty(t, h.rec.Emissions())
	var cached models.EventWithAttendees
	assert.NoError(t, h.store.Get(h.ctx, cache.GetEventAttendeesCacheKey(event.ID), &cached))
}

func TestKickParticipant(t *testing.T) {
	h := newHarness(t)
	creator, guest, other := h.user(t, "Sam"), h.user(t, "Alex"), h.user(t, "Kim")
	event := h.event(t, creator, true)
	h.rsvp(t, guest, event, models.RSVPYes)
	h.rsvp(t, other, event, models.RSVPYes)

	err := h.svc.Participants.Kick(h.ctx, other.ID, event.ID, guest.ID)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "Only the event creator can remove participants", MessageOf(err))

	err = h.svc.Participants.Kick(h.ctx, creator.ID, event.ID, creator.ID)
	assert.Equal(t, KindValidation, KindOf(err))

	require.NoError(t, h.svc.Participants.Kick(h.ctx, creator.ID, event.ID, guest.ID))

	kicked := h.rec.Find(realtime.KindKickedFromEvent)
	require.Len(t, kicked, 1)
	assert.Equal(t, realtime.UserGroup(guest.ID), kicked[0].Group)
	assert.Len(t, h.rec.Find(realtime.KindParticipantKicked), 1)

	attendees, err := h.svc.Participants.List(h.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	assert.Equal(t, other.ID, attendees[0].UserID)
}

func TestKickPublishesActorAndKickedUser(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)
	h.rsvp(t, guest, event, models.RSVPYes)

	published := make(chan []byte, 1)
	sub, err := h.store.Subscribe(h.ctx, events.Pattern(events.CategoryParticipant), func(_ context.Context, _ string, payload []byte) {
		published <- payload
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	require.NoError(t, h.svc.Participants.Kick(h.ctx, creator.ID, event.ID, guest.ID))

	var raw []byte
	select {
	case raw = <-published:
	case <-time.After(2 * time.Second):
		t.Fatal("no PARTICIPANT_KICKED published")
	}

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "PARTICIPANT_KICKED", fields["type"])
	assert.Equal(t, event.ID.String(), fields["eventId"])
	assert.Equal(t, creator.ID.String(), fields["userId"])
	assert.Equal(t, guest.ID.String(), fields["kickedUserId"])
	assert.Equal(t, "Alex", fields["userName"])
	assert.Contains(t, fields, "timestamp")
	assert.Equal(t, h.deps.Dispatcher.Origin(), fields["origin"])
	assert.NotContains(t, fields, "data")

	var frame events.KickedFrame
	require.NoError(t, h.rec.Find(realtime.KindKickedFromEvent)[0].Decode(&frame))
	assert.Equal(t, guest.ID, frame.UserID)
	assert.Equal(t, creator.ID, frame.KickedBy)
}

func TestLeave(t *testing.T) {
	h := newHarness(t)
	creator, guest := h.user(t, "Sam"), h.user(t, "Alex")
	event := h.event(t, creator, true)

	err := h.svc.Participants.Leave(h.ctx, creator.ID, event.ID)
	assert.Equal(t, KindForbidden, KindOf(err))

	err = h.svc.Participants.Leave(h.ctx, guest.ID, event.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	h.rsvp(t, guest, event, models.RSVPMaybe)
	require.NoError(t, h.svc.Participants.Leave(h.ctx, guest.ID, event.ID))

	left := h.rec.Find(realtime.KindParticipantLeftEvent)
	require.Len(t, left, 1)
	assert.Equal(t, realtime.UserGroup(creator.ID), left[0].Group)

	exists, err := h.repos.RSVPs.Exists(h.ctx, event.ID, guest.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestParticipantListOnlyYesInJoinOrder(t *testing.T) {
	h := newHarness(t)
	creator := h.user(t, "Sam")
	event := h.event(t, creator, true)
	first, maybe, second := h.user(t, "First"), h.user(t, "Maybe"), h.user(t, "Second")

	_, err := h.svc.RSVPs.Upsert(h.ctx, first.ID, event.ID, UpsertRSVPInput{Status: ptr(models.RSVPYes), HasPlusOne: ptr(true), PlusOneName: ptr("Pat")})
	require.NoError(t, err)
	h.rsvp(t, maybe, event, models.RSVPMaybe)
	h.rsvp(t, second, event, models.RSVPYes)

	attendees, err := h.svc.Participants.List(h.ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 2)
	assert.Equal(t, "First", attendees[0].Name)
	assert.True(t, attendees[0].HasPlusOne)
	assert.Equal(t, "Second", attendees[1].Name)
	assert.NotNil(t, attendees[1].Allergies)
}

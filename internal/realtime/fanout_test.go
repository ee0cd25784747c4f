package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/realtime/realtimetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, typ events.Type, eventID uuid.UUID, payload interface{}) events.Envelope {
	t.Helper()
	env, err := events.New(typ, eventID, payload)
	require.NoError(t, err)
	return env
}

func TestFanoutRSVPUpdatedNotifiesCreator(t *testing.T) {
	rec := realtimetest.NewRecorder()
	eventID, creator, guest := uuid.New(), uuid.New(), uuid.New()

	env := envelope(t, events.RSVPUpdated, eventID, events.RSVPChange{EventID: eventID, CreatorID: creator, UserID: guest, Status: models.RSVPYes})
	require.NoError(t, realtime.Fanout(rec, env))

	emissions := rec.Emissions()
	require.Len(t, emissions, 2)
	assert.Equal(t, realtime.EventGroup(eventID), emissions[0].Group)
	assert.Equal(t, realtime.KindRSVPUpdated, emissions[0].Kind)
	assert.Equal(t, realtime.UserGroup(creator), emissions[1].Group)
	assert.Equal(t, realtime.KindEventRSVPUpdated, emissions[1].Kind)
}

func TestFanoutRSVPByCreatorSkipsCreatorFrame(t *testing.T) {
	rec := realtimetest.NewRecorder()
	eventID, creator := uuid.New(), uuid.New()

	env := envelope(t, events.RSVPRemoved, eventID, events.RSVPChange{EventID: eventID, CreatorID: creator, UserID: creator})
	require.NoError(t, realtime.Fanout(rec, env))

	assert.Equal(t, []string{realtime.KindRSVPRemoved}, rec.Kinds())
}

func TestFanoutParticipantEvents(t *testing.T) {
	rec := realtimetest.NewRecorder()
	eventID, creator, guest := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, realtime.Fanout(rec, envelope(t, events.ParticipantKicked, eventID,
		events.ParticipantRemoved{EventID: eventID, UserID: creator, KickedUserID: guest, UserName: "Alex"})))
	require.NoError(t, realtime.Fanout(rec, envelope(t, events.ParticipantLeft, eventID,
		events.ParticipantDeparted{EventID: eventID, CreatorID: creator, UserID: guest})))

	kicked := rec.Find(realtime.KindKickedFromEvent)
	require.Len(t, kicked, 1)
	assert.Equal(t, realtime.UserGroup(guest), kicked[0].Group)
	var frame events.KickedFrame
	require.NoError(t, kicked[0].Decode(&frame))
	assert.Equal(t, guest, frame.UserID)
	assert.Equal(t, creator, frame.KickedBy)
	assert.Equal(t, "Alex", frame.UserName)

	left := rec.Find(realtime.KindParticipantLeftEvent)
	require.Len(t, left, 1)
	assert.Equal(t, realtime.UserGroup(creator), left[0].Group)

	assert.Len(t, rec.Find(realtime.KindParticipantKicked), 1)
	assert.Len(t, rec.Find(realtime.KindParticipantLeft), 1)
}

func TestFanoutPollAndChatKinds(t *testing.T) {
	rec := realtimetest.NewRecorder()
	eventID := uuid.New()

	for _, typ := range []events.Type{events.NewMessage, events.MessageDeleted, events.PollCreated, events.PollVote, events.PollClosed, events.PollDeleted} {
		require.NoError(t, realtime.Fanout(rec, envelope(t, typ, eventID, map[string]string{"eventId": eventID.String()})))
	}

	assert.Equal(t, []string{
		realtime.KindNewMessage,
		realtime.KindMessageDeleted,
		realtime.KindPollCreated,
		realtime.KindPollVote,
		realtime.KindPollClosed,
		realtime.KindPollDeleted,
	}, rec.Kinds())
}

func TestBridgeSkipsOwnOrigin(t *testing.T) {
	rec := realtimetest.NewRecorder()
	bridge := realtime.NewBridge(cache.NewLocalStore("test:"), rec, "local")
	ctx := context.Background()

	eventID := uuid.New()
	own := envelope(t, events.NewMessage, eventID, events.MessagePosted{EventID: eventID, Text: "own"})
	own.Origin = "local"
	remote := envelope(t, events.NewMessage, eventID, events.MessagePosted{EventID: eventID, Text: "remote"})
	remote.Origin = "elsewhere"

	for _, env := range []events.Envelope{own, remote} {
		raw, err := json.Marshal(env)
		require.NoError(t, err)
		bridge.Handle(ctx, env.Channel(), raw)
	}
	bridge.Handle(ctx, "event:x:chat", []byte("not json"))

	emissions := rec.Emissions()
	require.Len(t, emissions, 1)
	var msg events.MessagePosted
	require.NoError(t, emissions[0].Decode(&msg))
	assert.Equal(t, "remote", msg.Text)
}

func TestBridgeRunMirrorsPublishedEvents(t *testing.T) {
	store := cache.NewLocalStore("test:")
	rec := realtimetest.NewRecorder()
	bridge := realtime.NewBridge(store, rec, "local")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = bridge.Run(ctx) }()

	eventID := uuid.New()
	env := envelope(t, events.PollDeleted, eventID, events.PollRemoved{EventID: eventID, PollID: uuid.New()})
	env.Origin = "elsewhere"

	// Run subscribes asynchronously, so keep publishing until a frame lands
	require.Eventually(t, func() bool {
		_ = store.Publish(ctx, env.Channel(), env)
		return len(rec.Find(realtime.KindPollDeleted)) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

// Package notifications turns channel events into per-user notifications.
package notifications

import (
	"context"
	"fmt"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Notification kinds
const (
	KindRSVP            = "rsvp"
	KindNewParticipant  = "new_participant"
	KindChat            = "chat"
	KindPollCreated     = "poll_created"
	KindPollClosed      = "poll_closed"
	KindKicked          = "kicked"
	KindParticipantLeft = "participant_left"
)

// Notification is the payload of a "notification" frame
type Notification struct {
	Type      string     `json:"type"`
	Message   string     `json:"message"`
	EventID   uuid.UUID  `json:"eventId"`
	PollID    *uuid.UUID `json:"pollId,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Forwarded wraps a notification sent out of band with its recipient
type Forwarded struct {
	UserID       uuid.UUID    `json:"userId"`
	Notification Notification `json:"notification"`
}

// Forwarder delivers notifications outside the socket layer
type Forwarder interface {
	SendMessage(ctx context.Context, body interface{}) error
}

// Worker subscribes to every event category and notifies the audience of each event
type Worker struct {
	repos       *repositories.Repositories
	store       cache.Store
	broadcaster realtime.Broadcaster
	forwarder   Forwarder
	metrics     *metrics.Metrics
	now         func() time.Time
}

// NewWorker creates a notification worker. forwarder may be nil.
func NewWorker(db, readOnlyDB *gorm.DB, store cache.Store, broadcaster realtime.Broadcaster, forwarder Forwarder, m *metrics.Metrics) *Worker {
	if readOnlyDB == nil {
		readOnlyDB = db
	}
	return &Worker{
		repos:       repositories.New(db, readOnlyDB),
		store:       store,
		broadcaster: broadcaster,
		forwarder:   forwarder,
		metrics:     m,
		now:         time.Now,
	}
}

// Run subscribes and blocks until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	subs := make([]cache.Subscription, 0, len(events.Categories))
	defer func() {
		for _, s := range subs {
			_ = s.Close()
		}
	}()

	for _, c := range events.Categories {
		sub, err := w.store.Subscribe(ctx, events.Pattern(c), w.Handle)
		if err != nil {
			return errors.Wrap(err, "notification worker subscribe failed")
		}
		subs = append(subs, sub)
	}

	log.Info().Msg("Notification worker started")
	<-ctx.Done()
	log.Info().Msg("Notification worker stopped")
	return nil
}

// Handle processes one channel message. Failures are logged and dropped.
func (w *Worker) Handle(ctx context.Context, channel string, payload []byte) {
	env, err := events.Parse(payload)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Ignoring malformed channel event")
		return
	}

	if err := w.dispatch(ctx, env); err != nil {
		log.Error().Err(err).
			Str("type", string(env.Type)).
			Str("event_id", env.EventID.String()).
			Msg("Failed to process notification")
	}
}

func (w *Worker) dispatch(ctx context.Context, env events.Envelope) error {
	event, err := w.repos.Events.GetByID(ctx, env.EventID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	switch env.Type {
	case events.RSVPUpdated:
		return w.onRSVP(ctx, env, event)
	case events.NewMessage:
		return w.onMessage(ctx, env, event)
	case events.PollCreated:
		var p events.PollOpened
		if err := env.Decode(&p); err != nil {
			return err
		}
		return w.onPoll(ctx, event, KindPollCreated, fmt.Sprintf("New poll in %q: %s", event.Title, p.Question), p.PollID)
	case events.PollClosed:
		var p events.PollFinished
		if err := env.Decode(&p); err != nil {
			return err
		}
		return w.onPoll(ctx, event, KindPollClosed, fmt.Sprintf("Poll closed in %q: %s", event.Title, p.Question), p.PollID)
	case events.ParticipantKicked:
		var p events.ParticipantRemoved
		if err := env.Decode(&p); err != nil {
			return err
		}
		w.notify(ctx, p.KickedUserID, Notification{
			Type:    KindKicked,
			Message: fmt.Sprintf("You have been removed from the event %q", event.Title),
			EventID: event.ID,
		})
	case events.ParticipantLeft:
		var p events.ParticipantDeparted
		if err := env.Decode(&p); err != nil {
			return err
		}
		w.notify(ctx, event.CreatorID, Notification{
			Type:    KindParticipantLeft,
			Message: fmt.Sprintf("%s has left your event %q", w.name(ctx, p.UserID, p.UserName), event.Title),
			EventID: event.ID,
		})
	}
	return nil
}

func (w *Worker) onRSVP(ctx context.Context, env events.Envelope, event *models.Event) error {
	var p events.RSVPChange
	if err := env.Decode(&p); err != nil {
		return err
	}
	name := w.name(ctx, p.UserID, p.UserName)

	if p.UserID != event.CreatorID {
		w.notify(ctx, event.CreatorID, Notification{
			Type:    KindRSVP,
			Message: fmt.Sprintf("%s %s your event %q", name, statusText(p.Status), event.Title),
			EventID: event.ID,
		})
	}

	if !event.IsPublic || p.Status != models.RSVPYes {
		return nil
	}
	attendees, err := w.repos.RSVPs.ParticipantIDs(ctx, event.ID, models.RSVPYes)
	if err != nil {
		return err
	}
	for _, id := range attendees {
		if id == p.UserID {
			continue
		}
		w.notify(ctx, id, Notification{
			Type:    KindNewParticipant,
			Message: fmt.Sprintf("%s is now attending %q", name, event.Title),
			EventID: event.ID,
		})
	}
	return nil
}

func (w *Worker) onMessage(ctx context.Context, env events.Envelope, event *models.Event) error {
	var p events.MessagePosted
	if err := env.Decode(&p); err != nil {
		return err
	}
	sender, err := w.repos.Users.GetByID(ctx, p.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	participants, err := w.repos.RSVPs.ParticipantIDs(ctx, event.ID)
	if err != nil {
		return err
	}
	for _, id := range participants {
		if id == p.UserID {
			continue
		}
		w.notify(ctx, id, Notification{
			Type:    KindChat,
			Message: fmt.Sprintf("New message from %s in %q", sender.Name, event.Title),
			EventID: event.ID,
		})
	}
	return nil
}

func (w *Worker) onPoll(ctx context.Context, event *models.Event, kind, message string, pollID uuid.UUID) error {
	participants, err := w.repos.RSVPs.ParticipantIDs(ctx, event.ID)
	if err != nil {
		return err
	}
	for _, id := range participants {
		pid := pollID
		w.notify(ctx, id, Notification{Type: kind, Message: message, EventID: event.ID, PollID: &pid})
	}
	return nil
}

// name prefers the stored user name and falls back to the one carried by the event
func (w *Worker) name(ctx context.Context, userID uuid.UUID, fallback string) string {
	u, err := w.repos.Users.GetByID(ctx, userID)
	if err != nil {
		return fallback
	}
	return u.Name
}

func (w *Worker) notify(ctx context.Context, userID uuid.UUID, n Notification) {
	n.Timestamp = w.now().UTC()
	w.broadcaster.EmitToUser(userID, realtime.KindNotification, n)
	w.metrics.RecordNotification(n.Type)

	if w.forwarder == nil {
		return
	}
	if err := w.forwarder.SendMessage(ctx, Forwarded{UserID: userID, Notification: n}); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID.String()).
			Str("type", n.Type).
			Msg("Failed to forward notification")
	}
}

func statusText(s models.RSVPStatus) string {
	switch s {
	case models.RSVPYes:
		return "is attending"
	case models.RSVPMaybe:
		return "might attend"
	default:
		return "declined"
	}
}

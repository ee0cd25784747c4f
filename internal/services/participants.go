package services

import (
	"context"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ParticipantService manages who takes part in an event
type ParticipantService struct {
	base
}

// NewParticipantService creates a new participant service
func NewParticipantService(d Deps) *ParticipantService {
	return &ParticipantService{base: newBase(d)}
}

// Kick removes another user's RSVP; only the event creator may do so
func (s *ParticipantService) Kick(ctx context.Context, actorID, eventID, targetID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "participant.kick")
	defer done(&err)

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID != actorID {
		return Forbidden("Only the event creator can remove participants")
	}
	if targetID == event.CreatorID {
		return Invalid("The event creator cannot be removed")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.RSVPs.Delete(ctx, eventID, targetID)
	})
	if err != nil {
		return notFoundOr(err, "User is not a participant of this event", "failed to remove participant")
	}

	invalidate(ctx, s.store, cache.GetEventAttendeesCacheKey(eventID))
	s.dispatcher.Dispatch(ctx, events.ParticipantKicked, eventID, events.ParticipantRemoved{
		EventID:      eventID,
		EventTitle:   event.Title,
		UserID:       actorID,
		KickedUserID: targetID,
		UserName:     userName(ctx, s.repos, targetID),
	})

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", targetID.String()).
		Msg("Participant removed")
	return nil
}

// Leave removes the user's own RSVP. The creator cannot leave their own event.
func (s *ParticipantService) Leave(ctx context.Context, userID, eventID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "participant.leave")
	defer done(&err)

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return err
	}
	if event.CreatorID == userID {
		return Forbidden("The event creator cannot leave the event")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.RSVPs.Delete(ctx, eventID, userID)
	})
	if err != nil {
		return notFoundOr(err, "You are not a participant of this event", "failed to leave event")
	}

	invalidate(ctx, s.store, cache.GetEventAttendeesCacheKey(eventID))
	s.dispatcher.Dispatch(ctx, events.ParticipantLeft, eventID, events.ParticipantDeparted{
		EventID:    eventID,
		EventTitle: event.Title,
		CreatorID:  event.CreatorID,
		UserID:     userID,
		UserName:   userName(ctx, s.repos, userID),
	})

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Msg("Participant left")
	return nil
}

// List returns the confirmed attendees of an event in join order
func (s *ParticipantService) List(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error) {
	if _, err := loadEvent(ctx, s.repos, eventID); err != nil {
		return nil, err
	}
	attendees, err := listAttendees(ctx, s.repos, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list participants")
	}
	return attendees, nil
}

package services

import (
	"context"

	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const msgEventNotFound = "Event not found"

func loadEvent(ctx context.Context, repos *repositories.Repositories, id uuid.UUID) (*models.Event, error) {
	event, err := repos.Events.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, msgEventNotFound, "failed to load event")
	}
	return event, nil
}

// hasAccess reports whether the user created the event or holds an RSVP of
// any status for it
func hasAccess(ctx context.Context, repos *repositories.Repositories, event *models.Event, userID uuid.UUID) (bool, error) {
	if event.CreatorID == userID {
		return true, nil
	}
	ok, err := repos.RSVPs.Exists(ctx, event.ID, userID)
	if err != nil {
		return false, errors.Wrap(err, "failed to check event access")
	}
	return ok, nil
}

func userName(ctx context.Context, repos *repositories.Repositories, id uuid.UUID) string {
	u, err := repos.Users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			log.Warn().Err(err).Str("user_id", id.String()).Msg("Failed to load user name")
		}
		return ""
	}
	return u.Name
}

// JoinPolicy lets a socket watch an event when the event is public or the
// user created it or holds an RSVP for it
func JoinPolicy(d Deps) realtime.JoinPolicy {
	b := newBase(d)
	return func(ctx context.Context, userID, eventID uuid.UUID) bool {
		event, err := b.repos.Events.GetByID(ctx, eventID)
		if err != nil {
			return false
		}
		if event.IsPublic {
			return true
		}
		ok, err := hasAccess(ctx, b.repos, event, userID)
		if err != nil {
			log.Warn().Err(err).Str("event_id", eventID.String()).Msg("Join check failed")
			return false
		}
		return ok
	}
}

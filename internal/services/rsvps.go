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
	"gorm.io/datatypes"
)

// UpsertRSVPInput is a partial RSVP. Nil fields leave the stored value
// unchanged; on creation they take their defaults.
type UpsertRSVPInput struct {
	Status             *models.RSVPStatus `json:"status"`
	HasPlusOne         *bool              `json:"hasPlusOne"`
	PlusOneName        *string            `json:"plusOneName" validate:"omitempty,max=200"`
	Comment            *string            `json:"comment" validate:"omitempty,max=2000"`
	DietaryPatterns    *[]string          `json:"dietaryPatterns"`
	ReligiousDietary   *[]string          `json:"religiousDietary"`
	Allergies          *[]string          `json:"allergies"`
	LifestyleChoices   *[]string          `json:"lifestyleChoices"`
	IntensityPrefs     *[]string          `json:"intensityPrefs"`
	AlcoholPrefs       *[]string          `json:"alcoholPrefs"`
	CustomDietaryNotes *string            `json:"customDietaryNotes" validate:"omitempty,max=2000"`
}

// RSVPService manages responses to events
type RSVPService struct {
	base
}

// NewRSVPService creates a new RSVP service
func NewRSVPService(d Deps) *RSVPService {
	return &RSVPService{base: newBase(d)}
}

// Upsert creates or updates the user's RSVP for an event
func (s *RSVPService) Upsert(ctx context.Context, userID, eventID uuid.UUID, input UpsertRSVPInput) (_ *models.RSVP, err error) {
	ctx, done := s.begin(ctx, "rsvp.upsert")
	defer done(&err)

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, Invalid("Status must be one of YES, MAYBE or NO")
	}

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return nil, err
	}

	rsvp, created, err := s.write(ctx, userID, eventID, input)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		// A concurrent request created the row first; ours becomes an update
		rsvp, created, err = s.write(ctx, userID, eventID, input)
	}
	if err != nil {
		if KindOf(err) != KindInternal {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to save rsvp")
	}

	invalidate(ctx, s.store, cache.GetEventAttendeesCacheKey(eventID))
	s.dispatcher.Dispatch(ctx, events.RSVPUpdated, eventID, events.RSVPChange{
		EventID:     eventID,
		EventTitle:  event.Title,
		CreatorID:   event.CreatorID,
		RSVPID:      rsvp.ID,
		UserID:      userID,
		UserName:    userName(ctx, s.repos, userID),
		Status:      rsvp.Status,
		HasPlusOne:  rsvp.HasPlusOne,
		PlusOneName: rsvp.PlusOneName,
		Created:     created,
	})

	log.Info().
		Str("event_id", eventID.String()).
		Str("user_id", userID.String()).
		Str("status", string(rsvp.Status)).
		Bool("created", created).
		Msg("RSVP saved")
	return rsvp, nil
}

// write reads and writes the row in one transaction
func (s *RSVPService) write(ctx context.Context, userID, eventID uuid.UUID, input UpsertRSVPInput) (*models.RSVP, bool, error) {
	var (
		rsvp    *models.RSVP
		created bool
	)
	err := s.transaction(ctx, func(repos *repositories.Repositories) error {
		existing, err := repos.RSVPs.Get(ctx, eventID, userID)
		switch {
		case err == nil:
			mergeRSVP(existing, input)
			rsvp = existing
			return repos.RSVPs.Save(ctx, existing)
		case errors.Is(err, repositories.ErrNotFound):
			if input.Status == nil {
				return Invalid("Status is required")
			}
			fresh := &models.RSVP{
				UserID:           userID,
				EventID:          eventID,
				HasPlusOne:       false,
				DietaryPatterns:  datatypes.JSONSlice[string]{},
				ReligiousDietary: datatypes.JSONSlice[string]{},
				Allergies:        datatypes.JSONSlice[string]{},
				LifestyleChoices: datatypes.JSONSlice[string]{},
				IntensityPrefs:   datatypes.JSONSlice[string]{},
				AlcoholPrefs:     datatypes.JSONSlice[string]{},
			}
			mergeRSVP(fresh, input)
			rsvp, created = fresh, true
			return repos.RSVPs.Create(ctx, fresh)
		default:
			return err
		}
	})
	return rsvp, created, err
}

func mergeRSVP(r *models.RSVP, in UpsertRSVPInput) {
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.HasPlusOne != nil {
		r.HasPlusOne = *in.HasPlusOne
	}
	if in.PlusOneName != nil {
		r.PlusOneName = in.PlusOneName
	}
	if in.Comment != nil {
		r.Comment = in.Comment
	}
	if in.CustomDietaryNotes != nil {
		r.CustomDietaryNotes = in.CustomDietaryNotes
	}
	setList(&r.DietaryPatterns, in.DietaryPatterns)
	setList(&r.ReligiousDietary, in.ReligiousDietary)
	setList(&r.Allergies, in.Allergies)
	setList(&r.LifestyleChoices, in.LifestyleChoices)
	setList(&r.IntensityPrefs, in.IntensityPrefs)
	setList(&r.AlcoholPrefs, in.AlcoholPrefs)
}

func setList(dst *datatypes.JSONSlice[string], src *[]string) {
	if src == nil {
		return
	}
	if *src == nil {
		*dst = datatypes.JSONSlice[string]{}
		return
	}
	*dst = datatypes.JSONSlice[string](*src)
}

// Remove deletes the user's RSVP for an event
func (s *RSVPService) Remove(ctx context.Context, userID, eventID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "rsvp.remove")
	defer done(&err)

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return err
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.RSVPs.Delete(ctx, eventID, userID)
	})
	if err != nil {
		return notFoundOr(err, "RSVP not found", "failed to remove rsvp")
	}

	invalidate(ctx, s.store, cache.GetEventAttendeesCacheKey(eventID))
	s.dispatcher.Dispatch(ctx, events.RSVPRemoved, eventID, events.RSVPChange{
		EventID:    eventID,
		EventTitle: event.Title,
		CreatorID:  event.CreatorID,
		UserID:     userID,
		UserName:   userName(ctx, s.repos, userID),
	})

	log.Info().Str("event_id", eventID.String()).Str("user_id", userID.String()).Msg("RSVP removed")
	return nil
}

// Get returns the user's own RSVP for an event
func (s *RSVPService) Get(ctx context.Context, userID, eventID uuid.UUID) (*models.RSVP, error) {
	rsvp, err := s.repos.RSVPs.Get(ctx, eventID, userID)
	if err != nil {
		return nil, notFoundOr(err, "RSVP not found", "failed to get rsvp")
	}
	return rsvp, nil
}

// ListForEvent returns every RSVP of an event as attendee views, optionally
// limited to one status
func (s *RSVPService) ListForEvent(ctx context.Context, eventID uuid.UUID, status *models.RSVPStatus) ([]models.Attendee, error) {
	if _, err := loadEvent(ctx, s.repos, eventID); err != nil {
		return nil, err
	}

	var statuses []models.RSVPStatus
	if status != nil {
		if !status.Valid() {
			return nil, Invalid("Status must be one of YES, MAYBE or NO")
		}
		statuses = append(statuses, *status)
	}

	rsvps, err := s.repos.RSVPs.ListByEvent(ctx, eventID, statuses...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rsvps")
	}
	ids := make([]uuid.UUID, 0, len(rsvps))
	for _, r := range rsvps {
		ids = append(ids, r.UserID)
	}
	users, err := s.repos.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load rsvp users")
	}

	views := make([]models.Attendee, 0, len(rsvps))
	for _, r := range rsvps {
		views = append(views, models.Attendee{
			UserID:             r.UserID,
			Name:               users[r.UserID].Name,
			Status:             r.Status,
			HasPlusOne:         r.HasPlusOne,
			PlusOneName:        r.PlusOneName,
			Comment:            r.Comment,
			DietaryPatterns:    []string(r.DietaryPatterns),
			ReligiousDietary:   []string(r.ReligiousDietary),
			Allergies:          []string(r.Allergies),
			LifestyleChoices:   []string(r.LifestyleChoices),
			IntensityPrefs:     []string(r.IntensityPrefs),
			AlcoholPrefs:       []string(r.AlcoholPrefs),
			CustomDietaryNotes: r.CustomDietaryNotes,
			JoinedAt:           r.CreatedAt,
		})
		normalizeLists(&views[len(views)-1])
	}
	return views, nil
}

// Counts tallies an event's RSVPs by status. Plus-ones count only for YES.
func (s *RSVPService) Counts(ctx context.Context, eventID uuid.UUID) (*models.RSVPCounts, error) {
	if _, err := loadEvent(ctx, s.repos, eventID); err != nil {
		return nil, err
	}
	rsvps, err := s.repos.RSVPs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list rsvps")
	}

	var counts models.RSVPCounts
	for _, r := range rsvps {
		switch r.Status {
		case models.RSVPYes:
			counts.Yes++
			if r.HasPlusOne {
				counts.PlusOnes++
			}
		case models.RSVPMaybe:
			counts.Maybe++
		case models.RSVPNo:
			counts.No++
		}
	}
	counts.TotalAttending = counts.Yes + counts.PlusOnes
	return &counts, nil
}

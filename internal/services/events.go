package services

import (
	"context"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/realtime"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const upcomingWindow = 7 * 24 * time.Hour

// CreateEventInput holds the fields of a new event
type CreateEventInput struct {
	Title        string               `json:"title" validate:"required,max=200"`
	Description  *string              `json:"description" validate:"omitempty,max=5000"`
	Datetime     time.Time            `json:"datetime" validate:"required"`
	LocationText string               `json:"locationText" validate:"max=500"`
	Latitude     *float64             `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64             `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsPublic     bool                 `json:"isPublic"`
	Category     models.EventCategory `json:"category"`
}

// UpdateEventInput changes the non-nil fields of an event
type UpdateEventInput struct {
	Title        *string               `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string               `json:"description" validate:"omitempty,max=5000"`
	Datetime     *time.Time            `json:"datetime"`
	LocationText *string               `json:"locationText" validate:"omitempty,max=500"`
	Latitude     *float64              `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude    *float64              `json:"longitude" validate:"omitempty,min=-180,max=180"`
	IsPublic     *bool                 `json:"isPublic"`
	Category     *models.EventCategory `json:"category"`
}

// ListEventsInput narrows the public event listing
type ListEventsInput struct {
	UpcomingOnly bool
	Limit        int
	Offset       int
}

// DietarySection is one group of dietary tags shown on an RSVP form
type DietarySection struct {
	Name    string                 `json:"name"`
	Options []models.DietaryOption `json:"options"`
}

// EventService manages events
type EventService struct {
	base
	indexer   EventIndexer
	scheduler *PollScheduler
}

// NewEventService creates a new event service
func NewEventService(d Deps, scheduler *PollScheduler) *EventService {
	return &EventService{
		base:      newBase(d),
		indexer:   d.Indexer,
		scheduler: scheduler,
	}
}

// Create stores a new event owned by creatorID
func (s *EventService) Create(ctx context.Context, creatorID uuid.UUID, input CreateEventInput) (_ *models.Event, err error) {
	ctx, done := s.begin(ctx, "event.create")
	defer done(&err)

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Category != "" && !input.Category.Valid() {
		return nil, Invalid("Invalid category")
	}

	event := &models.Event{
		Title:        input.Title,
		Description:  input.Description,
		Datetime:     input.Datetime.UTC(),
		LocationText: input.LocationText,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		CreatorID:    creatorID,
		IsPublic:     input.IsPublic,
		Category:     input.Category,
	}
	if err := s.repos.Events.Create(ctx, event); err != nil {
		return nil, errors.Wrap(err, "failed to create event")
	}

	s.cacheEvent(ctx, event)
	s.dispatcher.Broadcaster().EmitToUser(creatorID, realtime.KindEventCreated, event)
	s.index(ctx, event)

	log.Info().
		Str("event_id", event.ID.String()).
		Str("user_id", creatorID.String()).
		Msg("Event created")
	return event, nil
}

// Get returns an event, preferring the cache
func (s *EventService) Get(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var cached models.Event
	if err := s.store.Get(ctx, cache.GetEventCacheKey(id), &cached); err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, nil
	}
	s.metrics.RecordCacheLookup(false)

	event, err := loadEvent(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	s.cacheEvent(ctx, event)
	return event, nil
}

// GetWithAttendees returns an event with its confirmed attendees, preferring the cache
func (s *EventService) GetWithAttendees(ctx context.Context, id uuid.UUID) (*models.EventWithAttendees, error) {
	key := cache.GetEventAttendeesCacheKey(id)
	var cached models.EventWithAttendees
	if err := s.store.Get(ctx, key, &cached); err == nil {
		s.metrics.RecordCacheLookup(true)
		return &cached, nil
	}
	s.metrics.RecordCacheLookup(false)

	event, err := loadEvent(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}

	attendees, err := listAttendees(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}

	view := &models.EventWithAttendees{
		Event:         *event,
		CreatorName:   userName(ctx, s.repos, event.CreatorID),
		Attendees:     attendees,
		AttendeeCount: len(attendees),
	}

	if err := s.store.Set(ctx, key, view, cache.EventAttendeesTTL); err != nil {
		log.Warn().Err(err).Str("event_id", id.String()).Msg("Failed to cache event attendees")
	}
	return view, nil
}

// List returns public events ordered by start time
func (s *EventService) List(ctx context.Context, input ListEventsInput) ([]models.Event, error) {
	public := true
	filter := repositories.EventFilter{IsPublic: &public, Limit: input.Limit, Offset: input.Offset}
	if input.UpcomingOnly {
		now := time.Now()
		filter.From = &now
	}
	events, err := s.repos.Events.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}
	return events, nil
}

// ListCreatedBy returns the events a user created
func (s *EventService) ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	events, err := s.repos.Events.List(ctx, repositories.EventFilter{CreatorID: &userID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list user events")
	}
	return events, nil
}

// ListParticipating returns the events a user answered YES or MAYBE to
func (s *EventService) ListParticipating(ctx context.Context, userID uuid.UUID) ([]models.Event, error) {
	events, err := s.repos.Events.ListParticipating(ctx, userID, models.RSVPYes, models.RSVPMaybe)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list participating events")
	}
	return events, nil
}

// Dashboard groups a user's created, participating and upcoming events
func (s *EventService) Dashboard(ctx context.Context, userID uuid.UUID) (*models.Dashboard, error) {
	created, err := s.ListCreatedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	participating, err := s.ListParticipating(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	upcoming, err := s.repos.Events.ListForUserBetween(ctx, userID, now, now.Add(upcomingWindow))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list upcoming events")
	}

	return &models.Dashboard{Created: created, Participating: participating, Upcoming: upcoming}, nil
}

// Update changes an event; only its creator may do so
func (s *EventService) Update(ctx context.Context, userID, id uuid.UUID, input UpdateEventInput) (_ *models.Event, err error) {
	ctx, done := s.begin(ctx, "event.update")
	defer done(&err)

	if err := validateInput(input); err != nil {
		return nil, err
	}
	if input.Category != nil && !input.Category.Valid() {
		return nil, Invalid("Invalid category")
	}

	event, err := loadEvent(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, Forbidden("Only the event creator can update this event")
	}

	if input.Title != nil {
		event.Title = *input.Title
	}
	if input.Description != nil {
		event.Description = input.Description
	}
	if input.Datetime != nil {
		event.Datetime = input.Datetime.UTC()
	}
	if input.LocationText != nil {
		event.LocationText = *input.LocationText
	}
	if input.Latitude != nil {
		event.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		event.Longitude = input.Longitude
	}
	if input.IsPublic != nil {
		event.IsPublic = *input.IsPublic
	}
	if input.Category != nil {
		event.Category = *input.Category
	}

	if err := s.save(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// ApplyChange writes a poll outcome to the event. It bypasses the owner
// check because the poll close that triggers it was already authorized.
func (s *EventService) ApplyChange(ctx context.Context, eventID uuid.UUID, change EventChange) (*models.Event, error) {
	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return nil, err
	}
	if change.Datetime != nil {
		event.Datetime = change.Datetime.UTC()
	}
	if change.LocationText != nil {
		event.LocationText = *change.LocationText
	}
	if err := s.save(ctx, event); err != nil {
		return nil, err
	}

	log.Info().Str("event_id", eventID.String()).Msg("Event updated from poll outcome")
	return event, nil
}

func (s *EventService) save(ctx context.Context, event *models.Event) error {
	if err := s.repos.Events.Save(ctx, event); err != nil {
		return errors.Wrap(err, "failed to update event")
	}

	s.cacheEvent(ctx, event)
	invalidate(ctx, s.store, cache.GetEventAttendeesCacheKey(event.ID))
	s.dispatcher.Broadcaster().EmitToEvent(event.ID, realtime.KindEventUpdated, event)
	s.index(ctx, event)
	return nil
}

// Delete removes an event and everything attached to it; only its creator may do so
func (s *EventService) Delete(ctx context.Context, userID, id uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "event.delete")
	defer done(&err)

	event, err := loadEvent(ctx, s.repos, id)
	if err != nil {
		return err
	}
	if event.CreatorID != userID {
		return Forbidden("Only the event creator can delete this event")
	}

	pollIDs, err := s.repos.Polls.ListEventPollIDs(ctx, id)
	if err != nil {
		return errors.Wrap(err, "failed to list event polls")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Events.DeleteCascade(ctx, id)
	})
	if err != nil {
		return notFoundOr(err, msgEventNotFound, "failed to delete event")
	}

	for _, pollID := range pollIDs {
		s.scheduler.Cancel(pollID)
	}
	invalidate(ctx, s.store, cache.GetEventCacheKey(id), cache.GetEventAttendeesCacheKey(id))
	s.dispatcher.Broadcaster().EmitToEvent(id, realtime.KindEventDeleted, map[string]uuid.UUID{"id": id})
	if s.indexer != nil {
		if err := s.indexer.DeleteEvent(ctx, id); err != nil {
			log.Warn().Err(err).Str("event_id", id.String()).Msg("Failed to remove event from search index")
		}
	}

	log.Info().Str("event_id", id.String()).Msg("Event deleted")
	return nil
}

// DietarySections returns the dietary sections and tags to ask for on the event's RSVP form
func (s *EventService) DietarySections(ctx context.Context, id uuid.UUID) ([]DietarySection, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	names := models.DietarySections(event.Category)
	sections := make([]DietarySection, 0, len(names))
	for _, name := range names {
		sections = append(sections, DietarySection{Name: name, Options: models.DietaryCatalog[name]})
	}
	return sections, nil
}

// Search finds public events by text. It uses the search index when one is
// configured and falls back to a database match otherwise.
func (s *EventService) Search(ctx context.Context, text string, limit int) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	if s.indexer != nil {
		ids, err := s.indexer.SearchEvents(ctx, text, limit)
		if err == nil {
			events, err := s.repos.Events.ListByIDs(ctx, ids)
			if err != nil {
				return nil, errors.Wrap(err, "failed to load search results")
			}
			return events, nil
		}
		log.Warn().Err(err).Msg("Search index query failed, falling back to database")
	}

	events, err := s.repos.Events.SearchPublic(ctx, text, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search events")
	}
	return events, nil
}

func (s *EventService) cacheEvent(ctx context.Context, event *models.Event) {
	if err := s.store.Set(ctx, cache.GetEventCacheKey(event.ID), event, cache.EventTTL); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to cache event")
	}
}

func (s *EventService) index(ctx context.Context, event *models.Event) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexEvent(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_id", event.ID.String()).Msg("Failed to index event")
	}
}

// listAttendees returns the YES RSVPs of an event joined with user names, in join order
func listAttendees(ctx context.Context, repos *repositories.Repositories, eventID uuid.UUID) ([]models.Attendee, error) {
	rsvps, err := repos.RSVPs.ListByEvent(ctx, eventID, models.RSVPYes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list attendees")
	}

	ids := make([]uuid.UUID, 0, len(rsvps))
	for _, r := range rsvps {
		ids = append(ids, r.UserID)
	}
	users, err := repos.Users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load attendee names")
	}

	attendees := make([]models.Attendee, 0, len(rsvps))
	for i := range rsvps {
		var a models.Attendee
		if err := copier.Copy(&a, &rsvps[i]); err != nil {
			return nil, errors.Wrap(err, "failed to map attendee")
		}
		u := users[rsvps[i].UserID]
		a.Name = u.Name
		a.Email = u.Email
		a.JoinedAt = rsvps[i].CreatedAt
		normalizeLists(&a)
		attendees = append(attendees, a)
	}
	return attendees, nil
}

func normalizeLists(a *models.Attendee) {
	for _, l := range []*[]string{&a.DietaryPatterns, &a.ReligiousDietary, &a.Allergies, &a.LifestyleChoices, &a.IntensityPrefs, &a.AlcoholPrefs} {
		if *l == nil {
			*l = []string{}
		}
	}
}

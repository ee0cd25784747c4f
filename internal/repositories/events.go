package repositories

import (
	"context"
	"strings"
	"time"

	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EventFilter narrows event listings
type EventFilter struct {
	CreatorID *uuid.UUID
	IsPublic  *bool
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// EventRepository provides access to event data
type EventRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB, readOnlyDB *gorm.DB) *EventRepository {
	return &EventRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts an event
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	return translate(r.db.WithContext(ctx).Create(event).Error, "failed to create event")
}

// Save writes every column of an existing event
func (r *EventRepository) Save(ctx context.Context, event *models.Event) error {
	return translate(r.db.WithContext(ctx).Save(event).Error, "failed to save event")
}

// GetByID gets an event by ID
func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	// Use read-only DB for reads
	err := r.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		return nil, translate(err, "failed to get event by ID")
	}
	return &event, nil
}

// List returns events matching the filter ordered by start time
func (r *EventRepository) List(ctx context.Context, filter EventFilter) ([]models.Event, error) {
	q := r.readOnlyDB.WithContext(ctx).Model(&models.Event{})
	if filter.CreatorID != nil {
		q = q.Where("creator_id = ?", *filter.CreatorID)
	}
	if filter.IsPublic != nil {
		q = q.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.From != nil {
		q = q.Where("datetime >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("datetime <= ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var events []models.Event
	if err := q.Order("datetime ASC").Find(&events).Error; err != nil {
		return nil, translate(err, "failed to list events")
	}
	return events, nil
}

// ListParticipating returns events the user has an RSVP with one of statuses for,
// excluding events the user created
func (r *EventRepository) ListParticipating(ctx context.Context, userID uuid.UUID, statuses ...models.RSVPStatus) ([]models.Event, error) {
	q := r.readOnlyDB.WithContext(ctx).
		Select("events.*").
		Joins("JOIN rsvps ON rsvps.event_id = events.id").
		Where("rsvps.user_id = ? AND events.creator_id <> ?", userID, userID)
	if len(statuses) > 0 {
		q = q.Where("rsvps.status IN ?", statuses)
	}

	var events []models.Event
	if err := q.Order("events.datetime ASC").Find(&events).Error; err != nil {
		return nil, translate(err, "failed to list participating events")
	}
	return events, nil
}

// ListForUserBetween returns events the user created or answered YES/MAYBE to
// that start within [from, to]
func (r *EventRepository) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Event, error) {
	sub := r.readOnlyDB.Model(&models.RSVP{}).
		Select("event_id").
		Where("user_id = ? AND status IN ?", userID, []models.RSVPStatus{models.RSVPYes, models.RSVPMaybe})

	var events []models.Event
	err := r.readOnlyDB.WithContext(ctx).
		Where("(creator_id = ? OR id IN (?)) AND datetime >= ? AND datetime <= ?", userID, sub, from.UTC(), to.UTC()).
		Order("datetime ASC").
		Find(&events).Error
	if err != nil {
		return nil, translate(err, "failed to list upcoming events")
	}
	return events, nil
}

// DeleteCascade removes an event and everything hanging off it. Call it inside
// a transaction.
func (r *EventRepository) DeleteCascade(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)

	pollIDs := func() *gorm.DB {
		return tx.Model(&models.Poll{}).Select("id").Where("event_id = ?", id)
	}
	if err := tx.Where("poll_id IN (?)", pollIDs()).Delete(&models.PollVote{}).Error; err != nil {
		return translate(err, "failed to delete poll votes")
	}
	if err := tx.Where("poll_id IN (?)", pollIDs()).Delete(&models.PollOption{}).Error; err != nil {
		return translate(err, "failed to delete poll options")
	}
	if err := tx.Where("event_id = ?", id).Delete(&models.Poll{}).Error; err != nil {
		return translate(err, "failed to delete polls")
	}
	if err := tx.Where("event_id = ?", id).Delete(&models.Message{}).Error; err != nil {
		return translate(err, "failed to delete messages")
	}
	if err := tx.Where("event_id = ?", id).Delete(&models.RSVP{}).Error; err != nil {
		return translate(err, "failed to delete rsvps")
	}

	res := tx.Where("id = ?", id).Delete(&models.Event{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete event")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SearchPublic matches public events whose title, description or location
// contains text, soonest first
func (r *EventRepository) SearchPublic(ctx context.Context, text string, limit int) ([]models.Event, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(text)) + "%"
	q := r.readOnlyDB.WithContext(ctx).
		Where("is_public = ?", true).
		Where("LOWER(title) LIKE ? OR LOWER(COALESCE(description, '')) LIKE ? OR LOWER(location_text) LIKE ?", like, like, like)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var events []models.Event
	if err := q.Order("datetime ASC").Find(&events).Error; err != nil {
		return nil, translate(err, "failed to search events")
	}
	return events, nil
}

// ListByIDs returns the events with the given IDs, preserving the order of ids
func (r *EventRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Event, error) {
	if len(ids) == 0 {
		return []models.Event{}, nil
	}
	var found []models.Event
	if err := r.readOnlyDB.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, translate(err, "failed to list events")
	}
	byID := make(map[uuid.UUID]models.Event, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	events := make([]models.Event, 0, len(found))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}

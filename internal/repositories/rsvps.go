package repositories

import (
	"context"

	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RSVPRepository provides access to RSVPs
type RSVPRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewRSVPRepository creates a new RSVP repository
func NewRSVPRepository(db *gorm.DB, readOnlyDB *gorm.DB) *RSVPRepository {
	return &RSVPRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Get returns the user's RSVP for an event
func (r *RSVPRepository) Get(ctx context.Context, eventID, userID uuid.UUID) (*models.RSVP, error) {
	var rsvp models.RSVP
	err := r.readOnlyDB.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&rsvp).Error
	if err != nil {
		return nil, translate(err, "failed to get rsvp")
	}
	return &rsvp, nil
}

// Exists reports whether the user holds any RSVP for the event
func (r *RSVPRepository) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.readOnlyDB.WithContext(ctx).Model(&models.RSVP{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, translate(err, "failed to check rsvp")
	}
	return count > 0, nil
}

// Create inserts an RSVP; a concurrent insert for the same pair yields ErrDuplicateKey
func (r *RSVPRepository) Create(ctx context.Context, rsvp *models.RSVP) error {
	return translate(r.db.WithContext(ctx).Create(rsvp).Error, "failed to create rsvp")
}

// Save writes every column of an existing RSVP
func (r *RSVPRepository) Save(ctx context.Context, rsvp *models.RSVP) error {
	return translate(r.db.WithContext(ctx).Save(rsvp).Error, "failed to save rsvp")
}

// Delete removes the user's RSVP; ErrNotFound when there was none
func (r *RSVPRepository) Delete(ctx context.Context, eventID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.RSVP{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete rsvp")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByEvent returns RSVPs for an event in join order, optionally limited to statuses
func (r *RSVPRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...models.RSVPStatus) ([]models.RSVP, error) {
	q := r.readOnlyDB.WithContext(ctx).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var rsvps []models.RSVP
	if err := q.Order("created_at ASC").Find(&rsvps).Error; err != nil {
		return nil, translate(err, "failed to list rsvps")
	}
	return rsvps, nil
}

// ParticipantIDs returns the user IDs holding an RSVP for the event,
// optionally limited to statuses
func (r *RSVPRepository) ParticipantIDs(ctx context.Context, eventID uuid.UUID, statuses ...models.RSVPStatus) ([]uuid.UUID, error) {
	q := r.readOnlyDB.WithContext(ctx).Model(&models.RSVP{}).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}

	var ids []uuid.UUID
	if err := q.Order("created_at ASC").Pluck("user_id", &ids).Error; err != nil {
		return nil, translate(err, "failed to list participant ids")
	}
	return ids, nil
}

package repositories

import (
	"context"
	"time"

	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository provides access to chat messages
type MessageRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB, readOnlyDB *gorm.DB) *MessageRepository {
	return &MessageRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

// Create inserts a message
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	return translate(r.db.WithContext(ctx).Create(msg).Error, "failed to create message")
}

// GetByID gets a message by ID
func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := r.readOnlyDB.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		return nil, translate(err, "failed to get message")
	}
	return &msg, nil
}

// ListRecent returns up to limit messages older than before (when set), newest first
func (r *MessageRepository) ListRecent(ctx context.Context, eventID uuid.UUID, before *time.Time, limit int) ([]models.Message, error) {
	q := r.readOnlyDB.WithContext(ctx).Where("event_id = ?", eventID)
	if before != nil {
		q = q.Where("created_at < ?", before.UTC())
	}

	var msgs []models.Message
	if err := q.Order("created_at DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, translate(err, "failed to list messages")
	}
	return msgs, nil
}

// Delete removes a message
func (r *MessageRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Message{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete message")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

package repositories

import (
	"context"
	"time"

	"example.com/connectsphere/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PollRepository provides access to polls, options and votes
type PollRepository struct {
	db         *gorm.DB
	readOnlyDB *gorm.DB
}

// NewPollRepository creates a new poll repository
func NewPollRepository(db *gorm.DB, readOnlyDB *gorm.DB) *PollRepository {
	return &PollRepository{
		db:         db,
		readOnlyDB: readOnlyDB,
	}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// Create inserts a poll together with its options
func (r *PollRepository) Create(ctx context.Context, poll *models.Poll) error {
	if poll.ID == uuid.Nil {
		poll.ID = uuid.New()
	}
	for i := range poll.Options {
		if poll.Options[i].ID == uuid.Nil {
			poll.Options[i].ID = uuid.New()
		}
		poll.Options[i].PollID = poll.ID
		poll.Options[i].Position = i
	}
	return translate(r.db.WithContext(ctx).Create(poll).Error, "failed to create poll")
}

// GetByID gets a poll with its options in position order
func (r *PollRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	var poll models.Poll
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("id = ?", id).
		First(&poll).Error
	if err != nil {
		return nil, translate(err, "failed to get poll")
	}
	return &poll, nil
}

// ListByEvent returns the polls of an event, newest first
func (r *PollRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.readOnlyDB.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&polls).Error
	if err != nil {
		return nil, translate(err, "failed to list polls")
	}
	return polls, nil
}

// ReplaceVote removes any vote the user has on the poll and records the new one.
// The poll row is touched first while still open, which holds its lock until
// commit; a poll closed in the meantime yields ErrPollClosed. Call it inside a
// transaction.
func (r *PollRepository) ReplaceVote(ctx context.Context, vote *models.PollVote) error {
	tx := r.db.WithContext(ctx)
	res := tx.Model(&models.Poll{}).
		Where("id = ? AND is_closed = ?", vote.PollID, false).
		Update("updated_at", time.Now().UTC())
	if res.Error != nil {
		return translate(res.Error, "failed to lock poll")
	}
	if res.RowsAffected == 0 {
		return ErrPollClosed
	}

	if err := tx.Where("poll_id = ? AND user_id = ?", vote.PollID, vote.UserID).Delete(&models.PollVote{}).Error; err != nil {
		return translate(err, "failed to delete previous vote")
	}
	return translate(tx.Create(vote).Error, "failed to create vote")
}

// MarkClosed flips is_closed from false to true. It reports false when the
// poll was already closed, which makes concurrent closers race safely.
func (r *PollRepository) MarkClosed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Poll{}).
		Where("id = ? AND is_closed = ?", id, false).
		Updates(map[string]interface{}{"is_closed": true, "closed_at": at.UTC()})
	if res.Error != nil {
		return false, translate(res.Error, "failed to close poll")
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a poll with its options and votes. Call it inside a transaction.
func (r *PollRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("poll_id = ?", id).Delete(&models.PollVote{}).Error; err != nil {
		return translate(err, "failed to delete votes")
	}
	if err := tx.Where("poll_id = ?", id).Delete(&models.PollOption{}).Error; err != nil {
		return translate(err, "failed to delete options")
	}
	res := tx.Where("id = ?", id).Delete(&models.Poll{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete poll")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOpenWithDeadline returns open polls that carry a close time
func (r *PollRepository) ListOpenWithDeadline(ctx context.Context) ([]models.Poll, error) {
	var polls []models.Poll
	err := r.readOnlyDB.WithContext(ctx).
		Where("is_closed = ? AND close_at IS NOT NULL", false).
		Order("close_at ASC").
		Find(&polls).Error
	if err != nil {
		return nil, translate(err, "failed to list scheduled polls")
	}
	return polls, nil
}

// ListEventPollIDs returns the IDs of an event's polls
func (r *PollRepository) ListEventPollIDs(ctx context.Context, eventID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.readOnlyDB.WithContext(ctx).Model(&models.Poll{}).
		Where("event_id = ?", eventID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translate(err, "failed to list poll ids")
	}
	return ids, nil
}

type optionCount struct {
	OptionID uuid.UUID
	Votes    int
}

// Summarize attaches vote tallies to polls
func (r *PollRepository) Summarize(ctx context.Context, polls []models.Poll) ([]models.PollSummary, error) {
	if len(polls) == 0 {
		return []models.PollSummary{}, nil
	}

	ids := make([]uuid.UUID, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.ID)
	}

	var counts []optionCount
	err := r.readOnlyDB.WithContext(ctx).Model(&models.PollVote{}).
		Select("option_id, COUNT(*) AS votes").
		Where("poll_id IN ?", ids).
		Group("option_id").
		Scan(&counts).Error
	if err != nil {
		return nil, translate(err, "failed to count votes")
	}

	byOption := make(map[uuid.UUID]int, len(counts))
	for _, c := range counts {
		byOption[c.OptionID] = c.Votes
	}

	summaries := make([]models.PollSummary, 0, len(polls))
	for _, p := range polls {
		s := models.PollSummary{
			ID:        p.ID,
			EventID:   p.EventID,
			Question:  p.Question,
			CloseAt:   p.CloseAt,
			IsClosed:  p.IsClosed,
			CreatedAt: p.CreatedAt,
			Options:   make([]models.OptionTally, 0, len(p.Options)),
		}
		for _, o := range p.Options {
			votes := byOption[o.ID]
			s.Options = append(s.Options, models.OptionTally{ID: o.ID, Text: o.Text, Position: o.Position, Votes: votes})
			s.TotalVotes += votes
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Summary loads one poll with tallies
func (r *PollRepository) Summary(ctx context.Context, id uuid.UUID) (*models.PollSummary, error) {
	poll, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summaries, err := r.Summarize(ctx, []models.Poll{*poll})
	if err != nil {
		return nil, err
	}
	return &summaries[0], nil
}

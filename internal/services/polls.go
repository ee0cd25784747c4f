package services

import (
	"context"
	"strings"
	"time"

	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/repositories"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const msgPollNotFound = "Poll not found"

// CreatePollInput holds a new poll
type CreatePollInput struct {
	Question string     `json:"question" validate:"required,max=500"`
	Options  []string   `json:"options" validate:"min=2,max=20,dive,required,max=200"`
	CloseAt  *time.Time `json:"closeAt"`
}

// PollService manages event polls
type PollService struct {
	base
	events    *EventService
	scheduler *PollScheduler
}

// NewPollService creates a new poll service. A nil scheduler disables
// auto-close; polls still store their deadline.
func NewPollService(d Deps, eventSvc *EventService, scheduler *PollScheduler) *PollService {
	s := &PollService{
		base:      newBase(d),
		events:    eventSvc,
		scheduler: scheduler,
	}
	scheduler.bind(s.AutoClose)
	return s
}

// Create adds a poll to an event; only the event creator may do so
func (s *PollService) Create(ctx context.Context, userID, eventID uuid.UUID, input CreatePollInput) (_ *models.PollSummary, err error) {
	ctx, done := s.begin(ctx, "poll.create")
	defer done(&err)

	input.Question = strings.TrimSpace(input.Question)
	options := make([]string, 0, len(input.Options))
	for _, o := range input.Options {
		if o = strings.TrimSpace(o); o != "" {
			options = append(options, o)
		}
	}
	input.Options = options
	if err := validateInput(input); err != nil {
		if len(options) < 2 {
			return nil, Invalid("A poll needs at least two options")
		}
		return nil, err
	}
	if input.CloseAt != nil && !input.CloseAt.After(time.Now()) {
		return nil, Invalid("Close time must be in the future")
	}

	event, err := loadEvent(ctx, s.repos, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, Forbidden("Only the event creator can create polls")
	}

	poll := &models.Poll{EventID: eventID, Question: input.Question}
	if input.CloseAt != nil {
		at := input.CloseAt.UTC()
		poll.CloseAt = &at
	}
	for _, text := range options {
		poll.Options = append(poll.Options, models.PollOption{Text: text})
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Polls.Create(ctx, poll)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create poll")
	}

	summary, err := s.repos.Polls.Summary(ctx, poll.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load poll")
	}

	s.dispatcher.Dispatch(ctx, events.PollCreated, eventID, events.PollOpened{
		EventID:  eventID,
		PollID:   poll.ID,
		Question: poll.Question,
		Poll:     *summary,
	})

	if poll.CloseAt != nil && poll.CloseAt.After(time.Now()) {
		if err := s.scheduler.Schedule(poll.ID, *poll.CloseAt); err != nil {
			log.Warn().Err(err).Str("poll_id", poll.ID.String()).Msg("Failed to schedule poll auto-close, sweep will handle it")
		}
	}

	log.Info().Str("event_id", eventID.String()).Str("poll_id", poll.ID.String()).Msg("Poll created")
	return summary, nil
}

// Get returns one poll with its tallies
func (s *PollService) Get(ctx context.Context, pollID uuid.UUID) (*models.PollSummary, error) {
	summary, err := s.repos.Polls.Summary(ctx, pollID)
	if err != nil {
		return nil, notFoundOr(err, msgPollNotFound, "failed to get poll")
	}
	return summary, nil
}

// ListForEvent returns an event's polls with tallies, newest first
func (s *PollService) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]models.PollSummary, error) {
	if _, err := loadEvent(ctx, s.repos, eventID); err != nil {
		return nil, err
	}
	polls, err := s.repos.Polls.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list polls")
	}
	summaries, err := s.repos.Polls.Summarize(ctx, polls)
	if err != nil {
		return nil, errors.Wrap(err, "failed to summarize polls")
	}
	return summaries, nil
}

// Vote records the user's choice, replacing any earlier vote on the poll
func (s *PollService) Vote(ctx context.Context, userID, pollID, optionID uuid.UUID) (_ *models.PollSummary, err error) {
	ctx, done := s.begin(ctx, "poll.vote")
	defer done(&err)

	poll, err := s.repos.Polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, notFoundOr(err, msgPollNotFound, "failed to load poll")
	}
	if poll.IsClosed {
		return nil, Conflict("Poll is closed")
	}

	valid := false
	for _, o := range poll.Options {
		if o.ID == optionID {
			valid = true
			break
		}
	}
	if !valid {
		return nil, Invalid("Invalid option")
	}

	event, err := loadEvent(ctx, s.repos, poll.EventID)
	if err != nil {
		return nil, err
	}
	ok, err := hasAccess(ctx, s.repos, event, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, Forbidden("You must RSVP to this event before voting")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Polls.ReplaceVote(ctx, &models.PollVote{PollID: pollID, UserID: userID, OptionID: optionID})
	})
	if errors.Is(err, repositories.ErrPollClosed) {
		return nil, Conflict("Poll is closed")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to record vote")
	}

	summary, err := s.repos.Polls.Summary(ctx, pollID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load poll")
	}

	s.dispatcher.Dispatch(ctx, events.PollVote, poll.EventID, events.PollVoted{
		EventID:  poll.EventID,
		PollID:   pollID,
		Poll:     *summary,
		UserID:   userID,
		UserName: userName(ctx, s.repos, userID),
		OptionID: optionID,
	})
	return summary, nil
}

// Close ends voting on a poll; only the event creator may do so
func (s *PollService) Close(ctx context.Context, userID, pollID uuid.UUID) (_ *models.PollSummary, err error) {
	ctx, done := s.begin(ctx, "poll.close")
	defer done(&err)

	poll, event, err := s.pollWithEvent(ctx, pollID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != userID {
		return nil, Forbidden("Only the event creator can close polls")
	}
	return s.close(ctx, poll)
}

// AutoClose closes a poll on behalf of its event creator once its deadline passes
func (s *PollService) AutoClose(ctx context.Context, pollID uuid.UUID) error {
	poll, event, err := s.pollWithEvent(ctx, pollID)
	if err != nil {
		return err
	}
	if _, err := s.Close(ctx, event.CreatorID, poll.ID); err != nil {
		return err
	}
	log.Info().Str("poll_id", pollID.String()).Msg("Poll auto-closed")
	return nil
}

func (s *PollService) close(ctx context.Context, poll *models.Poll) (*models.PollSummary, error) {
	if poll.IsClosed {
		return nil, Conflict("Poll is already closed")
	}

	var flipped bool
	err := s.transaction(ctx, func(repos *repositories.Repositories) error {
		var err error
		flipped, err = repos.Polls.MarkClosed(ctx, poll.ID, time.Now())
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to close poll")
	}
	if !flipped {
		return nil, Conflict("Poll is already closed")
	}
	s.scheduler.Cancel(poll.ID)

	summary, err := s.repos.Polls.Summary(ctx, poll.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load poll")
	}
	winner := summary.Winner()

	s.dispatcher.Dispatch(ctx, events.PollClosed, poll.EventID, events.PollFinished{
		EventID:       poll.EventID,
		PollID:        poll.ID,
		Question:      poll.Question,
		Poll:          *summary,
		WinningOption: winner,
	})

	if winner != nil {
		if change, ok := InferEventChange(poll.Question, winner.Text); ok {
			if _, err := s.events.ApplyChange(ctx, poll.EventID, change); err != nil {
				log.Warn().Err(err).
					Str("poll_id", poll.ID.String()).
					Str("event_id", poll.EventID.String()).
					Msg("Failed to apply poll outcome to event")
			}
		}
	}

	log.Info().Str("poll_id", poll.ID.String()).Msg("Poll closed")
	return summary, nil
}

// Delete removes a poll with its votes; only the event creator may do so
func (s *PollService) Delete(ctx context.Context, userID, pollID uuid.UUID) (err error) {
	ctx, done := s.begin(ctx, "poll.delete")
	defer done(&err)

	poll, event, err := s.pollWithEvent(ctx, pollID)
	if err != nil {
		return err
	}
	if event.CreatorID != userID {
		return Forbidden("Only the event creator can delete polls")
	}

	err = s.transaction(ctx, func(repos *repositories.Repositories) error {
		return repos.Polls.Delete(ctx, pollID)
	})
	if err != nil {
		return notFoundOr(err, msgPollNotFound, "failed to delete poll")
	}
	s.scheduler.Cancel(pollID)

	s.dispatcher.Dispatch(ctx, events.PollDeleted, poll.EventID, events.PollRemoved{
		EventID: poll.EventID,
		PollID:  pollID,
	})
	return nil
}

// Sweep closes open polls whose deadline has passed and re-arms jobs for the
// rest. It returns the number of polls closed.
func (s *PollService) Sweep(ctx context.Context) (int, error) {
	polls, err := s.repos.Polls.ListOpenWithDeadline(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list scheduled polls")
	}

	now := time.Now()
	closed := 0
	for _, p := range polls {
		if p.CloseAt.After(now) {
			if err := s.scheduler.Schedule(p.ID, *p.CloseAt); err != nil {
				log.Warn().Err(err).Str("poll_id", p.ID.String()).Msg("Failed to re-arm poll auto-close")
			}
			continue
		}

		err := s.AutoClose(ctx, p.ID)
		switch {
		case err == nil:
			closed++
		case KindOf(err) == KindConflict || KindOf(err) == KindNotFound:
		default:
			log.Error().Err(err).Str("poll_id", p.ID.String()).Msg("Failed to auto-close overdue poll")
		}
	}

	if closed > 0 {
		log.Info().Int("closed", closed).Msg("Poll sweep closed overdue polls")
	}
	return closed, nil
}

func (s *PollService) pollWithEvent(ctx context.Context, pollID uuid.UUID) (*models.Poll, *models.Event, error) {
	poll, err := s.repos.Polls.GetByID(ctx, pollID)
	if err != nil {
		return nil, nil, notFoundOr(err, msgPollNotFound, "failed to load poll")
	}
	event, err := loadEvent(ctx, s.repos, poll.EventID)
	if err != nil {
		return nil, nil, err
	}
	return poll, event, nil
}

package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const autoCloseTimeout = 30 * time.Second

// PollScheduler runs one-time auto-close jobs tagged with the poll id, plus
// the periodic recovery sweep. The deadline itself lives on the poll row, so
// a lost job is picked up by the next sweep.
type PollScheduler struct {
	scheduler gocron.Scheduler

	mu    sync.RWMutex
	close func(ctx context.Context, pollID uuid.UUID) error
}

// NewPollScheduler creates a stopped scheduler
func NewPollScheduler() (*PollScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create poll scheduler")
	}
	return &PollScheduler{scheduler: s}, nil
}

func (p *PollScheduler) bind(fn func(ctx context.Context, pollID uuid.UUID) error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.close = fn
	p.mu.Unlock()
}

func (p *PollScheduler) runClose(pollID uuid.UUID) {
	p.mu.RLock()
	fn := p.close
	p.mu.RUnlock()
	if fn == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), autoCloseTimeout)
	defer cancel()

	if err := fn(ctx, pollID); err != nil {
		switch KindOf(err) {
		case KindConflict, KindNotFound:
			log.Debug().Err(err).Str("poll_id", pollID.String()).Msg("Auto-close skipped")
		default:
			log.Error().Err(err).Str("poll_id", pollID.String()).Msg("Auto-close failed")
		}
	}
}

// Schedule arms an auto-close at the given time, replacing any earlier job
// for the same poll. A time that is already due closes right away.
func (p *PollScheduler) Schedule(pollID uuid.UUID, at time.Time) error {
	if p == nil {
		return nil
	}
	p.Cancel(pollID)

	if !at.After(time.Now()) {
		go p.runClose(pollID)
		return nil
	}

	_, err := p.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(at)),
		gocron.NewTask(p.runClose, pollID),
		gocron.WithName("poll-auto-close"),
		gocron.WithTags(pollID.String()),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to schedule auto-close for poll %s", pollID)
	}

	log.Debug().Str("poll_id", pollID.String()).Time("close_at", at).Msg("Poll auto-close scheduled")
	return nil
}

// Cancel removes any pending auto-close for the poll
func (p *PollScheduler) Cancel(pollID uuid.UUID) {
	if p == nil {
		return
	}
	p.scheduler.RemoveByTags(pollID.String())
}

// Every registers a recurring task that never overlaps itself
func (p *PollScheduler) Every(interval time.Duration, task func()) error {
	if p == nil {
		return nil
	}
	_, err := p.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName("poll-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return errors.Wrap(err, "failed to register sweep job")
}

// Start begins running jobs
func (p *PollScheduler) Start() {
	if p == nil {
		return
	}
	p.scheduler.Start()
}

// Shutdown stops the scheduler and waits for running jobs
func (p *PollScheduler) Shutdown() error {
	if p == nil {
		return nil
	}
	return p.scheduler.Shutdown()
}

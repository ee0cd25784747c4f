// Package services implements the domain actions. Every mutating action
// validates against the database, commits in one transaction, then
// invalidates the cache, broadcasts to local sockets and publishes the
// channel event. Only the first two steps can fail the action.
package services

import (
	"context"
	"time"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/models"
	"example.com/connectsphere/internal/repositories"
	"example.com/connectsphere/internal/tracing"

	"github.com/google/uuid"
	"github.com/newrelic/go-agent/v3/newrelic"
	"gorm.io/gorm"
)

// EventIndexer keeps public events searchable
type EventIndexer interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	SearchEvents(ctx context.Context, text string, limit int) ([]uuid.UUID, error)
}

// Deps are the collaborators shared by every service
type Deps struct {
	DB         *gorm.DB
	ReadOnlyDB *gorm.DB
	Store      cache.Store
	Dispatcher *Dispatcher
	Indexer    EventIndexer // optional
	Tracer     tracing.Tracer
	Metrics    *metrics.Metrics
}

type base struct {
	db         *gorm.DB
	repos      *repositories.Repositories
	store      cache.Store
	dispatcher *Dispatcher
	tracer     tracing.Tracer
	metrics    *metrics.Metrics
}

func newBase(d Deps) base {
	ro := d.ReadOnlyDB
	if ro == nil {
		ro = d.DB
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = tracing.Disabled()
	}
	return base{
		db:         d.DB,
		repos:      repositories.New(d.DB, ro),
		store:      d.Store,
		dispatcher: d.Dispatcher,
		tracer:     tracer,
		metrics:    d.Metrics,
	}
}

// begin starts a traced action. The returned func must be deferred with a
// pointer to the action's named error. Inside a traced request the action is
// a segment of the request's transaction; elsewhere it gets its own.
func (b *base) begin(ctx context.Context, action string) (context.Context, func(*error)) {
	start := time.Now()

	txn := newrelic.FromContext(ctx)
	owned := txn == nil
	if owned {
		txn = b.tracer.StartTransaction(action)
		if txn != nil {
			ctx = newrelic.NewContext(ctx, txn)
		}
	}
	segment := b.tracer.StartSpan(action, txn)

	return ctx, func(errp *error) {
		err := *errp
		segment.End()
		if err != nil && KindOf(err) == KindInternal {
			b.tracer.RecordError(txn, err)
		}
		if owned {
			b.tracer.EndTransaction(txn)
		}
		b.metrics.RecordAction(action, start, err)
	}
}

// transaction runs fn with repositories bound to a single database transaction
func (b *base) transaction(ctx context.Context, fn func(repos *repositories.Repositories) error) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(b.repos.WithTx(tx))
	})
}

// Services bundles every domain service
type Services struct {
	Auth         *AuthService
	Events       *EventService
	RSVPs        *RSVPService
	Chat         *ChatService
	Polls        *PollService
	Participants *ParticipantService
}

// New wires all services. scheduler may be nil, which disables poll auto-close.
func New(d Deps, auth AuthOptions, scheduler *PollScheduler) *Services {
	eventSvc := NewEventService(d, scheduler)
	return &Services{
		Auth:         NewAuthService(d, auth),
		Events:       eventSvc,
		RSVPs:        NewRSVPService(d),
		Chat:         NewChatService(d),
		Polls:        NewPollService(d, eventSvc, scheduler),
		Participants: NewParticipantService(d),
	}
}

package services

import (
	"context"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"
	"example.com/connectsphere/internal/metrics"
	"example.com/connectsphere/internal/realtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Dispatcher performs the post-commit half of every action: push frames to
// local sockets, then publish the envelope for other processes and the
// notification worker. Neither step can fail the action.
type Dispatcher struct {
	store       cache.Store
	broadcaster realtime.Broadcaster
	origin      string
	metrics     *metrics.Metrics
}

// NewDispatcher creates a dispatcher stamping envelopes with origin
func NewDispatcher(store cache.Store, broadcaster realtime.Broadcaster, origin string, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{store: store, broadcaster: broadcaster, origin: origin, metrics: m}
}

// Origin returns the instance id stamped on published envelopes
func (d *Dispatcher) Origin() string {
	return d.origin
}

// Broadcaster exposes the local broadcaster for frames that have no channel event
func (d *Dispatcher) Broadcaster() realtime.Broadcaster {
	return d.broadcaster
}

// Dispatch broadcasts and publishes one channel event
func (d *Dispatcher) Dispatch(ctx context.Context, t events.Type, eventID uuid.UUID, payload interface{}) {
	env, err := events.New(t, eventID, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(t)).Str("event_id", eventID.String()).Msg("Failed to build channel event")
		return
	}
	env.Origin = d.origin

	if err := realtime.Fanout(d.broadcaster, env); err != nil {
		log.Warn().Err(err).Str("type", string(t)).Msg("Failed to broadcast channel event")
	}

	err = d.store.Publish(ctx, env.Channel(), env)
	d.metrics.RecordPublish(string(t), err)
	if err != nil {
		log.Warn().Err(err).
			Str("type", string(t)).
			Str("channel", env.Channel()).
			Msg("Failed to publish channel event")
	}
}

// invalidate drops cache keys, logging failures
func invalidate(ctx context.Context, store cache.Store, keys ...string) {
	if err := store.Delete(ctx, keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate cache")
	}
}

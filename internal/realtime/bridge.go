package realtime

import (
	"context"

	"example.com/connectsphere/internal/cache"
	"example.com/connectsphere/internal/events"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Bridge mirrors channel events published by other processes onto local
// sockets. Events carrying this process's origin were already broadcast
// directly by the action that produced them and are skipped.
type Bridge struct {
	store       cache.Store
	broadcaster Broadcaster
	origin      string
}

// NewBridge creates a bridge for the given process origin
func NewBridge(store cache.Store, broadcaster Broadcaster, origin string) *Bridge {
	return &Bridge{store: store, broadcaster: broadcaster, origin: origin}
}

// Run subscribes to every event category and blocks until ctx is done
func (b *Bridge) Run(ctx context.Context) error {
	subs := make([]cache.Subscription, 0, len(events.Categories))
	defer func() {
		for _, s := range subs {
			_ = s.Close()
		}
	}()

	for _, c := range events.Categories {
		sub, err := b.store.Subscribe(ctx, events.Pattern(c), b.Handle)
		if err != nil {
			return errors.Wrap(err, "realtime bridge subscribe failed")
		}
		subs = append(subs, sub)
	}

	log.Info().Str("origin", b.origin).Msg("Realtime bridge started")
	<-ctx.Done()
	log.Info().Msg("Realtime bridge stopped")
	return nil
}

// Handle mirrors one channel message
func (b *Bridge) Handle(ctx context.Context, channel string, payload []byte) {
	env, err := events.Parse(payload)
	if err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Ignoring malformed channel event")
		return
	}
	if env.Origin == b.origin {
		return
	}
	if err := Fanout(b.broadcaster, env); err != nil {
		log.Warn().Err(err).Str("channel", channel).Str("type", string(env.Type)).Msg("Failed to mirror channel event")
	}
}

package cache

import (
	"context"
	"encoding/json"
	"time"

	"example.com/connectsphere/config"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	// ErrCacheMiss is returned by Get when the key does not exist or has expired
	ErrCacheMiss = errors.New("key not found in cache")
	// ErrUndecodable is returned by Get when a stored value is not JSON and the
	// destination is not a *string
	ErrUndecodable = errors.New("cached value is not valid JSON")
)

// MessageHandler receives a published payload. channel has the key prefix removed.
type MessageHandler func(ctx context.Context, channel string, payload []byte)

// Subscription is an active pattern subscription
type Subscription interface {
	Close() error
}

// Store is a key/value cache with TTLs plus glob-pattern publish/subscribe.
// Keys and channels are namespaced by a prefix the caller never sees.
type Store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel string, payload interface{}) error
	Subscribe(ctx context.Context, pattern string, handler MessageHandler) (Subscription, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewStore returns a Redis-backed store, or an in-process store when Redis is disabled
func NewStore(cfg config.RedisConfig) (Store, error) {
	if !cfg.Enabled {
		log.Warn().Msg("Redis disabled, using in-process store; fan-out will not cross processes")
		return NewLocalStore(cfg.Prefix), nil
	}
	return NewRedisStore(cfg)
}

// encode stores strings and byte slices raw and everything else as JSON
func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal value for caching")
	}
	return data, nil
}

// decode parses JSON into dest, falling back to the raw text for *string destinations
func decode(data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		if s, ok := dest.(*string); ok {
			*s = string(data)
			return nil
		}
		return errors.Wrap(ErrUndecodable, err.Error())
	}
	return nil
}

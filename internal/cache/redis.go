package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"example.com/connectsphere/config"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RedisStore implements Store on Redis
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return NewRedisStoreFromClient(client, cfg.Prefix), nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Set stores a value with an optional expiration (0 keeps it forever)
func (s *RedisStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}
	return nil
}

// Get retrieves a value into dest
func (s *RedisStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}
	return decode(data, dest)
}

// Delete removes keys
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = s.prefix + k
	}
	if err := s.client.Del(ctx, prefixed...).Err(); err != nil {
		return errors.Wrap(err, "failed to delete keys from Redis")
	}
	return nil
}

// Publish sends payload to every subscriber whose pattern matches channel
func (s *RedisStore) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, s.prefix+channel, data).Err(); err != nil {
		return errors.Wrapf(err, "failed to publish to %s", channel)
	}
	return nil
}

// Subscribe starts a pattern subscription on its own connection. Messages are
// delivered to handler sequentially until the subscription or ctx is closed.
func (s *RedisStore) Subscribe(ctx context.Context, pattern string, handler MessageHandler) (Subscription, error) {
	pubsub := s.client.PSubscribe(ctx, s.prefix+pattern)

	// Wait for the subscription confirmation so no publish is missed after return
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, errors.Wrapf(err, "failed to subscribe to %s", pattern)
	}

	sub := &redisSubscription{pubsub: pubsub}
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				channel := strings.TrimPrefix(msg.Channel, s.prefix)
				handler(ctx, channel, []byte(msg.Payload))
			}
		}
	}()

	log.Debug().Str("pattern", pattern).Msg("Subscribed to Redis pattern")
	return sub, nil
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisSubscription struct {
	pubsub *redis.PubSub
	once   sync.Once
}

func (r *redisSubscription) Close() error {
	var err error
	r.once.Do(func() {
		err = r.pubsub.Close()
	})
	return err
}

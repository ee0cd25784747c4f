package cache

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const localSubscriberBuffer = 256

type localEntry struct {
	data      []byte
	expiresAt time.Time
}

type localMessage struct {
	channel string
	payload []byte
}

type localSubscriber struct {
	pattern string
	ch      chan localMessage
	stopCh  chan struct{}
	once    sync.Once
	store   *LocalStore
}

// LocalStore implements Store in process memory. Patterns follow path.Match,
// which agrees with Redis globs for colon-separated channel names.
type LocalStore struct {
	prefix      string
	mu          sync.RWMutex
	entries     map[string]localEntry
	subscribers map[*localSubscriber]bool
	now         func() time.Time
}

// NewLocalStore creates an empty in-process store
func NewLocalStore(prefix string) *LocalStore {
	return &LocalStore{
		prefix:      prefix,
		entries:     make(map[string]localEntry),
		subscribers: make(map[*localSubscriber]bool),
		now:         time.Now,
	}
}

// Set stores a value with an optional expiration (0 keeps it forever)
func (s *LocalStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	entry := localEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	s.entries[s.prefix+key] = entry
	s.mu.Unlock()
	return nil
}

// Get retrieves a value into dest
func (s *LocalStore) Get(ctx context.Context, key string, dest interface{}) error {
	s.mu.RLock()
	entry, ok := s.entries[s.prefix+key]
	s.mu.RUnlock()

	if !ok {
		return ErrCacheMiss
	}
	if now := s.now(); entry.expired(now) {
		s.mu.Lock()
		// A Set may have replaced the entry since the read lock was released
		if current, ok := s.entries[s.prefix+key]; ok && current.expired(now) {
			delete(s.entries, s.prefix+key)
		}
		s.mu.Unlock()
		return ErrCacheMiss
	}
	return decode(entry.data, dest)
}

func (e localEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Delete removes keys
func (s *LocalStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.entries, s.prefix+k)
	}
	return nil
}

// Publish delivers payload to every matching subscriber without blocking.
// A subscriber whose buffer is full misses the message.
func (s *LocalStore) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := encode(payload)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for sub := range s.subscribers {
		if ok, _ := path.Match(sub.pattern, channel); !ok {
			continue
		}
		select {
		case sub.ch <- localMessage{channel: channel, payload: data}:
		default:
			log.Warn().Str("channel", channel).Str("pattern", sub.pattern).Msg("Subscriber buffer full, dropping message")
		}
	}
	return nil
}

// Subscribe registers handler for channels matching pattern
func (s *LocalStore) Subscribe(ctx context.Context, pattern string, handler MessageHandler) (Subscription, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}

	sub := &localSubscriber{
		pattern: pattern,
		ch:      make(chan localMessage, localSubscriberBuffer),
		stopCh:  make(chan struct{}),
		store:   s,
	}

	s.mu.Lock()
	s.subscribers[sub] = true
	s.mu.Unlock()

	go func() {
		for {
			select {
			case msg := <-sub.ch:
				handler(ctx, msg.channel, msg.payload)
			case <-ctx.Done():
				_ = sub.Close()
				return
			case <-sub.stopCh:
				return
			}
		}
	}()

	return sub, nil
}

// Ping always succeeds
func (s *LocalStore) Ping(ctx context.Context) error {
	return nil
}

// Close drops every subscription and entry
func (s *LocalStore) Close() error {
	s.mu.Lock()
	subs := make([]*localSubscriber, 0, len(s.subscribers))
	for sub := range s.subscribers {
		subs = append(subs, sub)
	}
	s.entries = make(map[string]localEntry)
	s.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	return nil
}

func (l *localSubscriber) Close() error {
	l.once.Do(func() {
		l.store.mu.Lock()
		delete(l.store.subscribers, l)
		l.store.mu.Unlock()
		close(l.stopCh)
	})
	return nil
}

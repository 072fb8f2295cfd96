// Package session is an in-memory observable key-value store. Every write is
// fanned out to the subscribers whose predicate accepts the key.
package session

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/IsraelGboluwaga/phosphora/internal/bible"
	"github.com/IsraelGboluwaga/phosphora/internal/logger"
)

// Key prefixes of the session layout.
const (
	VersePrefix   = "verse:"
	ChapterPrefix = "chapter:"
	DisplayPrefix = "currentVerse:"
)

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 64

// VerseKey is the key under which cached verse content is mirrored.
func VerseKey(k bible.Key) string {
	return VersePrefix + string(k)
}

// ChapterKey is the key under which a cached chapter is mirrored.
func ChapterKey(book string, chapter int) string {
	return fmt.Sprintf("%s%s:%d", ChapterPrefix, book, chapter)
}

// DisplayKey is the key holding a tab's display state snapshot.
func DisplayKey(tabID int) string {
	return DisplayPrefix + strconv.Itoa(tabID)
}

// HasPrefix returns a predicate matching keys that start with prefix.
func HasPrefix(prefix string) func(string) bool {
	return func(key string) bool { return strings.HasPrefix(key, prefix) }
}

// Exactly returns a predicate matching a single key.
func Exactly(key string) func(string) bool {
	return func(k string) bool { return k == key }
}

// Change is one write observed by a subscriber.
type Change struct {
	Key     string
	Value   any
	Deleted bool
}

// Subscription receives changes for the keys its predicate accepts.
type Subscription struct {
	ID      string
	C       <-chan Change
	ch      chan Change
	accept  func(string) bool
	store   *Store
	closing sync.Once
}

// Close detaches the subscription and closes its channel.
func (s *Subscription) Close() {
	s.store.Unsubscribe(s.ID)
}

// Store is an in-memory key-value store that publishes every change to the
// subscribers whose predicate matches the key.
type Store struct {
	mu     sync.RWMutex
	values map[string]any
	subs   map[string]*Subscription
	buffer int
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithBuffer sets the channel capacity of new subscriptions.
func WithBuffer(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.buffer = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		values: make(map[string]any),
		subs:   make(map[string]*Subscription),
		buffer: DefaultBuffer,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logger.OrDiscard(s.logger)
	return s
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores value under key and notifies matching subscribers.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.publish(Change{Key: key, Value: value})
}

// Delete removes key. Subscribers are only notified when the key existed.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.publish(Change{Key: key, Deleted: true})
}

// Keys returns the stored keys accepted by match, sorted. A nil match returns all keys.
func (s *Store) Keys(match func(string) bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		if match == nil || match(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Subscribe registers a subscriber for the keys accepted by predicate.
// A nil predicate accepts every key. Changes that do not fit in a full buffer
// are dropped for that subscriber; Get still returns the latest value.
func (s *Store) Subscribe(predicate func(key string) bool) *Subscription {
	if predicate == nil {
		predicate = func(string) bool { return true }
	}
	ch := make(chan Change, s.buffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		C:      ch,
		ch:     ch,
		accept: predicate,
		store:  s,
	}

	s.mu.Lock()
	s.subs[sub.ID] = sub
	s.mu.Unlock()

	s.logger.Debug("session subscriber added", slog.String("subscription_id", sub.ID))
	return sub
}

// Unsubscribe removes a subscription by id and closes its channel.
func (s *Store) Unsubscribe(id string) {
	s.mu.Lock()
	sub, ok := s.subs[id]
	delete(s.subs, id)
	s.mu.Unlock()

	if ok {
		sub.closing.Do(func() { close(sub.ch) })
	}
}

// Close removes every subscription.
func (s *Store) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.closing.Do(func() { close(sub.ch) })
	}
}

// publish must be called with s.mu held.
func (s *Store) publish(c Change) {
	for _, sub := range s.subs {
		if !sub.accept(c.Key) {
			continue
		}
		// Non-blocking send (drop if subscriber is slow).
		select {
		case sub.ch <- c:
		default:
			s.logger.Warn("dropped session change for slow subscriber",
				slog.String("subscription_id", sub.ID),
				slog.String("key", c.Key))
		}
	}
}

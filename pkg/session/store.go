// Package session holds the process-local conversation state. Sessions are
// created lazily, guarded by a per-entry mutex, and evicted least-recently
// used once the store exceeds its capacity.
package session

import (
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
)

// DefaultCapacity bounds the store when the configured value is unusable.
const DefaultCapacity = 1024

type entry struct {
	mu   sync.Mutex
	sess *Session
}

// Store maps session ids to Sessions with LRU eviction. Concurrent requests
// for the same id are serialized on the entry mutex; requests for different
// ids run in parallel. External I/O must happen outside With.
type Store struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *entry]
	logger *slog.Logger
}

// NewStore creates a store bounded to capacity sessions.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	logger := slog.Default().With("component", "session")
	cache, _ := lru.NewWithEvict(capacity, func(id string, _ *entry) {
		logger.Debug("session evicted", "session_id", id)
	})
	return &Store{cache: cache, logger: logger}
}

// NewID generates a fresh opaque session id.
func NewID() string {
	return uuid.New().String()
}

// With runs fn with exclusive access to the session, creating it if absent.
// fn must not perform external I/O; fetch what you need, release, do the I/O,
// then call With again to write results back.
func (s *Store) With(id string, fn func(sess *Session)) {
	e := s.acquire(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.sess)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Contains reports whether the id is live without refreshing its recency.
func (s *Store) Contains(id string) bool {
	return s.cache.Contains(id)
}

func (s *Store) acquire(id string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.cache.Get(id); ok {
		return e
	}
	now := time.Now()
	e := &entry{sess: &Session{ID: id, CreatedAt: now, UpdatedAt: now}}
	s.cache.Add(id, e)
	s.logger.Debug("session created", "session_id", id)
	return e
}

package session

import (
	"context"
	"log/slog"
	"time"

	"InterviewBot/internal/cache"
)

// Durable persists session records across restarts.
// Get returns (nil, nil) for an unknown id so callers can tell a miss from a failure.
type Durable interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Update(ctx context.Context, id string, p Patch) error
	Close() error
}

// Store is the single logical view over the in-process cache and the durable record.
// The durable record is the source of truth and the cache is a derived view
// refreshed from it on every miss.
type Store struct {
	cache   *cache.LRU[string, *Session]
	durable Durable
	logger  *slog.Logger

	// OnDurableFailure is called when a write-through update reached the cache
	// but not the durable store.
	OnDurableFailure func(id string, err error)
}

// NewStore creates a Store with a cache of the given capacity and ttl
func NewStore(durable Durable, capacity int, ttl time.Duration, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		cache:   cache.New[string, *Session](capacity, ttl),
		durable: durable,
		logger:  logger,
	}
}

// Create writes the session to the durable store, then to the cache.
// A durable failure leaves no cache entry behind.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	if err := s.durable.Create(ctx, sess); err != nil {
		return &StoreError{SessionID: sess.ID, Op: "create", Err: err}
	}
	s.cache.Add(sess.ID, sess.Clone())
	return nil
}

// Get returns a private copy of the session, or (nil, nil) when it is unknown to both layers
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	if sess, ok := s.cache.Get(id); ok {
		return sess.Clone(), nil
	}

	sess, err := s.durable.Get(ctx, id)
	if err != nil {
		return nil, &StoreError{SessionID: id, Op: "get", Err: err}
	}
	if sess == nil {
		return nil, nil
	}

	s.logger.Debug("hydrated session from durable store", "session_id", id)
	s.cache.Add(id, sess.Clone())
	return sess, nil
}

// Update applies p to the cached entry and then to the durable record.
// The cache write is never rolled back. A durable failure is only returned
// when the cache did not hold the session, since then nothing recorded the change.
func (s *Store) Update(ctx context.Context, id string, p Patch) error {
	if p.Empty() {
		return nil
	}

	cached := s.cache.Update(id, func(cur *Session) *Session {
		next := cur.Clone()
		p.Apply(next)
		return next
	})

	if err := s.durable.Update(ctx, id, p); err != nil {
		if !cached {
			return &StoreError{SessionID: id, Op: "update", Err: err}
		}
		s.logger.Warn("durable write-through failed, keeping cached state",
			"session_id", id, "error", err)
		if s.OnDurableFailure != nil {
			s.OnDurableFailure(id, err)
		}
	}
	return nil
}

// Cached returns the number of sessions resident in the cache
func (s *Store) Cached() int {
	return s.cache.Len()
}

// Purge drops expired cache entries
func (s *Store) Purge() int {
	return s.cache.PurgeExpired()
}

// Close closes the durable store
func (s *Store) Close() error {
	return s.durable.Close()
}

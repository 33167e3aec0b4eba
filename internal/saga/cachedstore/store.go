// Package cachedstore puts a read-through cache in front of a saga.Store.
//
// Blobs and header sets are cached under separate keys. Each correlation id
// also has a generation counter in the cache. Writes go straight to the
// wrapped store and invalidate every id they touched twice: once before the
// transaction commits, where a cache failure rolls the write back, and once
// after. Invalidation bumps the generation and deletes the cached entries.
//
// A fill only lands if the generation is unchanged since the reader missed,
// so a read that raced a commit never caches the pre-commit state. Absent
// sagas are never cached, so a Find after Complete always reaches the store.
package cachedstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/sagastore/internal/pkg/cache"
	"github.com/jcmexdev/sagastore/internal/saga"
)

// DefaultTTL bounds the life of cached entries and generation counters.
const DefaultTTL = 5 * time.Minute

type Store struct {
	next      saga.Store
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

var _ saga.Store = (*Store)(nil)

// New wraps next. namespace separates stores sharing one cache, typically
// the blob table name. A zero ttl means DefaultTTL; a nil logger means
// slog.Default().
func New(next saga.Store, c cache.Cache, namespace string, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{next: next, cache: c, namespace: namespace, ttl: ttl, logger: logger}
}

func (s *Store) blobKey(id uuid.UUID) string {
	return s.cache.GenerateKey(s.namespace, "blob", id.String())
}

func (s *Store) headersKey(id uuid.UUID) string {
	return s.cache.GenerateKey(s.namespace, "headers", id.String())
}

func (s *Store) genKey(id uuid.UUID) string {
	return s.cache.GenerateKey(s.namespace, "gen", id.String())
}

// lookup returns the cached value for key. On a miss it also returns the
// generation of id to guard the fill with; fillable is false when the
// generation could not be read.
func (s *Store) lookup(ctx context.Context, id uuid.UUID, key string) (value string, hit bool, gen string, fillable bool) {
	value, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "saga cache read failed", "key", key, "error", err)
	} else if hit {
		return value, true, "", false
	}

	gen, err = s.currentGen(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "saga cache read failed", "key", s.genKey(id), "error", err)
		return "", false, "", false
	}
	return "", false, gen, true
}

func (s *Store) fill(ctx context.Context, id uuid.UUID, gen, key, value string) {
	ok, err := s.cache.SetIfUnchanged(ctx, s.genKey(id), gen, key, value, s.ttl)
	if err != nil {
		s.logger.WarnContext(ctx, "saga cache fill failed", "key", key, "error", err)
		return
	}
	if !ok {
		s.logger.DebugContext(ctx, "saga cache fill skipped, saga written meanwhile", "key", key)
	}
}

// LoadBlob serves from the cache and falls back to the wrapped store.
// Cache failures degrade to a store read.
func (s *Store) LoadBlob(ctx context.Context, correlationID uuid.UUID) (string, bool, error) {
	key := s.blobKey(correlationID)
	cached, hit, gen, fillable := s.lookup(ctx, correlationID, key)
	if hit {
		return cached, true, nil
	}

	blob, found, err := s.next.LoadBlob(ctx, correlationID)
	if err != nil || !found {
		return blob, found, err
	}
	if fillable {
		s.fill(ctx, correlationID, gen, key, blob)
	}
	return blob, true, nil
}

// LoadHeaders serves from the cache and falls back to the wrapped store.
func (s *Store) LoadHeaders(ctx context.Context, correlationID uuid.UUID) (map[string]string, error) {
	key := s.headersKey(correlationID)
	raw, hit, gen, fillable := s.lookup(ctx, correlationID, key)
	if hit {
		if headers, err := decodeHeaders(raw); err == nil {
			return headers, nil
		}
		s.logger.WarnContext(ctx, "saga cache entry corrupt", "key", key)
		if g, err := s.currentGen(ctx, correlationID); err == nil {
			gen, fillable = g, true
		}
	}

	headers, err := s.next.LoadHeaders(ctx, correlationID)
	if err != nil {
		return nil, err
	}
	if !fillable {
		return headers, nil
	}
	if raw, err := encodeHeaders(headers); err == nil {
		s.fill(ctx, correlationID, gen, key, raw)
	}
	return headers, nil
}

func (s *Store) currentGen(ctx context.Context, id uuid.UUID) (string, error) {
	gen, _, err := s.cache.Get(ctx, s.genKey(id))
	return gen, err
}

// InTx runs fn on the wrapped store. Touched ids are invalidated before the
// commit, failing the transaction if the cache cannot be reached, and again
// after it.
func (s *Store) InTx(ctx context.Context, fn func(tx saga.Tx) error) error {
	touched := make(map[uuid.UUID]struct{})
	err := s.next.InTx(ctx, func(tx saga.Tx) error {
		if err := fn(&trackingTx{next: tx, touched: touched}); err != nil {
			return err
		}
		return s.invalidate(ctx, touched)
	})
	if err != nil {
		return err
	}

	if err := s.invalidate(ctx, touched); err != nil {
		s.logger.ErrorContext(ctx, "saga cache eviction after commit failed",
			"ids", len(touched), "ttl", s.ttl, "error", err)
	}
	return nil
}

// invalidate bumps the generation of every id, then deletes its entries.
// The order matters: a fill racing the delete is rejected by the new
// generation.
func (s *Store) invalidate(ctx context.Context, touched map[uuid.UUID]struct{}) error {
	if len(touched) == 0 {
		return nil
	}
	keys := make([]string, 0, 2*len(touched))
	for id := range touched {
		if _, err := s.cache.Incr(ctx, s.genKey(id), s.ttl); err != nil {
			return fmt.Errorf("cachedstore: invalidate %s: %w", id, err)
		}
		keys = append(keys, s.blobKey(id), s.headersKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("cachedstore: evict: %w", err)
	}
	return nil
}

type trackingTx struct {
	next    saga.Tx
	touched map[uuid.UUID]struct{}
}

func (t *trackingTx) UpsertBlob(ctx context.Context, id uuid.UUID, blob string) error {
	t.touched[id] = struct{}{}
	return t.next.UpsertBlob(ctx, id, blob)
}

func (t *trackingTx) UpsertHeader(ctx context.Context, id uuid.UUID, key, value string) error {
	t.touched[id] = struct{}{}
	return t.next.UpsertHeader(ctx, id, key, value)
}

func (t *trackingTx) DeleteBlob(ctx context.Context, id uuid.UUID) error {
	t.touched[id] = struct{}{}
	return t.next.DeleteBlob(ctx, id)
}

func (t *trackingTx) DeleteHeaders(ctx context.Context, id uuid.UUID) error {
	t.touched[id] = struct{}{}
	return t.next.DeleteHeaders(ctx, id)
}

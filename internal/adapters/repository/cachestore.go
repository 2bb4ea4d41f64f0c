package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/podium/internal/domain/distribution"
	"github.com/okian/podium/pkg/metrics"
	"github.com/patrickmn/go-cache"
)

// CacheStore keeps built distributions in memory with a TTL, optionally in
// front of a slower backend. Cached values are cloned on the way in and out,
// so callers may mutate what they get back.
type CacheStore struct {
	cache *cache.Cache
	next  DistributionStore
	ttl   time.Duration

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewCacheStore constructs a cache store. The metrics goroutine stops when ctx
// is done or Close is called.
func NewCacheStore(ctx context.Context, opts ...Option) *CacheStore {
	s := &CacheStore{
		ttl:                   time.Hour,
		metricsUpdateInterval: 5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	expiry, cleanup := s.ttl, s.ttl
	if s.ttl <= 0 {
		expiry, cleanup = cache.NoExpiration, 0
	}
	s.cache = cache.New(expiry, cleanup)

	s.startMetricsUpdater(ctx)
	return s
}

// Save caches m, then writes it through to the backend. A failed write-through
// is returned but the cached copy stays.
func (s *CacheStore) Save(ctx context.Context, key Key, m distribution.Multiplicities) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.cache.Set(key.String(), m.Clone(), cache.DefaultExpiration)
	if s.next != nil {
		if err := s.next.Save(ctx, key, m); err != nil {
			metrics.RecordError("repository", "save")
			return err
		}
	}
	return nil
}

// Load serves from memory, falling through to the backend on a miss.
func (s *CacheStore) Load(ctx context.Context, key Key) (distribution.Multiplicities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if v, ok := s.cache.Get(key.String()); ok {
		metrics.RecordCacheHit()
		return v.(distribution.Multiplicities).Clone(), nil
	}
	metrics.RecordCacheMiss()

	if s.next == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	m, err := s.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key.String(), m.Clone(), cache.DefaultExpiration)
	return m, nil
}

// Len returns the number of cached distributions, expired ones included until
// the janitor runs.
func (s *CacheStore) Len() int { return s.cache.ItemCount() }

// Flush drops every cached distribution. The backend is untouched.
func (s *CacheStore) Flush() { s.cache.Flush() }

// Close stops the metrics goroutine.
func (s *CacheStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *CacheStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateCacheItems(s.cache.ItemCount())
			}
		}
	}()
}

package coastline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/coastflow/coastflow/internal/logutil"
)

var errInvalidTier = errors.New("unknown resolution tier")

// Store owns the per-tier polygon cache. Loads are memoized: the first
// successful load of a tier is kept for the lifetime of the Store, and
// concurrent calls for the same tier share a single in-flight request.
// Failures are returned as *LoadError and are not cached, so a later call
// may retry.
type Store struct {
	fetcher Fetcher
	cache   *DB // optional on-disk session cache
	log     *slog.Logger

	mu       sync.Mutex
	sets     map[Tier]*PolygonSet
	inflight map[Tier]*loadCall
}

type loadCall struct {
	done chan struct{}
	set  *PolygonSet
	err  error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithCacheDB persists fetched tiers to an on-disk database so later
// sessions can load them without a network fetch.
func WithCacheDB(db *DB) StoreOption {
	return func(s *Store) { s.cache = db }
}

// WithLogger sets the store's logger. The default discards everything.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates a store that loads tier data through fetcher.
func NewStore(fetcher Fetcher, opts ...StoreOption) *Store {
	s := &Store{
		fetcher:  fetcher,
		log:      logutil.Nop(),
		sets:     make(map[Tier]*PolygonSet),
		inflight: make(map[Tier]*loadCall),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the polygon set for tier, fetching it on first use.
// Concurrent callers for the same tier share one fetch. On failure the
// returned error is a *LoadError; the caller keeps whatever tier it was
// using before.
func (s *Store) Load(ctx context.Context, tier Tier) (*PolygonSet, error) {
	if !tier.Valid() {
		return nil, &LoadError{Tier: tier, Err: errInvalidTier}
	}

	s.mu.Lock()
	if set, ok := s.sets[tier]; ok {
		s.mu.Unlock()
		return set, nil
	}
	if call, ok := s.inflight[tier]; ok {
		s.mu.Unlock()
		select {
		case <-call.done:
			return call.set, call.err
		case <-ctx.Done():
			return nil, &LoadError{Tier: tier, Err: ctx.Err()}
		}
	}
	call := &loadCall{done: make(chan struct{})}
	s.inflight[tier] = call
	s.mu.Unlock()

	set, err := s.load(ctx, tier)

	s.mu.Lock()
	delete(s.inflight, tier)
	if err == nil {
		s.sets[tier] = set
	}
	s.mu.Unlock()

	call.set, call.err = set, err
	close(call.done)
	return set, err
}

func (s *Store) load(ctx context.Context, tier Tier) (*PolygonSet, error) {
	if s.cache != nil {
		set, err := s.cache.LoadTier(tier)
		if err != nil {
			s.log.Warn("coastline cache read failed", "tier", tier.String(), "error", err)
		} else if set != nil {
			s.log.Debug("coastline tier loaded from cache",
				"tier", tier.String(), "polygons", len(set.Polygons))
			return set, nil
		}
	}

	data, err := s.fetcher.Fetch(ctx, tier)
	if err != nil {
		return nil, &LoadError{Tier: tier, Err: err}
	}
	set, err := ParseGeoJSON(data, tier)
	if err != nil {
		return nil, &LoadError{Tier: tier, Err: err}
	}
	s.log.Info("coastline tier loaded",
		"tier", tier.String(), "polygons", len(set.Polygons))

	if s.cache != nil {
		if err := s.cache.StoreTier(set); err != nil {
			s.log.Warn("coastline cache write failed", "tier", tier.String(), "error", err)
		}
	}
	return set, nil
}

// Loaded returns the cached polygon set for tier without fetching.
func (s *Store) Loaded(tier Tier) (*PolygonSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[tier]
	return set, ok
}

// IsReady reports whether at least one tier's data is available.
func (s *Store) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets) > 0
}

// Best returns the finest currently loaded polygon set, or nil when
// nothing has loaded yet.
func (s *Store) Best() *PolygonSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(Tiers) - 1; i >= 0; i-- {
		if set, ok := s.sets[Tiers[i]]; ok {
			return set
		}
	}
	return nil
}

// PointInLand performs exact polygon containment against the best
// currently loaded tier. It is the authoritative ocean test, as opposed
// to the grid's approximate per-cell ocean mask. Returns false when no
// tier has loaded.
func (s *Store) PointInLand(lat, lng float64) bool {
	set := s.Best()
	if set == nil {
		return false
	}
	return set.Contains(lat, lng)
}

package sync

import (
	"context"
	"log/slog"
	"strconv"
	gosync "sync"
	"time"

	"golang.org/x/sync/singleflight"

	"civicledger/internal/complaint/metrics"
	dErrors "civicledger/pkg/domain-errors"
	"civicledger/pkg/platform/circuit"
)

const (
	DefaultCacheTTL    = 15 * time.Second
	defaultSyncTimeout = 30 * time.Second
)

// Service serves snapshots from cache, collapses concurrent syncs of the
// same window, and falls back to the last good snapshot when the registry
// cannot be read.
type Service struct {
	sync    *Synchronizer
	cache   Cache
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	ttl     time.Duration
	timeout time.Duration

	group    singleflight.Group
	mu       gosync.RWMutex
	lastGood map[int]goodSnapshot
}

// goodSnapshot remembers which cache generation a snapshot was read under so
// a slow sync from before an invalidation cannot replace a newer one.
type goodSnapshot struct {
	snap *Snapshot
	gen  uint64
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSyncTimeout bounds a single shared sync, which runs detached from any
// one caller's cancellation.
func WithSyncTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(synchronizer *Synchronizer, opts ...Option) *Service {
	s := &Service{
		sync:     synchronizer,
		cache:    NewMemoryCache(),
		breaker:  circuit.New("registry-source"),
		logger:   slog.New(slog.DiscardHandler),
		ttl:      DefaultCacheTTL,
		timeout:  defaultSyncTimeout,
		lastGood: make(map[int]goodSnapshot),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the newest window, preferring a fresh cache entry.
func (s *Service) Snapshot(ctx context.Context, window int) (*Snapshot, error) {
	if window <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "window size must be positive")
	}
	window = s.sync.ClampWindow(window)

	cached, ok, err := s.cache.Get(ctx, window)
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot cache read failed", "window", window, "error", err)
	}
	if ok {
		cached.Source = SourceCache
		cached.Degraded = s.breaker.IsOpen()
		s.metrics.IncrementSnapshotServed(SourceCache)
		return cached, nil
	}
	return s.load(ctx, window)
}

// Refresh drops cached snapshots and syncs window from the registry.
func (s *Service) Refresh(ctx context.Context, window int) (*Snapshot, error) {
	if window <= 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "window size must be positive")
	}
	if err := s.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "snapshot invalidation failed", "error", err)
	}
	return s.load(ctx, s.sync.ClampWindow(window))
}

// Invalidate is called after registry writes so the next read re-syncs.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

// load joins or starts the sync for window in the current cache generation.
// Callers arriving after an Invalidate never share a flight that started
// before it.
func (s *Service) load(ctx context.Context, window int) (*Snapshot, error) {
	gen, err := s.cache.Generation(ctx)
	cacheable := err == nil
	if err != nil {
		s.logger.WarnContext(ctx, "snapshot generation read failed", "window", window, "error", err)
	}
	key := strconv.Itoa(window) + "@" + strconv.FormatUint(gen, 10)
	if !cacheable {
		key += "!"
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		syncCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return s.syncWindow(syncCtx, window, gen, cacheable)
	})
	if err != nil {
		return nil, err
	}
	snap := v.(*Snapshot).clone()
	s.metrics.IncrementSnapshotServed(snap.Source)
	return snap, nil
}

func (s *Service) syncWindow(ctx context.Context, window int, gen uint64, cacheable bool) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.sync.Sync(ctx, window)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeSourceUnavailable) {
			return nil, err
		}
		_, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "registry source circuit opened", "breaker", s.breaker.Name())
		}
		s.metrics.SetBreakerOpen(s.breaker.IsOpen())

		s.mu.RLock()
		last := s.lastGood[window].snap
		s.mu.RUnlock()
		if last == nil {
			s.metrics.ObserveSync("unavailable", 0, time.Since(start))
			return nil, err
		}
		s.logger.WarnContext(ctx, "serving last good snapshot", "window", window, "synced_at", last.SyncedAt, "error", err)
		s.metrics.ObserveSync("stale", 0, time.Since(start))
		stale := last.clone()
		stale.Source = SourceStale
		stale.Stale = true
		stale.Degraded = s.breaker.IsOpen()
		return stale, nil
	}

	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "registry source circuit closed", "breaker", s.breaker.Name())
	}
	s.metrics.SetBreakerOpen(!usePrimary)

	outcome := "complete"
	if len(snap.FailedIDs) > 0 {
		outcome = "partial"
	}
	s.metrics.ObserveSync(outcome, len(snap.FailedIDs), time.Since(start))

	s.mu.Lock()
	if prev, ok := s.lastGood[window]; !ok || gen >= prev.gen {
		s.lastGood[window] = goodSnapshot{snap: snap.clone(), gen: gen}
	}
	s.mu.Unlock()
	if cacheable {
		if err := s.cache.Set(ctx, window, gen, snap, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed", "window", window, "error", err)
		}
	}

	snap.Source = SourceRegistry
	snap.Degraded = !usePrimary
	return snap, nil
}

// Run refreshes window every interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration, window int) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx, window); err != nil {
				s.logger.WarnContext(ctx, "background refresh failed", "window", window, "error", err)
			}
		}
	}
}

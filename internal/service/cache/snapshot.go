package cache

import (
	"context"
	"sync"
	"time"

	"StockWatch/internal/domain/models"
	drepo "StockWatch/internal/domain/repository"
	kv "StockWatch/pkg/cache"
	applogger "StockWatch/pkg/logger"
)

const mirrorKey = "snapshot:current"

// SnapshotCache holds the single current snapshot behind a pointer swap.
// It starts empty and becomes populated on the first commit; after that it
// always serves some snapshot, however old. TTL expiry marks data stale
// for health reporting but never evicts.
type SnapshotCache struct {
	mu        sync.RWMutex
	current   *models.Snapshot
	ttl       time.Duration
	metrics   drepo.Metrics
	mirror    kv.Service
	mirrorTTL time.Duration
	logger    *applogger.Logger
}

// SnapshotOption configures SnapshotCache.
type SnapshotOption func(*SnapshotCache)

// WithMirror persists committed snapshots to a shared cache so a restart
// can serve data before its first refresh completes.
func WithMirror(store kv.Service, ttl time.Duration) SnapshotOption {
	return func(c *SnapshotCache) {
		c.mirror = store
		c.mirrorTTL = ttl
	}
}

// WithMetrics keeps the snapshot age gauge updated on commit and through
// ReportAge.
func WithMetrics(m drepo.Metrics) SnapshotOption {
	return func(c *SnapshotCache) { c.metrics = m }
}

// NewSnapshot creates an empty snapshot cache.
func NewSnapshot(ttl time.Duration, logger *applogger.Logger, opts ...SnapshotOption) *SnapshotCache {
	c := &SnapshotCache{ttl: ttl, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WarmStart tries to load the last mirrored snapshot. Only pre-populates
// when the mirror copy is younger than the TTL; an old copy is worse than
// an honest "still loading".
func (c *SnapshotCache) WarmStart(ctx context.Context) bool {
	if c.mirror == nil {
		return false
	}
	var snap models.Snapshot
	if err := c.mirror.Get(ctx, mirrorKey, &snap); err != nil {
		return false
	}
	if snap.RefreshedAt.IsZero() || time.Since(snap.RefreshedAt) > c.ttl {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return false
	}
	c.current = &snap
	c.logger.Info("warm start from mirrored snapshot",
		applogger.Int("quotes", len(snap.Quotes)),
		applogger.Duration("age", time.Since(snap.RefreshedAt)))
	return true
}

// Commit installs a newer snapshot. A snapshot not strictly newer than the
// current one is dropped, so a straggling slow cycle can never overwrite
// fresher data.
func (c *SnapshotCache) Commit(ctx context.Context, snap *models.Snapshot) bool {
	if snap == nil || snap.RefreshedAt.IsZero() {
		return false
	}

	c.mu.Lock()
	if c.current != nil && !snap.RefreshedAt.After(c.current.RefreshedAt) {
		c.mu.Unlock()
		c.logger.Warn("dropping out-of-order snapshot commit",
			applogger.Any("refreshed_at", snap.RefreshedAt))
		return false
	}
	c.current = snap
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordSnapshotAge(time.Since(snap.RefreshedAt).Seconds())
	}
	if c.mirror != nil {
		if err := c.mirror.Set(ctx, mirrorKey, snap, c.mirrorTTL); err != nil {
			c.logger.Warn("snapshot mirror write failed", applogger.Error(err))
		}
	}
	return true
}

// ReportAge pushes the current snapshot age to the metrics gauge. Commits
// reset it; a periodic caller keeps it tracking real time in between so
// staleness shows up on dashboards.
func (c *SnapshotCache) ReportAge() {
	if c.metrics == nil {
		return
	}
	if _, age, ok := c.Current(); ok {
		c.metrics.RecordSnapshotAge(age.Seconds())
	}
}

// Current returns the current snapshot, its age, and whether one exists.
// The returned snapshot is shared and must not be mutated.
func (c *SnapshotCache) Current() (*models.Snapshot, time.Duration, bool) {
	c.mu.RLock()
	snap := c.current
	c.mu.RUnlock()
	if snap == nil {
		return nil, 0, false
	}
	return snap, time.Since(snap.RefreshedAt), true
}

// Ready reports whether at least one snapshot has ever been committed.
// Readiness never reverts once reached.
func (c *SnapshotCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current != nil
}

// Stale reports whether the current snapshot is older than the TTL.
// An empty cache is not stale, it is just not ready.
func (c *SnapshotCache) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return false
	}
	return time.Since(c.current.RefreshedAt) > c.ttl
}

// TTL returns the configured freshness window.
func (c *SnapshotCache) TTL() time.Duration { return c.ttl }

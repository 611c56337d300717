package profile

import (
	"sync"

	"vigil/internal/metrics"
)

// SnapshotCache memoizes built profile snapshots per user. There is no TTL:
// entries live until explicitly invalidated, which happens after every
// successful moderation action against the user. The cache is an explicit
// dependency of the aggregator rather than process-wide state.
type SnapshotCache struct {
	mu        sync.RWMutex
	snapshots map[string]*Snapshot // keyed by user ID
}

// NewSnapshotCache creates an empty snapshot cache.
func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		snapshots: make(map[string]*Snapshot),
	}
}

// Get retrieves a cached snapshot for a user, or nil.
func (c *SnapshotCache) Get(userID string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.snapshots[userID]
	if snap != nil {
		metrics.SnapshotCacheHitsTotal.Inc()
	} else {
		metrics.SnapshotCacheMissesTotal.Inc()
	}
	return snap
}

// Set stores a snapshot for a user.
func (c *SnapshotCache) Set(userID string, snap *Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[userID] = snap
}

// Invalidate removes a user's snapshot so the next view re-fetches fresh
// state.
func (c *SnapshotCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, userID)
}

// Len returns the number of cached snapshots.
func (c *SnapshotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.snapshots)
}

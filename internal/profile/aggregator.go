// Package profile assembles the aggregated user view shown on the moderation
// dashboard and derives display-level restriction state from raw flags.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"vigil/internal/activity"
	"vigil/internal/docstore"
	"vigil/internal/metrics"
	"vigil/internal/reputation"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Facet fetch limits for a snapshot.
const (
	maxRecentActivity = 20
	maxAdminActions   = 30
	maxAdminNotes     = 15

	// recountScanCap bounds the report recount scan. Results can
	// under-count beyond the cap.
	recountScanCap = 300
)

// Snapshot aggregates everything the dashboard shows for one user.
type Snapshot struct {
	UserID         string                      `json:"userId"`
	Profile        docstore.Document           `json:"profile"`
	Reputation     reputation.ReputationRecord `json:"reputation"`
	Restriction    RestrictionState            `json:"restriction"`
	Tier           int                         `json:"tier"`
	EnhancedTier   int                         `json:"enhancedTier"`
	TotalReports   int                         `json:"totalReports"`
	RecentActivity []activity.Entry            `json:"recentActivity"`
	AdminActions   []reputation.AdminAction    `json:"adminActions"`
	AdminNotes     []reputation.AdminNote      `json:"adminNotes"`
	ViewerIsAdmin  bool                        `json:"viewerIsAdmin"`
	FetchedAt      time.Time                   `json:"fetchedAt"`
}

// Aggregator builds profile snapshots from the document store and activity
// log, memoizing them in the snapshot cache.
type Aggregator struct {
	store    *docstore.Store
	activity *activity.Index
	cache    *SnapshotCache
}

// NewAggregator creates an aggregator. activityIndex may be nil, in which
// case the recent-activity facet is always empty.
func NewAggregator(store *docstore.Store, activityIndex *activity.Index, cache *SnapshotCache) *Aggregator {
	return &Aggregator{store: store, activity: activityIndex, cache: cache}
}

// Cache exposes the snapshot cache for invalidation by the dispatcher.
func (a *Aggregator) Cache() *SnapshotCache {
	return a.cache
}

// Snapshot returns the aggregated view for a user, from cache when available.
// The base profile document is required; every other facet degrades to empty
// on error so one failing sub-query never aborts the aggregation.
func (a *Aggregator) Snapshot(ctx context.Context, userID string, viewerIsAdmin bool) (*Snapshot, error) {
	if cached := a.cache.Get(userID); cached != nil {
		return cached, nil
	}

	profileDoc, err := a.store.Get(ctx, docstore.CollectionUsers, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}

	snap := &Snapshot{
		UserID:        userID,
		Profile:       profileDoc,
		ViewerIsAdmin: viewerIsAdmin,
		FetchedAt:     time.Now(),
	}

	// The facets are independent: fetch them in parallel and degrade each
	// one to empty on failure.
	g, gCtx := errgroup.WithContext(ctx)

	var repDoc docstore.Document

	g.Go(func() error {
		doc, err := a.store.Get(gCtx, docstore.CollectionUserReputation, userID)
		if err != nil {
			if err != docstore.ErrNotFound {
				a.degrade("reputation", userID, err)
			}
			return nil
		}
		repDoc = doc
		return nil
	})

	g.Go(func() error {
		if a.activity == nil {
			return nil
		}
		entries, _, err := a.activity.Recent(gCtx, userID, maxRecentActivity, "")
		if err != nil {
			a.degrade("activity", userID, err)
			return nil
		}
		snap.RecentActivity = entries
		return nil
	})

	g.Go(func() error {
		results, err := a.store.Query(docstore.CollectionAdminActions).
			Where("userId", userID).
			OrderByDesc("timestamp").
			Limit(maxAdminActions).
			Documents(gCtx)
		if err != nil {
			a.degrade("admin_actions", userID, err)
			return nil
		}
		snap.AdminActions = decodeAll[reputation.AdminAction](results)
		return nil
	})

	g.Go(func() error {
		results, err := a.store.Query(docstore.CollectionAdminNotes).
			Where("userId", userID).
			OrderByDesc("timestamp").
			Limit(maxAdminNotes).
			Documents(gCtx)
		if err != nil {
			a.degrade("admin_notes", userID, err)
			return nil
		}
		snap.AdminNotes = decodeAll[reputation.AdminNote](results)
		return nil
	})

	// Facet fetchers only return nil; the group is used for the parallelism
	// and context plumbing.
	_ = g.Wait()

	snap.Reputation = reputation.Normalize(userID, repDoc)
	snap.Restriction = DeriveRestrictionState(snap.Reputation.Restrictions)
	snap.Tier = Tier(snap.Reputation.Score)
	snap.EnhancedTier = EnhancedTier(snap.Reputation.Score)
	snap.TotalReports = a.totalReports(ctx, userID, snap.Reputation.TotalReports)

	a.cache.Set(userID, snap)
	return snap, nil
}

// Invalidate evicts a user's snapshot.
func (a *Aggregator) Invalidate(userID string) {
	a.cache.Invalidate(userID)
}

// AuditLog returns recent audit entries for a user, newest first.
func (a *Aggregator) AuditLog(ctx context.Context, userID string, limit int) ([]reputation.AdminAction, error) {
	if limit <= 0 {
		limit = maxAdminActions
	}
	results, err := a.store.Query(docstore.CollectionAdminActions).
		Where("userId", userID).
		OrderByDesc("timestamp").
		Limit(limit).
		Documents(ctx)
	if err != nil {
		return nil, err
	}
	return decodeAll[reputation.AdminAction](results), nil
}

// totalReports recounts a user's reports from the report collection when the
// stored counter reads zero. Stale aggregate counters are common enough that
// the dashboard cross-checks; the scan is capped so a user with a huge report
// history cannot make profile views expensive.
func (a *Aggregator) totalReports(ctx context.Context, userID string, stored int) int {
	if stored != 0 {
		return stored
	}
	count, err := a.store.Query(docstore.CollectionReports).
		Where("userId", userID).
		ScanCap(recountScanCap).
		Count(ctx)
	if err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("Report recount failed")
		return stored
	}
	return count
}

func (a *Aggregator) degrade(facet, userID string, err error) {
	metrics.FacetFetchFailuresTotal.WithLabelValues(facet).Inc()
	log.Warn().Err(err).Str("facet", facet).Str("user", userID).Msg("Profile facet unavailable, degrading to empty")
}

// decodeAll converts query results to typed values through their JSON form,
// carrying the document id along.
func decodeAll[T any](results []docstore.Result) []T {
	out := make([]T, 0, len(results))
	for _, res := range results {
		res.Data["id"] = res.ID
		data, err := json.Marshal(res.Data)
		if err != nil {
			continue
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			continue // skip malformed entries
		}
		out = append(out, v)
	}
	return out
}

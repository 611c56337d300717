package profile

import (
	"context"
	"testing"
	"time"

	"vigil/internal/docstore"
	"vigil/internal/reputation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type allowAll struct{}

func (allowAll) IsAdmin(string) bool { return true }

func newTestDispatcher(t *testing.T) (*Dispatcher, *Aggregator, *docstore.Store) {
	t.Helper()
	store := openStore(t)
	cache := NewSnapshotCache()
	engine := reputation.NewEngine(store, allowAll{}, nil)
	agg := NewAggregator(store, nil, cache)
	return NewDispatcher(engine, cache), agg, store
}

func TestDispatch_BanVariants(t *testing.T) {
	tests := []struct {
		code      ActionCode
		wantScore int
		wantHours time.Duration
	}{
		{CodeBan24h, 50, 24 * time.Hour},
		{CodeBan7d, 50, 7 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			d, _, store := newTestDispatcher(t)
			ctx := context.Background()

			require.NoError(t, d.Dispatch(ctx, "admin", "user-1", tt.code, "spam"))

			doc, err := store.Get(ctx, docstore.CollectionUserReputation, "user-1")
			require.NoError(t, err)
			rec := reputation.Normalize("user-1", doc)
			assert.Equal(t, tt.wantScore, rec.Score)
			require.NotNil(t, rec.Restrictions.BannedUntil)
			assert.WithinDuration(t, time.Now().UTC().Add(tt.wantHours), *rec.Restrictions.BannedUntil, time.Minute)
		})
	}
}

func TestDispatch_BanPermanent(t *testing.T) {
	d, _, store := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, "admin", "user-1", CodeBanPermanent, "severe"))

	doc, err := store.Get(ctx, docstore.CollectionUserReputation, "user-1")
	require.NoError(t, err)
	rec := reputation.Normalize("user-1", doc)
	assert.Equal(t, 0, rec.Score)

	suspicion, err := store.Get(ctx, docstore.CollectionSuspiciousAccounts, "user-1")
	require.NoError(t, err)
	assert.Equal(t, float64(reputation.SuspicionPermaBan), suspicion["suspicionLevel"])
}

func TestDispatch_UnknownCode(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	err := d.Dispatch(context.Background(), "admin", "user-1", "selfDestruct", "oops")
	var unknown ErrUnknownAction
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, ActionCode("selfDestruct"), unknown.Code)
}

func TestDispatch_InvalidatesSnapshot(t *testing.T) {
	d, agg, store := newTestDispatcher(t)
	ctx := context.Background()

	seedUser(t, store, "user-1")
	snap, err := agg.Snapshot(ctx, "user-1", true)
	require.NoError(t, err)
	assert.Equal(t, reputation.DefaultScore, snap.Reputation.Score)

	require.NoError(t, d.Dispatch(ctx, "admin", "user-1", CodeQuarantine, "pattern"))

	// The next snapshot reflects the write
	snap, err = agg.Snapshot(ctx, "user-1", true)
	require.NoError(t, err)
	assert.Equal(t, 75, snap.Reputation.Score)
	assert.True(t, snap.Restriction.Quarantined)
}

func TestDispatch_FailedActionKeepsSnapshot(t *testing.T) {
	store := openStore(t)
	cache := NewSnapshotCache()
	engine := reputation.NewEngine(store, denyAllCaps{}, nil)
	agg := NewAggregator(store, nil, cache)
	d := NewDispatcher(engine, cache)
	ctx := context.Background()

	seedUser(t, store, "user-1")
	_, err := agg.Snapshot(ctx, "user-1", false)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	err = d.Dispatch(ctx, "admin", "user-1", CodeBan24h, "spam")
	assert.ErrorIs(t, err, reputation.ErrPermissionDenied)
	assert.Equal(t, 1, cache.Len(), "a failed action must not evict the snapshot")
}

type denyAllCaps struct{}

func (denyAllCaps) IsAdmin(string) bool { return false }

func TestDispatch_AdjustScoreAndNote(t *testing.T) {
	d, agg, store := newTestDispatcher(t)
	ctx := context.Background()

	seedUser(t, store, "user-1")
	_, err := agg.Snapshot(ctx, "user-1", true)
	require.NoError(t, err)

	require.NoError(t, d.AdjustScore(ctx, "admin", "user-1", -40, "manual"))
	snap, err := agg.Snapshot(ctx, "user-1", true)
	require.NoError(t, err)
	assert.Equal(t, 60, snap.Reputation.Score)

	require.NoError(t, d.AddNote(ctx, "admin", "user-1", "keeps reposting", "spam"))
	snap, err = agg.Snapshot(ctx, "user-1", true)
	require.NoError(t, err)
	require.Len(t, snap.AdminNotes, 1)
	assert.Equal(t, "keeps reposting", snap.AdminNotes[0].Note)
}

package profile

import (
	"testing"

	"vigil/internal/reputation"

	"github.com/stretchr/testify/assert"
)

func boolPtr(b bool) *bool { return &b }

func TestTier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{0, 1},
		{24, 1},
		{25, 2},
		{59, 2},
		{60, 3},
		{99, 3},
		{100, 4},
		{150, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Tier(tt.score), "score %d", tt.score)
	}
}

func TestEnhancedTier(t *testing.T) {
	assert.Equal(t, 4, EnhancedTier(199))
	assert.Equal(t, 5, EnhancedTier(200))
	assert.Equal(t, 5, EnhancedTier(500))
	assert.Equal(t, 1, EnhancedTier(10))
}

func TestDeriveRestrictionState_ExplicitBan(t *testing.T) {
	state := DeriveRestrictionState(reputation.Restrictions{
		IsBanned: boolPtr(true),
	})
	assert.True(t, state.FullyBanned)
}

func TestDeriveRestrictionState_InferredLockout(t *testing.T) {
	// No explicit ban flag, but every communication capability is off:
	// legacy records written before the isBanned flag existed look like this
	state := DeriveRestrictionState(reputation.Restrictions{
		CanPost:    boolPtr(false),
		CanComment: boolPtr(false),
		CanReport:  boolPtr(false),
		CanMessage: boolPtr(false),
	})
	assert.True(t, state.FullyBanned)
}

func TestDeriveRestrictionState_PartialLockoutIsNotBan(t *testing.T) {
	state := DeriveRestrictionState(reputation.Restrictions{
		CanPost:    boolPtr(false),
		CanComment: boolPtr(false),
	})
	assert.False(t, state.FullyBanned)
}

func TestDeriveRestrictionState_AbsentFlagsMeanUnrestricted(t *testing.T) {
	state := DeriveRestrictionState(reputation.Restrictions{})
	assert.False(t, state.BlockedReports)
	assert.False(t, state.BlockedVotes)
	assert.False(t, state.ModerationForced)
	assert.False(t, state.Quarantined)
	assert.False(t, state.FullyBanned)
}

func TestDeriveRestrictionState_Flags(t *testing.T) {
	state := DeriveRestrictionState(reputation.Restrictions{
		CanReport:     boolPtr(false),
		CanVote:       boolPtr(false),
		ReviewPending: boolPtr(true),
		Quarantine:    boolPtr(true),
	})
	assert.True(t, state.BlockedReports)
	assert.True(t, state.BlockedVotes)
	assert.True(t, state.ModerationForced)
	assert.True(t, state.Quarantined)
	assert.False(t, state.FullyBanned)
}

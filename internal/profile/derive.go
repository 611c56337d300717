package profile

import "vigil/internal/reputation"

// RestrictionState is the display-level classification derived from a user's
// raw restriction flags.
type RestrictionState struct {
	BlockedReports   bool `json:"blockedReports"`
	BlockedVotes     bool `json:"blockedVotes"`
	ModerationForced bool `json:"moderationForced"`
	Quarantined      bool `json:"quarantined"`
	FullyBanned      bool `json:"fullyBanned"`
}

// DeriveRestrictionState classifies a set of restriction flags. A user is
// fully banned either by the explicit flag or by inference: a total lockout
// of posting, commenting, reporting and messaging counts as a ban even when
// isBanned was never set.
func DeriveRestrictionState(r reputation.Restrictions) RestrictionState {
	lockedOut := isFalse(r.CanPost) && isFalse(r.CanComment) && isFalse(r.CanReport) && isFalse(r.CanMessage)

	return RestrictionState{
		BlockedReports:   isFalse(r.CanReport),
		BlockedVotes:     isFalse(r.CanVote),
		ModerationForced: isTrue(r.ReviewPending),
		Quarantined:      isTrue(r.Quarantine),
		FullyBanned:      isTrue(r.IsBanned) || lockedOut,
	}
}

// Tier maps a reputation score to the standard four display tiers.
func Tier(score int) int {
	switch {
	case score < 25:
		return 1
	case score < 60:
		return 2
	case score < 100:
		return 3
	default:
		return 4
	}
}

// EnhancedTier maps a score to the finer five-tier scale used by the detailed
// reputation panel. Tiers 1-4 match Tier; scores of 200 and above reach
// tier 5.
func EnhancedTier(score int) int {
	if score >= 200 {
		return 5
	}
	return Tier(score)
}

func isTrue(b *bool) bool  { return b != nil && *b }
func isFalse(b *bool) bool { return b != nil && !*b }

package reputation

import "time"

// PermanentBanHours is the ban duration at or above which a ban is treated as
// permanent. The same constant drives both the engine's permanence check and
// the dispatch duration table so the two can never drift apart.
const PermanentBanHours = 24 * 365 * 10

// DefaultScore is the reputation score assumed for a user with no record.
const DefaultScore = 100

// Suspicion levels tracked in suspicious_accounts. The scale is monotonic:
// 0 = none, 3 = quarantine-level, 5 = permanent-ban-level.
const (
	SuspicionNone       = 0
	SuspicionQuarantine = 3
	SuspicionPermaBan   = 5
)

// ActionType identifies a moderation action in the audit log. Values are
// persisted verbatim and shared with the rest of the platform.
type ActionType string

const (
	ActionScoreAdjust      ActionType = "scoreAdjust"
	ActionBan              ActionType = "ban"
	ActionUnban            ActionType = "unban"
	ActionQuarantine       ActionType = "quarantine"
	ActionUnquarantine     ActionType = "unquarantine"
	ActionBlockReports     ActionType = "blockReports"
	ActionUnblockReports   ActionType = "unblockReports"
	ActionBlockVotes       ActionType = "blockVotes"
	ActionUnblockVotes     ActionType = "unblockVotes"
	ActionForceModeration  ActionType = "forceModeration"
	ActionRemoveModeration ActionType = "removeModeration"
	ActionReset            ActionType = "reset"
	ActionNote             ActionType = "note"
)

// AuditSource tags audit entries written by this service.
const AuditSource = "web_dashboard"

// Restrictions holds the per-capability flags of a reputation record.
// Pointer booleans distinguish "explicitly set" from "absent": an absent flag
// means the capability is not restricted.
type Restrictions struct {
	CanReport     *bool      `json:"canReport,omitempty"`
	CanVote       *bool      `json:"canVote,omitempty"`
	CanPost       *bool      `json:"canPost,omitempty"`
	CanComment    *bool      `json:"canComment,omitempty"`
	CanMessage    *bool      `json:"canMessage,omitempty"`
	CanJoinEvents *bool      `json:"canJoinEvents,omitempty"`
	IsBanned      *bool      `json:"isBanned,omitempty"`
	Quarantine    *bool      `json:"quarantine,omitempty"`
	ReviewPending *bool      `json:"reviewPending,omitempty"`
	BannedUntil   *time.Time `json:"bannedUntil,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

// ReputationRecord is the canonical, alias-normalized view of a user's
// reputation document.
type ReputationRecord struct {
	UserID           string       `json:"userId"`
	Score            int          `json:"score"`
	Restrictions     Restrictions `json:"restrictions"`
	TotalReports     int          `json:"totalReports"`
	ReportsValidated int          `json:"reportsValidated"`
	ReportsFlagged   int          `json:"reportsFlagged"`
	Votes            int          `json:"votes"`
	ViolationCount   int          `json:"violationCount"`
	UpdatedAt        time.Time    `json:"updatedAt"`

	// Exists is false when the user had no stored record and the default
	// was synthesized.
	Exists bool `json:"exists"`
}

// DefaultRecord returns the record assumed for a user with no stored
// reputation document.
func DefaultRecord(userID string) ReputationRecord {
	return ReputationRecord{
		UserID: userID,
		Score:  DefaultScore,
	}
}

// SuspicionRecord tracks anti-abuse escalation for a user, separate from but
// updated alongside reputation actions.
type SuspicionRecord struct {
	UserID     string    `json:"userId"`
	Level      int       `json:"suspicionLevel"`
	Reasons    []string  `json:"reasons"`
	DetectedAt time.Time `json:"detectedAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// AdminAction is an append-only audit log entry. Entries are never mutated or
// deleted by this service.
type AdminAction struct {
	ID        string         `json:"id"`
	AdminID   string         `json:"adminId"`
	UserID    string         `json:"userId"`
	Action    ActionType     `json:"actionType"`
	Reason    string         `json:"reason"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
}

// AdminNote is a free-text note attached to a user by an administrator.
type AdminNote struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	AdminID   string    `json:"adminId"`
	Note      string    `json:"note"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

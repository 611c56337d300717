package reputation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/internal/docstore"
	"vigil/internal/metrics"
	"vigil/internal/notify"
	"vigil/internal/tracing"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// ErrPermissionDenied is returned when the caller lacks admin capability.
// No write is performed in that case.
var ErrPermissionDenied = errors.New("reputation: permission denied")

// Store is the document-store surface the engine needs. *docstore.Store
// satisfies it; tests substitute failing wrappers.
type Store interface {
	Get(ctx context.Context, collection, id string) (docstore.Document, error)
	Set(ctx context.Context, collection, id string, fields docstore.Document, merge bool) error
	Add(ctx context.Context, collection string, fields docstore.Document) (string, error)
}

// Capabilities is the identity check the engine performs before any write.
type Capabilities interface {
	IsAdmin(id string) bool
}

// Engine applies moderation actions against the document store. Every
// operation follows the same shape: capability check, read-modify-write of
// the user's reputation record, optional suspicion update, best-effort audit
// append, notification. There is no retry and no rollback: a multi-step
// operation that fails midway leaves the writes that already succeeded.
type Engine struct {
	store Store
	caps  Capabilities
	sink  notify.Sink
}

// NewEngine creates a moderation action engine. sink may be nil, in which
// case notifications are logged only.
func NewEngine(store Store, caps Capabilities, sink notify.Sink) *Engine {
	return &Engine{store: store, caps: caps, sink: sink}
}

// Reputation returns the normalized reputation record for a user. A missing
// or unreadable record yields the default record, never an error.
func (e *Engine) Reputation(ctx context.Context, userID string) ReputationRecord {
	doc, err := e.store.Get(ctx, docstore.CollectionUserReputation, userID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			log.Error().Err(err).Str("user", userID).Msg("Failed to fetch reputation, using default")
		}
		return DefaultRecord(userID)
	}
	return Normalize(userID, doc)
}

// AdjustScore adds delta to a user's score, clamped at zero.
func (e *Engine) AdjustScore(ctx context.Context, adminID, userID string, delta int, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionScoreAdjust), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionScoreAdjust); err != nil {
		return err
	}

	rec := e.Reputation(ctx, userID)
	newScore := clampLow(rec.Score + delta)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"score":     newScore,
		"updatedAt": docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionScoreAdjust, "Failed to adjust score", err)
	}

	e.logAction(ctx, adminID, userID, ActionScoreAdjust, reason, map[string]any{
		"scoreChange":   delta,
		"previousScore": rec.Score,
		"newScore":      newScore,
	})
	e.success(ActionScoreAdjust, "Score adjusted")
	return nil
}

// Ban bans a user for durationHours. Durations of PermanentBanHours or more
// are treated as permanent: the score penalty doubles and the user's
// suspicion level is raised to the permanent-ban level.
func (e *Engine) Ban(ctx context.Context, adminID, userID string, durationHours int, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionBan), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionBan); err != nil {
		return err
	}

	bannedUntil := time.Now().UTC().Add(time.Duration(durationHours) * time.Hour)
	isPermanent := durationHours >= PermanentBanHours

	rec := e.Reputation(ctx, userID)
	penalty := 50
	if isPermanent {
		penalty = 100
	}
	newScore := clampLow(rec.Score - penalty)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"score":                      newScore,
		"restrictions.bannedUntil":   bannedUntil,
		"restrictions.isBanned":      true,
		"restrictions.canReport":     false,
		"restrictions.canComment":    false,
		"restrictions.canPost":       false,
		"restrictions.canMessage":    false,
		"restrictions.canJoinEvents": false,
		"restrictions.reason":        reason,
		"restrictions.blockedAt":     docstore.ServerTimestamp(),
		"updatedAt":                  docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionBan, "Failed to ban user", err)
	}

	if isPermanent {
		e.setSuspicionLevel(ctx, userID, SuspicionPermaBan, "Permanent ban: "+reason)
	}

	e.logAction(ctx, adminID, userID, ActionBan, reason, map[string]any{
		"bannedUntil":   bannedUntil.Format(time.RFC3339),
		"durationHours": durationHours,
		"isPermanent":   isPermanent,
		"previousScore": rec.Score,
		"newScore":      newScore,
	})
	e.success(ActionBan, "User banned")
	return nil
}

// Unban lifts a ban, restores capability flags and grants the corrective
// score bonus. The suspicion level is reset.
func (e *Engine) Unban(ctx context.Context, adminID, userID string, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionUnban), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionUnban); err != nil {
		return err
	}

	rec := e.Reputation(ctx, userID)
	newScore := clampHigh(rec.Score + 25)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"score":                      newScore,
		"restrictions.bannedUntil":   docstore.Delete(),
		"restrictions.isBanned":      false,
		"restrictions.canReport":     true,
		"restrictions.canComment":    true,
		"restrictions.canPost":       true,
		"restrictions.canMessage":    true,
		"restrictions.canJoinEvents": true,
		"restrictions.reason":        docstore.Delete(),
		"updatedAt":                  docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionUnban, "Failed to unban user", err)
	}

	e.setSuspicionLevel(ctx, userID, SuspicionNone, "Unban: "+reason)

	e.logAction(ctx, adminID, userID, ActionUnban, reason, map[string]any{
		"previousScore": rec.Score,
		"newScore":      newScore,
	})
	e.success(ActionUnban, "User unbanned")
	return nil
}

// Quarantine places a user in quarantine: posting and commenting are
// disabled, the suspicion level is raised to quarantine level, and the score
// takes a 25-point penalty via AdjustScore. The two writes are independent
// failure domains.
func (e *Engine) Quarantine(ctx context.Context, adminID, userID string, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionQuarantine), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionQuarantine); err != nil {
		return err
	}

	e.setSuspicionLevel(ctx, userID, SuspicionQuarantine, "Quarantine: "+reason)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"restrictions.quarantine": true,
		"restrictions.canPost":    false,
		"restrictions.canComment": false,
		"updatedAt":               docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionQuarantine, "Failed to quarantine user", err)
	}

	if err := e.AdjustScore(ctx, adminID, userID, -25, "Administrative quarantine"); err != nil {
		return e.fail(span, ActionQuarantine, "Failed to apply quarantine penalty", err)
	}

	e.logAction(ctx, adminID, userID, ActionQuarantine, reason, map[string]any{})
	e.success(ActionQuarantine, "User quarantined")
	return nil
}

// Unquarantine lifts a quarantine. No score change.
func (e *Engine) Unquarantine(ctx context.Context, adminID, userID string, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionUnquarantine), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionUnquarantine); err != nil {
		return err
	}

	e.setSuspicionLevel(ctx, userID, SuspicionNone, "Quarantine lifted: "+reason)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"restrictions.quarantine": false,
		"restrictions.canPost":    true,
		"restrictions.canComment": true,
		"updatedAt":               docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionUnquarantine, "Failed to lift quarantine", err)
	}

	e.logAction(ctx, adminID, userID, ActionUnquarantine, reason, map[string]any{})
	e.success(ActionUnquarantine, "Quarantine lifted")
	return nil
}

// BlockReports disables report creation for a user.
func (e *Engine) BlockReports(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionBlockReports, "restrictions.canReport", false, reason, "Reports blocked")
}

// UnblockReports re-enables report creation.
func (e *Engine) UnblockReports(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionUnblockReports, "restrictions.canReport", true, reason, "Reports unblocked")
}

// BlockVotes disables voting for a user.
func (e *Engine) BlockVotes(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionBlockVotes, "restrictions.canVote", false, reason, "Votes blocked")
}

// UnblockVotes re-enables voting.
func (e *Engine) UnblockVotes(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionUnblockVotes, "restrictions.canVote", true, reason, "Votes unblocked")
}

// ForceModeration marks every future action of the user for manual review.
func (e *Engine) ForceModeration(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionForceModeration, "restrictions.reviewPending", true, reason, "Moderation forced")
}

// RemoveModeration lifts the forced-review flag.
func (e *Engine) RemoveModeration(ctx context.Context, adminID, userID string, reason string) error {
	return e.setFlag(ctx, adminID, userID, ActionRemoveModeration, "restrictions.reviewPending", false, reason, "Moderation removed")
}

// setFlag is the shared implementation of the single-flag toggle operations.
func (e *Engine) setFlag(ctx context.Context, adminID, userID string, action ActionType, field string, value bool, reason, notice string) error {
	ctx, span := tracing.ActionSpan(ctx, string(action), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, action); err != nil {
		return err
	}

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		field:       value,
		"updatedAt": docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, action, "Failed to update restriction", err)
	}

	e.logAction(ctx, adminID, userID, action, reason, map[string]any{})
	e.success(action, notice)
	return nil
}

// ResetReputation restores a user to a clean slate: full score, ban cleared,
// report and vote capabilities restored, stat counters zeroed, suspicion
// level reset. The operation is idempotent.
func (e *Engine) ResetReputation(ctx context.Context, adminID, userID string, reason string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionReset), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionReset); err != nil {
		return err
	}

	rec := e.Reputation(ctx, userID)

	err := e.store.Set(ctx, docstore.CollectionUserReputation, userID, docstore.Document{
		"score":                    DefaultScore,
		"totalReports":             0,
		"reportsValidated":         0,
		"reportsFlagged":           0,
		"violationCount":           0,
		"restrictions.bannedUntil": docstore.Delete(),
		"restrictions.canReport":   true,
		"restrictions.canVote":     true,
		"updatedAt":                docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		return e.fail(span, ActionReset, "Failed to reset reputation", err)
	}

	e.setSuspicionLevel(ctx, userID, SuspicionNone, "Full reset: "+reason)

	e.logAction(ctx, adminID, userID, ActionReset, reason, map[string]any{
		"previousScore": rec.Score,
		"newScore":      DefaultScore,
	})
	e.success(ActionReset, "Reputation reset")
	return nil
}

// AddAdminNote attaches a note to a user. The audit entry records the note's
// length only, never its content.
func (e *Engine) AddAdminNote(ctx context.Context, adminID, userID, note, category string) error {
	ctx, span := tracing.ActionSpan(ctx, string(ActionNote), userID)
	defer span.End()

	if err := e.requireAdmin(adminID, ActionNote); err != nil {
		return err
	}

	_, err := e.store.Add(ctx, docstore.CollectionAdminNotes, docstore.Document{
		"userId":    userID,
		"adminId":   adminID,
		"note":      note,
		"category":  category,
		"timestamp": docstore.ServerTimestamp(),
	})
	if err != nil {
		return e.fail(span, ActionNote, "Failed to add note", err)
	}

	e.logAction(ctx, adminID, userID, ActionNote, "Note: "+category, map[string]any{
		"length": len(note),
	})
	e.success(ActionNote, "Note added")
	return nil
}

// setSuspicionLevel updates the user's suspicion record. This is a
// best-effort side channel: failures are logged but never propagate to the
// calling operation.
func (e *Engine) setSuspicionLevel(ctx context.Context, userID string, level int, reason string) {
	err := e.store.Set(ctx, docstore.CollectionSuspiciousAccounts, userID, docstore.Document{
		"suspicionLevel": level,
		"reasons":        docstore.ArrayUnion(reason),
		"detectedAt":     docstore.ServerTimestamp(),
		"updatedAt":      docstore.ServerTimestamp(),
	}, true)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Int("level", level).Msg("Failed to update suspicion level")
	}
}

// logAction appends an audit entry. The audit trail is best-effort, not
// transactional with the state change it describes: failures are logged and
// swallowed so they never block the primary operation.
func (e *Engine) logAction(ctx context.Context, adminID, userID string, action ActionType, reason string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := e.store.Add(ctx, docstore.CollectionAdminActions, docstore.Document{
		"adminId":    adminID,
		"userId":     userID,
		"actionType": string(action),
		"reason":     reason,
		"metadata":   metadata,
		"timestamp":  docstore.ServerTimestamp(),
		"source":     AuditSource,
	})
	if err != nil {
		metrics.AuditWriteFailuresTotal.Inc()
		log.Error().Err(err).Str("action", string(action)).Str("user", userID).Msg("Failed to write audit entry")
	}
}

func (e *Engine) requireAdmin(adminID string, action ActionType) error {
	if e.caps == nil || adminID == "" || !e.caps.IsAdmin(adminID) {
		log.Warn().Str("admin", adminID).Str("action", string(action)).Msg("Denied: admin capability required")
		metrics.ModerationActionsTotal.WithLabelValues(string(action), "denied").Inc()
		e.notifyErr("Admin permissions required")
		return ErrPermissionDenied
	}
	return nil
}

func (e *Engine) fail(span trace.Span, action ActionType, notice string, err error) error {
	tracing.EndWithError(span, err)
	metrics.ModerationActionsTotal.WithLabelValues(string(action), "error").Inc()
	log.Error().Err(err).Str("action", string(action)).Msg(notice)
	e.notifyErr(notice)
	return fmt.Errorf("%s: %w", action, err)
}

func (e *Engine) success(action ActionType, notice string) {
	metrics.ModerationActionsTotal.WithLabelValues(string(action), "ok").Inc()
	e.notifyOK(notice)
}

func (e *Engine) notifyOK(message string) {
	if e.sink == nil {
		log.Info().Msg(message)
		return
	}
	e.sink.Notify(message, notify.KindSuccess)
}

func (e *Engine) notifyErr(message string) {
	if e.sink == nil {
		log.Warn().Msg(message)
		return
	}
	e.sink.Notify(message, notify.KindError)
}

func clampLow(score int) int {
	if score < 0 {
		return 0
	}
	return score
}

func clampHigh(score int) int {
	if score > DefaultScore {
		return DefaultScore
	}
	return score
}

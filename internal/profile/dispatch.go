package profile

import (
	"context"
	"fmt"

	"vigil/internal/reputation"
)

// ActionCode identifies a dashboard moderation action.
type ActionCode string

const (
	CodeQuarantine       ActionCode = "quarantine"
	CodeUnquarantine     ActionCode = "unquarantine"
	CodeBan24h           ActionCode = "ban24h"
	CodeBan7d            ActionCode = "ban7d"
	CodeBanPermanent     ActionCode = "banPermanent"
	CodeUnban            ActionCode = "unban"
	CodeBlockReports     ActionCode = "blockReports"
	CodeUnblockReports   ActionCode = "unblockReports"
	CodeBlockVotes       ActionCode = "blockVotes"
	CodeUnblockVotes     ActionCode = "unblockVotes"
	CodeForceModeration  ActionCode = "forceModeration"
	CodeRemoveModeration ActionCode = "removeModeration"
	CodeResetReputation  ActionCode = "resetReputation"
)

// ErrUnknownAction reports an action code with no mapped operation.
type ErrUnknownAction struct {
	Code ActionCode
}

func (e ErrUnknownAction) Error() string {
	return fmt.Sprintf("unknown moderation action %q", string(e.Code))
}

// banDurations maps ban action codes to their duration in hours. Every ban
// variant goes through this table, so the permanent threshold lives in
// exactly one place.
var banDurations = map[ActionCode]int{
	CodeBan24h:       24,
	CodeBan7d:        24 * 7,
	CodeBanPermanent: reputation.PermanentBanHours,
}

// Dispatcher routes dashboard action codes to reputation engine operations
// and keeps the snapshot cache coherent with writes.
type Dispatcher struct {
	engine *reputation.Engine
	cache  *SnapshotCache
}

func NewDispatcher(engine *reputation.Engine, cache *SnapshotCache) *Dispatcher {
	return &Dispatcher{engine: engine, cache: cache}
}

// Dispatch executes the operation behind code on behalf of adminID. On
// success the user's cached snapshot is evicted so the next read reflects
// the write.
func (d *Dispatcher) Dispatch(ctx context.Context, adminID, userID string, code ActionCode, reason string) error {
	var err error
	switch code {
	case CodeBan24h, CodeBan7d, CodeBanPermanent:
		err = d.engine.Ban(ctx, adminID, userID, banDurations[code], reason)
	case CodeUnban:
		err = d.engine.Unban(ctx, adminID, userID, reason)
	case CodeQuarantine:
		err = d.engine.Quarantine(ctx, adminID, userID, reason)
	case CodeUnquarantine:
		err = d.engine.Unquarantine(ctx, adminID, userID, reason)
	case CodeBlockReports:
		err = d.engine.BlockReports(ctx, adminID, userID, reason)
	case CodeUnblockReports:
		err = d.engine.UnblockReports(ctx, adminID, userID, reason)
	case CodeBlockVotes:
		err = d.engine.BlockVotes(ctx, adminID, userID, reason)
	case CodeUnblockVotes:
		err = d.engine.UnblockVotes(ctx, adminID, userID, reason)
	case CodeForceModeration:
		err = d.engine.ForceModeration(ctx, adminID, userID, reason)
	case CodeRemoveModeration:
		err = d.engine.RemoveModeration(ctx, adminID, userID, reason)
	case CodeResetReputation:
		err = d.engine.ResetReputation(ctx, adminID, userID, reason)
	default:
		return ErrUnknownAction{Code: code}
	}
	if err != nil {
		return err
	}
	d.cache.Invalidate(userID)
	return nil
}

// AdjustScore applies a manual score delta and evicts the cached snapshot.
func (d *Dispatcher) AdjustScore(ctx context.Context, adminID, userID string, delta int, reason string) error {
	if err := d.engine.AdjustScore(ctx, adminID, userID, delta, reason); err != nil {
		return err
	}
	d.cache.Invalidate(userID)
	return nil
}

// AddNote attaches an admin note and evicts the cached snapshot so the note
// list refreshes.
func (d *Dispatcher) AddNote(ctx context.Context, adminID, userID, note, category string) error {
	if err := d.engine.AddAdminNote(ctx, adminID, userID, note, category); err != nil {
		return err
	}
	d.cache.Invalidate(userID)
	return nil
}

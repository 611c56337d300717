package reputation

import (
	"time"

	"vigil/internal/docstore"
)

// Normalize converts a raw user_reputation document into the canonical record,
// resolving the legacy field-name variants that have accumulated across
// schema versions (web/mobile/older exports). Alias resolution happens only
// here, at the read boundary; everything downstream works with canonical
// fields. A nil document yields the default record.
func Normalize(userID string, doc docstore.Document) ReputationRecord {
	if doc == nil {
		return DefaultRecord(userID)
	}

	rec := ReputationRecord{
		UserID: userID,
		Exists: true,
	}

	if score, ok := intAt(doc, "reputationScore", "score", "points"); ok {
		rec.Score = score
	} else {
		rec.Score = DefaultScore
	}

	rec.TotalReports, _ = intAt(doc,
		"totalReports", "reportsCreated", "createdReports",
		"stats.total", "stats.created", "reportStats.total", "reportStats.created")
	rec.ReportsValidated, _ = intAt(doc,
		"reportsValidated", "validatedReports", "approvedReports",
		"stats.validated", "stats.approved", "reportStats.validated", "reportStats.approved")
	rec.ReportsFlagged, _ = intAt(doc,
		"reportsFlagged", "flaggedReports", "reportedReports",
		"stats.flagged", "stats.reported", "reportStats.flagged", "reportStats.reported")
	rec.Votes, _ = intAt(doc,
		"votes", "voteCount", "totalVotes",
		"stats.votes", "stats.totalVotes", "reportStats.votes")
	rec.ViolationCount, _ = intAt(doc, "violationCount", "violations")

	if t, ok := timeAt(doc, "updatedAt", "lastUpdated"); ok {
		rec.UpdatedAt = t
	}

	rec.Restrictions = normalizeRestrictions(doc)
	return rec
}

func normalizeRestrictions(doc docstore.Document) Restrictions {
	var r Restrictions
	r.CanReport = boolAt(doc, "restrictions.canReport")
	r.CanVote = boolAt(doc, "restrictions.canVote")
	r.CanPost = boolAt(doc, "restrictions.canPost")
	r.CanComment = boolAt(doc, "restrictions.canComment")
	r.CanMessage = boolAt(doc, "restrictions.canMessage")
	r.CanJoinEvents = boolAt(doc, "restrictions.canJoinEvents")
	r.IsBanned = boolAt(doc, "restrictions.isBanned")
	r.Quarantine = boolAt(doc, "restrictions.quarantine")

	// Three generations of field names mean the same thing here.
	for _, field := range []string{"restrictions.reviewPending", "restrictions.forceModeration", "restrictions.needsModeration"} {
		if b := boolAt(doc, field); b != nil {
			r.ReviewPending = b
			break
		}
	}

	if t, ok := timeAt(doc, "restrictions.bannedUntil", "restrictions.banUntil"); ok {
		r.BannedUntil = &t
	}
	if s, ok := strAt(doc, "restrictions.reason"); ok {
		r.Reason = s
	}
	return r
}

// intAt returns the first present numeric value among the given dotted paths.
func intAt(doc docstore.Document, paths ...string) (int, bool) {
	for _, path := range paths {
		v, ok := lookup(doc, path)
		if !ok {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n), true
		case int:
			return n, true
		case int64:
			return int(n), true
		}
	}
	return 0, false
}

// boolAt returns a pointer to the first present boolean among the paths, or
// nil when absent.
func boolAt(doc docstore.Document, paths ...string) *bool {
	for _, path := range paths {
		if v, ok := lookup(doc, path); ok {
			if b, isBool := v.(bool); isBool {
				return &b
			}
		}
	}
	return nil
}

// timeAt returns the first present timestamp among the paths. Timestamps are
// stored as RFC 3339 strings.
func timeAt(doc docstore.Document, paths ...string) (time.Time, bool) {
	for _, path := range paths {
		v, ok := lookup(doc, path)
		if !ok {
			continue
		}
		if s, isStr := v.(string); isStr {
			for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
				if t, err := time.Parse(layout, s); err == nil {
					return t, true
				}
			}
		}
	}
	return time.Time{}, false
}

func strAt(doc docstore.Document, paths ...string) (string, bool) {
	for _, path := range paths {
		if v, ok := lookup(doc, path); ok {
			if s, isStr := v.(string); isStr {
				return s, true
			}
		}
	}
	return "", false
}

// lookup resolves a dotted path against a document.
func lookup(doc docstore.Document, path string) (any, bool) {
	var cur any = map[string]any(doc)
	for {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		idx := -1
		for i := 0; i < len(path); i++ {
			if path[i] == '.' {
				idx = i
				break
			}
		}
		if idx == -1 {
			v, ok := m[path]
			return v, ok
		}
		cur, ok = m[path[:idx]]
		if !ok {
			return nil, false
		}
		path = path[idx+1:]
	}
}

// Package handlers contains the HTTP handlers for the moderation dashboard
// API.
package handlers

import (
	"encoding/json"
	"net/http"

	"vigil/internal/activity"
	"vigil/internal/docstore"
	"vigil/internal/identity"
	"vigil/internal/metrics"
	"vigil/internal/notify"
	"vigil/internal/profile"
	"vigil/internal/reputation"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

// Config holds the dependencies for creating a Handler
type Config struct {
	Identity   *identity.Service
	Engine     *reputation.Engine
	Aggregator *profile.Aggregator
	Dispatcher *profile.Dispatcher
	Activity   *activity.Index
	Store      *docstore.Store
	Notices    *notify.MemorySink
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	identity   *identity.Service
	engine     *reputation.Engine
	aggregator *profile.Aggregator
	dispatcher *profile.Dispatcher
	activity   *activity.Index
	store      *docstore.Store
	notices    *notify.MemorySink
}

// NewHandler creates a new Handler with the given configuration
func NewHandler(cfg Config) *Handler {
	return &Handler{
		identity:   cfg.Identity,
		engine:     cfg.Engine,
		aggregator: cfg.Aggregator,
		dispatcher: cfg.Dispatcher,
		activity:   cfg.Activity,
		store:      cfg.Store,
		notices:    cfg.Notices,
	}
}

// writeJSON serializes v to the response with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeJSONError sends a JSON error body with the given status.
func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HandleHealthz handles GET /healthz
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleMe handles GET /api/me, returning the authenticated admin's identity
// and role for the dashboard shell.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	user, ok := h.identity.GetAdminUser(adminID)
	if !ok {
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}
	// Never echo the token back.
	user.Token = ""
	writeJSON(w, http.StatusOK, user)
}

// HandleNotifications handles GET /api/notifications, returning recent
// operator notices newest first.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.IsModerator(adminID) {
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	notices := h.notices.Recent()
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notices})
}

// dashboardStats is the payload for the admin stats endpoint.
type dashboardStats struct {
	ReputationRecords  int64 `json:"reputationRecords"`
	SuspiciousAccounts int64 `json:"suspiciousAccounts"`
	AdminActions       int64 `json:"adminActions"`
	AdminNotes         int64 `json:"adminNotes"`
	CachedSnapshots    int   `json:"cachedSnapshots"`
}

// HandleStats handles GET /api/stats. Counts are read back from the
// Prometheus gauges kept fresh by the stats collector.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.IsAdmin(adminID) {
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	stats := dashboardStats{
		ReputationRecords:  int64(getGaugeValue(metrics.ReputationRecordsTotal)),
		SuspiciousAccounts: int64(getGaugeValue(metrics.SuspiciousAccountsTotal)),
		AdminActions:       int64(getGaugeValue(metrics.AdminActionsLogged)),
		AdminNotes:         int64(getGaugeValue(metrics.AdminNotesTotal)),
		CachedSnapshots:    h.aggregator.Cache().Len(),
	}
	writeJSON(w, http.StatusOK, stats)
}

// getGaugeValue reads the current value of a prometheus.Gauge.
func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil {
		return m.GetGauge().GetValue()
	}
	return 0
}

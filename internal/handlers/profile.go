package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"vigil/internal/docstore"
	"vigil/internal/identity"

	"github.com/rs/zerolog/log"
)

// HandleProfile handles GET /api/profile/{user}, returning the aggregated
// moderation view for one user.
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.HasPermission(adminID, identity.PermissionViewProfiles) {
		log.Warn().Str("admin", adminID).Str("endpoint", "/api/profile").Msg("Denied: missing view_profiles permission")
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	userID := r.PathValue("user")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	snap, err := h.aggregator.Snapshot(r.Context(), userID, h.identity.IsAdmin(adminID))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Str("user", userID).Msg("Failed to build profile snapshot")
		writeJSONError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// HandleAudit handles GET /mod/audit?user=...&limit=..., returning a user's
// audit log entries newest first.
func (h *Handler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.HasPermission(adminID, identity.PermissionViewAuditLog) {
		log.Warn().Str("admin", adminID).Str("endpoint", "/mod/audit").Msg("Denied: missing view_audit_log permission")
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
	}

	entries, err := h.aggregator.AuditLog(r.Context(), userID, limit)
	if err != nil {
		log.Error().Err(err).Str("user", userID).Msg("Failed to fetch audit log")
		writeJSONError(w, http.StatusInternalServerError, "Failed to load audit log")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

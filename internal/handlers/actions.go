package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"vigil/internal/docstore"
	"vigil/internal/identity"
	"vigil/internal/profile"
	"vigil/internal/reputation"

	"github.com/rs/zerolog/log"
)

// HandleModAction handles POST /mod/action. The form carries the action code,
// target user, and a reason.
func (h *Handler) HandleModAction(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.HasPermission(adminID, identity.PermissionModerateUsers) {
		log.Warn().Str("admin", adminID).Str("endpoint", "/mod/action").Msg("Denied: missing moderate_users permission")
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	code := profile.ActionCode(r.FormValue("code"))
	userID := r.FormValue("user")
	reason := r.FormValue("reason")
	if code == "" || userID == "" {
		writeJSONError(w, http.StatusBadRequest, "Action code and user ID are required")
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), adminID, userID, code, reason); err != nil {
		h.writeActionError(w, adminID, userID, string(code), err)
		return
	}

	log.Info().
		Str("code", string(code)).
		Str("user", userID).
		Str("by", adminID).
		Msg("Moderation action applied")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAdjustScore handles POST /mod/adjust-score with a signed delta.
func (h *Handler) HandleAdjustScore(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.HasPermission(adminID, identity.PermissionModerateUsers) {
		log.Warn().Str("admin", adminID).Str("endpoint", "/mod/adjust-score").Msg("Denied: missing moderate_users permission")
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	userID := r.FormValue("user")
	reason := r.FormValue("reason")
	delta, err := strconv.Atoi(r.FormValue("delta"))
	if userID == "" || err != nil {
		writeJSONError(w, http.StatusBadRequest, "User ID and numeric delta are required")
		return
	}

	if err := h.dispatcher.AdjustScore(r.Context(), adminID, userID, delta, reason); err != nil {
		h.writeActionError(w, adminID, userID, "adjustScore", err)
		return
	}

	log.Info().
		Int("delta", delta).
		Str("user", userID).
		Str("by", adminID).
		Msg("Score adjusted")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleAddNote handles POST /mod/note.
func (h *Handler) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	adminID, err := identity.AdminFromContext(r.Context())
	if err != nil || adminID == "" {
		writeJSONError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !h.identity.HasPermission(adminID, identity.PermissionAddNotes) {
		log.Warn().Str("admin", adminID).Str("endpoint", "/mod/note").Msg("Denied: missing add_notes permission")
		writeJSONError(w, http.StatusForbidden, "Access denied")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	userID := r.FormValue("user")
	note := r.FormValue("note")
	category := r.FormValue("category")
	if userID == "" || note == "" {
		writeJSONError(w, http.StatusBadRequest, "User ID and note are required")
		return
	}

	if err := h.dispatcher.AddNote(r.Context(), adminID, userID, note, category); err != nil {
		h.writeActionError(w, adminID, userID, "note", err)
		return
	}

	log.Info().
		Str("user", userID).
		Str("by", adminID).
		Msg("Admin note added")

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeActionError maps dispatcher errors to HTTP statuses.
func (h *Handler) writeActionError(w http.ResponseWriter, adminID, userID, code string, err error) {
	var unknown profile.ErrUnknownAction
	switch {
	case errors.As(err, &unknown):
		writeJSONError(w, http.StatusBadRequest, unknown.Error())
	case errors.Is(err, reputation.ErrPermissionDenied):
		writeJSONError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, docstore.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "User not found")
	default:
		log.Error().Err(err).
			Str("code", code).
			Str("user", userID).
			Str("by", adminID).
			Msg("Moderation action failed")
		writeJSONError(w, http.StatusInternalServerError, "Action failed")
	}
}

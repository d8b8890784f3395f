package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gridwatch/gridwatch-core/internal/audit"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

// handleDashboardUsers returns the dashboard listing: one summary per
// logical device, with staleness applied and deviceName duplicates merged.
func (s *Server) handleDashboardUsers(w http.ResponseWriter, _ *http.Request) {
	summaries := s.registry.Overview(time.Now().UTC())
	writeJSON(w, http.StatusOK, map[string]any{
		"users": summaries,
		"count": len(summaries),
	})
}

// handleDashboardUser returns the full detail view for one device record.
func (s *Server) handleDashboardUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := s.registry.Detail(id, time.Now().UTC())
	if err != nil {
		if errors.Is(err, monitor.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleDashboardActivity returns the paginated activity trail.
//
// Query parameters: action, entityType, entityId, limit, offset.
func (s *Server) handleDashboardActivity(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "activity trail not enabled")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing activity entries", "error", err)
		writeInternalError(w, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

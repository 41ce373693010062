package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-qsys/internal/history"
)

// handleGetHistory returns recorded feedback for one control, newest first.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	component := chi.URLParam(r, "component")
	control := chi.URLParam(r, "control")
	if len(component) > maxQueryParamLen || len(control) > maxQueryParamLen {
		writeBadRequest(w, "invalid component or control")
		return
	}

	limit, err := parseHistoryLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if s.history == nil {
		writeUnavailable(w, "history recording disabled")
		return
	}

	entries, err := s.history.GetHistory(r.Context(), component, control, limit)
	if err != nil {
		if errors.Is(err, history.ErrInvalidQuery) {
			writeBadRequest(w, err.Error())
			return
		}
		s.logger.Error("loading control history failed",
			"component", component,
			"control", control,
			"error", err,
		)
		writeInternalError(w, "failed to load history")
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"component": component,
		"control":   control,
		"history":   entries,
		"count":     len(entries),
	})
}

// parseHistoryLimit accepts an empty value (repository default) or a
// positive integer; the repository caps large values.
func parseHistoryLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if limit > history.MaxLimit {
		limit = history.MaxLimit
	}
	return limit, nil
}

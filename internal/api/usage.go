package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goodtune/wordbuddy/internal/account"
	"github.com/goodtune/wordbuddy/internal/storage"
	"github.com/goodtune/wordbuddy/internal/usage"
)

const maxPrefetch = 10

// PrefetchRequest lists texts whose audio should be warmed.
type PrefetchRequest struct {
	Texts []string `json:"texts"`
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var req PrefetchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Texts) > maxPrefetch {
		writeError(w, http.StatusBadRequest, "Too many texts")
		return
	}

	for _, text := range req.Texts {
		s.speech.Prefetch(r.Context(), text)
	}
	w.WriteHeader(http.StatusAccepted)
}

// handleUsage reports today's counters. With ?session= the session's
// entitlement applies; otherwise the free tier is shown.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	var ent usage.Entitlements = account.NewStatic(false)
	if id := r.URL.Query().Get("session"); id != "" {
		sess, ok := s.sessions.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		ent = sess.Entitlements()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"features": s.usage.Status(r.Context(), ent),
	})
}

// handleResults queries recorded rounds.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if s.results == nil {
		writeError(w, http.StatusServiceUnavailable, "Results are not recorded")
		return
	}

	query := r.URL.Query()
	filter := storage.ResultFilter{
		Game:      query.Get("game"),
		SessionID: query.Get("session"),
		Limit:     100,
	}

	if startStr := query.Get("start_time"); startStr != "" {
		start, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start_time format (use RFC3339)")
			return
		}
		filter.StartTime = &start
	}
	if endStr := query.Get("end_time"); endStr != "" {
		end, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end_time format (use RFC3339)")
			return
		}
		filter.EndTime = &end
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 1000 {
			writeError(w, http.StatusBadRequest, "Invalid limit (must be 1-1000)")
			return
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			writeError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	results, err := s.results.QueryResults(r.Context(), filter)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query results")
		writeError(w, http.StatusInternalServerError, "Failed to query results")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
		"filter":  filter,
	})
}

package api

import (
	"errors"
	"net/http"

	"github.com/goodtune/wordbuddy/internal/games"
	"github.com/goodtune/wordbuddy/internal/session"
	"github.com/goodtune/wordbuddy/internal/usage"
	"github.com/gorilla/mux"
)

// OpenSessionRequest opens a companion session.
type OpenSessionRequest struct {
	Premium bool `json:"premium"`
}

// PremiumRequest changes a session's entitlement.
type PremiumRequest struct {
	Premium bool `json:"premium"`
}

// ModeRequest selects a mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// GameRequest selects a mini-game.
type GameRequest struct {
	Game string `json:"game"`
}

// BackRequest leaves the current screen. To is "games" or "menu".
type BackRequest struct {
	To string `json:"to"`
}

// SelectionResponse is returned for mode and game selection. A denial is a
// normal 200 reply carrying the gating prompt.
type SelectionResponse struct {
	Decision usage.Decision   `json:"decision"`
	Prompt   *session.Prompt  `json:"prompt,omitempty"`
	Session  session.Snapshot `json:"session"`
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.List()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": ids,
		"count":    len(ids),
	})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess := s.sessions.Open(req.Premium)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.sessions.Close(id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		s.logger.Error().Err(err).Str("session", id).Msg("Failed to close session")
		writeError(w, http.StatusInternalServerError, "Failed to close session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetPremium(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req PremiumRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess.SetPremium(req.Premium)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSelectMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req ModeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	decision, err := sess.SelectMode(r.Context(), session.Mode(req.Mode))
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSelection(w, sess, decision, "")
}

func (s *Server) handleSelectGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req GameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind := games.Kind(req.Game)
	decision, err := sess.SelectGame(r.Context(), kind)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSelection(w, sess, decision, kind)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var in games.Input
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := sess.Handle(r.Context(), in); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := sess.Replay(); err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req BackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var err error
	switch req.To {
	case "", "menu":
		err = sess.BackToMenu(r.Context())
	case "games":
		err = sess.BackToGames()
	default:
		writeError(w, http.StatusBadRequest, "to must be games or menu")
		return
	}
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleConsume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	feature := usage.Feature(mux.Vars(r)["feature"])
	d, err := sess.ConsumeExternal(r.Context(), feature)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.writeSelection(w, sess, d, "")
}

func (s *Server) writeSelection(w http.ResponseWriter, sess *session.Session, d usage.Decision, kind games.Kind) {
	resp := SelectionResponse{Decision: d, Session: sess.Snapshot()}
	if !d.Allowed {
		resp.Prompt = &session.Prompt{Feature: d.Feature, Game: kind, Reason: d.Reason, Remaining: d.Remaining}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, session.ErrUnknownMode),
		errors.Is(err, session.ErrUnknownGame),
		errors.Is(err, session.ErrUnknownFeature),
		errors.Is(err, games.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, games.ErrInputRejected),
		errors.Is(err, games.ErrNotReady),
		errors.Is(err, session.ErrNoActiveGame),
		errors.Is(err, session.ErrGamesNotOpen):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Session request failed")
		writeError(w, http.StatusInternalServerError, "Request failed")
	}
}

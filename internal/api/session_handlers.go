package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/slangflash/internal/logger"
)

type startSessionRequest struct {
	UserID string     `json:"userId" validate:"required,max=128"`
	Now    *time.Time `json:"now"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}

	var now time.Time
	if req.Now != nil {
		now = *req.Now
	}
	snap, err := s.SessionService.StartSession(r.Context(), req.UserID, now)
	if err != nil {
		handleError(w, r, err)
		return
	}

	logger.FromContext(r.Context()).Info("session %s started with %d cards", snap.ID, snap.Total)
	writeJSON(w, r, http.StatusCreated, snap)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.SessionService.GetSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.SessionService.EndSession(r.Context(), chi.URLParam(r, "sessionId")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

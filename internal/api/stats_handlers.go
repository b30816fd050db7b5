package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/slangflash/internal/logger"
)

func (s *Server) handleFlashcardStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	now, err := nowParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("fetching flashcard stats: user_id=%s", userID)

	stats, err := s.StatsService.GetFlashcardStats(r.Context(), userID, now)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/vytor/slangflash/internal/errors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api/flashcard", func(r chi.Router) {
		if s.RateLimit > 0 {
			r.Use(httprate.LimitByIP(s.RateLimit, time.Minute))
		}
		if s.RequestTimeout > 0 {
			r.Use(timeoutMiddleware(s.RequestTimeout))
		}

		r.Post("/addFlashcard", s.handleAddFlashcard)
		r.Get("/getFlashcards/{userId}", s.handleGetFlashcards)
		r.Get("/getDueFlashcards/{userId}", s.handleGetDueFlashcards)
		r.Put("/updateFlashcardReview/{flashcardId}", s.handleUpdateFlashcardReview)
		r.Get("/getFlashcardHistory/{flashcardId}", s.handleGetFlashcardHistory)
		r.Get("/stats/{userId}", s.handleFlashcardStats)

		r.Post("/sessions", s.handleStartSession)
		r.Get("/sessions/{sessionId}", s.handleGetSession)
		r.Delete("/sessions/{sessionId}", s.handleEndSession)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, errors.NewNotFoundError("route", r.URL.Path))
	})
	return r
}

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/vytor/slangflash/internal/errors"
	"github.com/vytor/slangflash/internal/grade"
	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/services"
)

type addFlashcardRequest struct {
	UserID    string `json:"userId" validate:"required,max=128"`
	ContentID string `json:"contentId" validate:"required,max=128"`
	Front     string `json:"front" validate:"max=4096"`
	Back      string `json:"back" validate:"max=4096"`
}

type addFlashcardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type reviewFlashcardRequest struct {
	Quality     json.RawMessage `json:"quality"`
	IsHard      *bool           `json:"isHard"`
	KeepInQueue bool            `json:"keepInQueue"`
	SessionID   string          `json:"sessionId" validate:"omitempty,uuid"`
	TimeSeconds float64         `json:"timeSeconds" validate:"gte=0"`
	Now         *time.Time      `json:"now"`
}

// gradeInput folds the quality value and the isHard flag into one grade.
func (req reviewFlashcardRequest) gradeInput() (grade.Input, error) {
	in, err := grade.FromJSON(req.Quality)
	if err != nil {
		return grade.Input{}, err
	}
	if req.IsHard != nil {
		if !in.IsZero() {
			return grade.Input{}, &grade.InvalidGradeError{Input: string(req.Quality), Reason: "quality and isHard are mutually exclusive"}
		}
		in = grade.FromHard(*req.IsHard)
	}
	return in, nil
}

func (s *Server) handleAddFlashcard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req addFlashcardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	log = log.WithFields(map[string]any{
		"user_id":    req.UserID,
		"content_id": req.ContentID,
	})
	log.Debug("adding flashcard")

	res, err := s.FlashcardService.AddFlashcard(r.Context(), services.AddRequest{
		UserID:    req.UserID,
		ContentID: req.ContentID,
		Front:     req.Front,
		Back:      req.Back,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	if res.Status == services.AddStatusAlreadyExists {
		writeJSON(w, r, http.StatusConflict, addFlashcardResponse{Success: false, Message: res.Message})
		return
	}
	writeJSON(w, r, http.StatusCreated, addFlashcardResponse{Success: true, Message: res.Message, Data: res.Flashcard})
}

func (s *Server) handleGetFlashcards(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	cards, err := s.FlashcardService.Flashcards(r.Context(), userID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, cards)
}

func (s *Server) handleGetDueFlashcards(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	now, err := nowParam(r)
	if err != nil {
		handleError(w, r, err)
		return
	}

	cards, err := s.FlashcardService.DueFlashcards(r.Context(), userID, now)
	if err != nil {
		handleError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Debug("returning %d due flashcards for %s", len(cards), userID)
	writeJSON(w, r, http.StatusOK, cards)
}

func (s *Server) handleUpdateFlashcardReview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id, err := int64Param(r, "flashcardId")
	if err != nil {
		handleError(w, r, err)
		return
	}

	var req reviewFlashcardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	in, err := req.gradeInput()
	if err != nil {
		handleError(w, r, errors.NewInvalidGradeError(err))
		return
	}

	log = log.WithFields(map[string]any{
		"flashcard_id":  id,
		"keep_in_queue": req.KeepInQueue,
		"time_seconds":  req.TimeSeconds,
	})
	log.Debug("reviewing flashcard")

	review := services.ReviewRequest{
		FlashcardID: id,
		Grade:       in,
		KeepInQueue: req.KeepInQueue,
		SessionID:   req.SessionID,
		TimeSeconds: req.TimeSeconds,
	}
	if req.Now != nil {
		review.Now = *req.Now
	}

	res, err := s.FlashcardService.ReviewFlashcard(logger.NewContext(r.Context(), log), review)
	if err != nil {
		handleError(w, r, err)
		return
	}

	log.Info("flashcard reviewed successfully")
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetFlashcardHistory(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "flashcardId")
	if err != nil {
		handleError(w, r, err)
		return
	}

	events, err := s.FlashcardService.ReviewHistory(r.Context(), id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/vytor/slangflash/internal/errors"
	"github.com/vytor/slangflash/internal/flashcard"
	"github.com/vytor/slangflash/internal/grade"
	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/models"
	"github.com/vytor/slangflash/internal/repository"
	"github.com/vytor/slangflash/internal/session"
)

// DefaultConflictRetries is how many times a review is recomputed after
// losing a version race before giving up.
const DefaultConflictRetries = 3

type AddStatus string

const (
	AddStatusCreated       AddStatus = "created"
	AddStatusAlreadyExists AddStatus = "already_exists"
)

// AddRequest asks for a flashcard linking a user to a piece of content.
type AddRequest struct {
	UserID    string
	ContentID string
	Front     string
	Back      string
}

// AddResult distinguishes a fresh card from one the user already had.
type AddResult struct {
	Status    AddStatus
	Message   string
	Flashcard *models.Flashcard
}

// ReviewRequest is one graded review, optionally inside a session.
type ReviewRequest struct {
	FlashcardID int64
	Grade       grade.Input
	KeepInQueue bool
	SessionID   string
	TimeSeconds float64
	Now         time.Time
}

// ReviewResult is the persisted outcome of a review.
type ReviewResult struct {
	Flashcard  models.Flashcard    `json:"flashcard"`
	Review     models.ReviewEvent  `json:"review"`
	Session    *session.Snapshot   `json:"session,omitempty"`
	Transition *session.Transition `json:"transition,omitempty"`
}

// FlashcardService handles flashcard-related business logic
type FlashcardService interface {
	AddFlashcard(ctx context.Context, req AddRequest) (*AddResult, error)
	Flashcards(ctx context.Context, userID string) ([]models.Flashcard, error)
	DueFlashcards(ctx context.Context, userID string, now time.Time) ([]models.Flashcard, error)
	ReviewFlashcard(ctx context.Context, req ReviewRequest) (*ReviewResult, error)
	ReviewHistory(ctx context.Context, flashcardID int64) ([]models.ReviewEvent, error)
}

type flashcardService struct {
	repo      repository.FlashcardRepository
	scheduler *flashcard.Scheduler
	sessions  *session.Manager
	retries   int
	now       func() time.Time
}

// NewFlashcardService creates a new FlashcardService. sessions may be nil, in
// which case reviews carrying a session id are rejected.
func NewFlashcardService(repo repository.FlashcardRepository, scheduler *flashcard.Scheduler, sessions *session.Manager, conflictRetries int) FlashcardService {
	if conflictRetries < 1 {
		conflictRetries = DefaultConflictRetries
	}
	return &flashcardService{
		repo:      repo,
		scheduler: scheduler,
		sessions:  sessions,
		retries:   conflictRetries,
		now:       time.Now,
	}
}

func (s *flashcardService) AddFlashcard(ctx context.Context, req AddRequest) (*AddResult, error) {
	log := logger.FromContext(ctx)
	log.Debug("adding flashcard: user_id=%s, content_id=%s", req.UserID, req.ContentID)

	userID := strings.TrimSpace(req.UserID)
	contentID := strings.TrimSpace(req.ContentID)
	if userID == "" {
		return nil, errors.NewValidationError("userId", "is required")
	}
	if contentID == "" {
		return nil, errors.NewValidationError("contentId", "is required")
	}

	card := s.scheduler.NewCard(userID, contentID, s.now())
	card.Front = req.Front
	card.Back = req.Back

	stored, err := s.repo.Insert(ctx, card)
	if err != nil {
		if stderrors.Is(err, repository.ErrDuplicate) {
			log.Info("flashcard already exists: user_id=%s, content_id=%s", userID, contentID)
			return &AddResult{Status: AddStatusAlreadyExists, Message: "Flashcard already exists"}, nil
		}
		log.Error("failed to insert flashcard: %v", err)
		return nil, storeError(err)
	}

	log.Info("flashcard created: id=%d, user_id=%s", stored.ID, userID)
	return &AddResult{Status: AddStatusCreated, Message: "Flashcard added successfully", Flashcard: &stored}, nil
}

func (s *flashcardService) Flashcards(ctx context.Context, userID string) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx)
	log.Debug("listing flashcards: user_id=%s", userID)

	cards, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list flashcards: %v", err)
		return nil, storeError(err)
	}
	return cards, nil
}

func (s *flashcardService) DueFlashcards(ctx context.Context, userID string, now time.Time) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx)
	if now.IsZero() {
		now = s.now()
	}
	log.Debug("getting due flashcards: user_id=%s", userID)

	cards, err := s.repo.DueForUser(ctx, userID, now)
	if err != nil {
		log.Error("failed to get due flashcards: %v", err)
		return nil, storeError(err)
	}
	return cards, nil
}

func (s *flashcardService) ReviewFlashcard(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	log := logger.FromContext(ctx).WithField("flashcard_id", req.FlashcardID)

	q, err := grade.Map(req.Grade)
	if err != nil {
		log.Debug("rejected grade: %v", err)
		return nil, errors.NewInvalidGradeError(err)
	}
	if req.TimeSeconds < 0 {
		return nil, errors.NewValidationError("timeSeconds", "must not be negative")
	}
	now := req.Now
	if now.IsZero() {
		now = s.now()
	}
	log.Debug("reviewing flashcard: quality=%d, keep_in_queue=%v, session=%q", q, req.KeepInQueue, req.SessionID)

	if req.SessionID != "" {
		if s.sessions == nil {
			return nil, errors.NewNotFoundError("session", req.SessionID)
		}
		if err := s.sessions.Check(req.SessionID, req.FlashcardID); err != nil {
			return nil, sessionError(err, req.SessionID, req.FlashcardID)
		}
	}

	var (
		updated models.Flashcard
		event   models.ReviewEvent
		stored  bool
	)
	for attempt := 1; attempt <= s.retries; attempt++ {
		card, err := s.repo.Get(ctx, req.FlashcardID)
		if err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, errors.NewNotFoundError("flashcard", req.FlashcardID)
			}
			log.Error("failed to load flashcard: %v", err)
			return nil, storeError(err)
		}

		next, ev, err := s.scheduler.ApplyReview(*card, q, now)
		if err != nil {
			return nil, errors.NewInvalidGradeError(err)
		}
		ev.TimeSeconds = req.TimeSeconds

		ev, err = s.repo.ApplyReview(ctx, next, card.Version, ev)
		if err == nil {
			next.Version = card.Version + 1
			updated, event, stored = next, ev, true
			break
		}
		switch {
		case stderrors.Is(err, repository.ErrConflict):
			log.Warn("review lost a version race (attempt %d/%d)", attempt, s.retries)
			continue
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NewNotFoundError("flashcard", req.FlashcardID)
		default:
			log.Error("failed to persist review: %v", err)
			return nil, storeError(err)
		}
	}
	if !stored {
		return nil, errors.NewPersistenceConflictError("flashcard", req.FlashcardID, repository.ErrConflict)
	}

	log.Info("review stored: quality=%d, interval=%d days, ease=%.2f, due=%s",
		q, updated.IntervalDays, updated.EaseFactor, updated.DueAt.Format(time.DateOnly))

	result := &ReviewResult{Flashcard: updated, Review: event}
	if req.SessionID != "" {
		snap, tr, err := s.sessions.Apply(req.SessionID, req.FlashcardID, q.Passed(), req.KeepInQueue)
		if err != nil {
			// The review is stored; only the queue could not follow.
			log.Warn("session %s did not advance: %v", req.SessionID, err)
			return result, nil
		}
		result.Session = &snap
		result.Transition = &tr
	}
	return result, nil
}

func (s *flashcardService) ReviewHistory(ctx context.Context, flashcardID int64) ([]models.ReviewEvent, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting review history: flashcard_id=%d", flashcardID)

	if _, err := s.repo.Get(ctx, flashcardID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NewNotFoundError("flashcard", flashcardID)
		}
		return nil, storeError(err)
	}

	events, err := s.repo.ReviewHistory(ctx, flashcardID)
	if err != nil {
		log.Error("failed to get review history: %v", err)
		return nil, storeError(err)
	}
	return events, nil
}

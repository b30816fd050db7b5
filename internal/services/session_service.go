package services

import (
	"context"
	"strings"
	"time"

	"github.com/vytor/slangflash/internal/errors"
	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/repository"
	"github.com/vytor/slangflash/internal/session"
)

// SessionService opens and tracks review sessions over a user's due set.
type SessionService interface {
	StartSession(ctx context.Context, userID string, now time.Time) (session.Snapshot, error)
	GetSession(ctx context.Context, id string) (session.Snapshot, error)
	EndSession(ctx context.Context, id string) error
}

type sessionService struct {
	repo     repository.FlashcardRepository
	sessions *session.Manager
	now      func() time.Time
}

// NewSessionService creates a new SessionService
func NewSessionService(repo repository.FlashcardRepository, sessions *session.Manager) SessionService {
	return &sessionService{repo: repo, sessions: sessions, now: time.Now}
}

func (s *sessionService) StartSession(ctx context.Context, userID string, now time.Time) (session.Snapshot, error) {
	log := logger.FromContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return session.Snapshot{}, errors.NewValidationError("userId", "is required")
	}
	if now.IsZero() {
		now = s.now()
	}

	due, err := s.repo.DueForUser(ctx, userID, now)
	if err != nil {
		log.Error("failed to load due set: %v", err)
		return session.Snapshot{}, storeError(err)
	}
	ids := make([]int64, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}

	snap := s.sessions.Start(userID, ids)
	log.Info("session started: id=%s, user_id=%s, cards=%d", snap.ID, userID, snap.Total)
	return snap, nil
}

func (s *sessionService) GetSession(ctx context.Context, id string) (session.Snapshot, error) {
	snap, err := s.sessions.Get(id)
	if err != nil {
		logger.FromContext(ctx).Debug("session lookup failed: id=%s: %v", id, err)
		return session.Snapshot{}, sessionError(err, id, 0)
	}
	return snap, nil
}

func (s *sessionService) EndSession(ctx context.Context, id string) error {
	if err := s.sessions.End(id); err != nil {
		return sessionError(err, id, 0)
	}
	logger.FromContext(ctx).Info("session ended: id=%s", id)
	return nil
}

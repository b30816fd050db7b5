package services

import (
	"context"
	"time"

	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/models"
	"github.com/vytor/slangflash/internal/repository"
)

// StatsService handles statistics-related business logic
type StatsService interface {
	GetFlashcardStats(ctx context.Context, userID string, now time.Time) (*models.FlashcardStat, error)
}

type statsService struct {
	repo repository.FlashcardRepository
	now  func() time.Time
}

// NewStatsService creates a new StatsService
func NewStatsService(repo repository.FlashcardRepository) StatsService {
	return &statsService{repo: repo, now: time.Now}
}

func (s *statsService) GetFlashcardStats(ctx context.Context, userID string, now time.Time) (*models.FlashcardStat, error) {
	log := logger.FromContext(ctx)
	log.Debug("getting flashcard stats: user_id=%s", userID)
	if now.IsZero() {
		now = s.now()
	}

	stats, err := s.repo.Stats(ctx, userID, now)
	if err != nil {
		log.Error("failed to get flashcard stats: %v", err)
		return nil, storeError(err)
	}
	return stats, nil
}

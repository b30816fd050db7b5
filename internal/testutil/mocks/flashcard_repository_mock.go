package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/vytor/slangflash/internal/models"
)

// MockFlashcardRepository is a mock implementation of repository.FlashcardRepository
type MockFlashcardRepository struct {
	mock.Mock
}

func (m *MockFlashcardRepository) Insert(ctx context.Context, flashcard models.Flashcard) (models.Flashcard, error) {
	args := m.Called(ctx, flashcard)
	return args.Get(0).(models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) Get(ctx context.Context, id int64) (*models.Flashcard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) ListByUser(ctx context.Context, userID string) ([]models.Flashcard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) DueForUser(ctx context.Context, userID string, now time.Time) ([]models.Flashcard, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Flashcard), args.Error(1)
}

func (m *MockFlashcardRepository) ApplyReview(ctx context.Context, flashcard models.Flashcard, expectedVersion int64, event models.ReviewEvent) (models.ReviewEvent, error) {
	args := m.Called(ctx, flashcard, expectedVersion, event)
	return args.Get(0).(models.ReviewEvent), args.Error(1)
}

func (m *MockFlashcardRepository) ReviewHistory(ctx context.Context, flashcardID int64) ([]models.ReviewEvent, error) {
	args := m.Called(ctx, flashcardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReviewEvent), args.Error(1)
}

func (m *MockFlashcardRepository) Stats(ctx context.Context, userID string, now time.Time) (*models.FlashcardStat, error) {
	args := m.Called(ctx, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlashcardStat), args.Error(1)
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vytor/slangflash/internal/models"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a user already has a card for the content.
	ErrDuplicate = errors.New("record already exists")
	// ErrConflict is returned when the record changed since it was read.
	ErrConflict = errors.New("record modified concurrently")
	// ErrTransient is returned when storage is busy or unreachable; safe to retry.
	ErrTransient = errors.New("storage temporarily unavailable")
)

// FlashcardRepository handles flashcard data access
type FlashcardRepository interface {
	Insert(ctx context.Context, flashcard models.Flashcard) (models.Flashcard, error)
	Get(ctx context.Context, id int64) (*models.Flashcard, error)
	ListByUser(ctx context.Context, userID string) ([]models.Flashcard, error)
	DueForUser(ctx context.Context, userID string, now time.Time) ([]models.Flashcard, error)
	// ApplyReview stores the updated card and appends the event in one
	// transaction, provided the stored version still equals expectedVersion.
	ApplyReview(ctx context.Context, flashcard models.Flashcard, expectedVersion int64, event models.ReviewEvent) (models.ReviewEvent, error)
	ReviewHistory(ctx context.Context, flashcardID int64) ([]models.ReviewEvent, error)
	Stats(ctx context.Context, userID string, now time.Time) (*models.FlashcardStat, error)
}

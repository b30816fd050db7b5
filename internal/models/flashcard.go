package models

import "time"

// Flashcard is one user's study record for one piece of content.
type Flashcard struct {
	ID             int64      `json:"id"`
	UserID         string     `json:"userId"`
	ContentID      string     `json:"contentId"`
	Front          string     `json:"front,omitempty"`
	Back           string     `json:"back,omitempty"`
	EaseFactor     float64    `json:"easeFactor"`
	IntervalDays   int        `json:"intervalDays"`
	Repetitions    int        `json:"repetitions"`
	DueAt          time.Time  `json:"dueAt"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	Version        int64      `json:"-"`
}

// IsDue reports whether the card is eligible for review at now.
func (f Flashcard) IsDue(now time.Time) bool {
	return !f.DueAt.After(now)
}

// ReviewEvent is the append-only record of one graded review and the
// schedule it produced.
type ReviewEvent struct {
	ID           int64     `json:"id"`
	FlashcardID  int64     `json:"flashcardId"`
	Quality      int       `json:"quality"`
	TimeSeconds  float64   `json:"timeSeconds,omitempty"`
	ReviewedAt   time.Time `json:"reviewedAt"`
	IntervalDays int       `json:"intervalDays"`
	EaseFactor   float64   `json:"easeFactor"`
	Repetitions  int       `json:"repetitions"`
	DueAt        time.Time `json:"dueAt"`
}

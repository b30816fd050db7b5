package flashcard

import (
	"fmt"
	"math"
	"time"

	"github.com/vytor/slangflash/internal/grade"
	"github.com/vytor/slangflash/internal/models"
)

const (
	DefaultInitialEase     = 2.5
	DefaultMinEase         = 1.3
	DefaultFailPenalty     = 0.2
	DefaultMaxIntervalDays = 36500
)

// Params holds the tunable constants of the SM-2 variant.
type Params struct {
	InitialEase     float64
	MinEase         float64
	FailPenalty     float64
	MaxIntervalDays int
}

// DefaultParams returns the standard SM-2 constants.
func DefaultParams() Params {
	return Params{
		InitialEase:     DefaultInitialEase,
		MinEase:         DefaultMinEase,
		FailPenalty:     DefaultFailPenalty,
		MaxIntervalDays: DefaultMaxIntervalDays,
	}
}

// Scheduler computes review schedules. Due dates fall on day boundaries in loc.
type Scheduler struct {
	params Params
	loc    *time.Location
}

// NewScheduler creates a Scheduler. A nil loc means UTC.
func NewScheduler(params Params, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if params.MinEase <= 0 {
		params.MinEase = DefaultMinEase
	}
	if params.InitialEase < params.MinEase {
		params.InitialEase = math.Max(DefaultInitialEase, params.MinEase)
	}
	if params.FailPenalty < 0 {
		params.FailPenalty = 0
	}
	if params.MaxIntervalDays <= 0 {
		params.MaxIntervalDays = DefaultMaxIntervalDays
	}
	return &Scheduler{params: params, loc: loc}
}

// Params returns the effective parameters.
func (s *Scheduler) Params() Params {
	return s.params
}

// NewCard returns an unscheduled card that is due immediately.
func (s *Scheduler) NewCard(userID, contentID string, now time.Time) models.Flashcard {
	return models.Flashcard{
		UserID:       userID,
		ContentID:    contentID,
		EaseFactor:   s.params.InitialEase,
		IntervalDays: 0,
		Repetitions:  0,
		DueAt:        now,
		CreatedAt:    now,
	}
}

// StartOfDay truncates t to midnight in the scheduler's location.
func (s *Scheduler) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// ApplyReview updates the card's scheduling state for a review graded q at now
// and returns the updated card together with the review event to append.
//
// q < 3 resets repetitions and schedules the card for the next day.
// q >= 3 grows the interval 1, 6, then interval*ease.
func (s *Scheduler) ApplyReview(card models.Flashcard, q grade.Quality, now time.Time) (models.Flashcard, models.ReviewEvent, error) {
	if !q.Valid() {
		return card, models.ReviewEvent{}, &grade.InvalidGradeError{Input: int(q), Reason: "outside canonical range"}
	}

	ef := card.EaseFactor
	if ef < s.params.MinEase {
		ef = s.params.MinEase
	}

	var interval int
	if q.Passed() {
		card.Repetitions++
		switch card.Repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Round(float64(card.IntervalDays) * ef))
		}
		d := float64(grade.MaxQuality - q)
		ef = ef + (0.1 - d*(0.08+d*0.02))
	} else {
		card.Repetitions = 0
		interval = 1
		ef -= s.params.FailPenalty
	}

	if ef < s.params.MinEase {
		ef = s.params.MinEase
	}
	if interval < 1 {
		interval = 1
	}
	if interval > s.params.MaxIntervalDays {
		interval = s.params.MaxIntervalDays
	}

	due := s.StartOfDay(now).AddDate(0, 0, interval)
	// A passing review never pulls the due date back or leaves it in place.
	if q.Passed() && !card.DueAt.IsZero() && !due.After(card.DueAt) {
		due = s.StartOfDay(card.DueAt).AddDate(0, 0, 1)
	}

	reviewed := now
	card.EaseFactor = ef
	card.IntervalDays = interval
	card.DueAt = due
	card.LastReviewedAt = &reviewed

	event := models.ReviewEvent{
		FlashcardID:  card.ID,
		Quality:      int(q),
		ReviewedAt:   now,
		IntervalDays: interval,
		EaseFactor:   ef,
		Repetitions:  card.Repetitions,
		DueAt:        due,
	}
	return card, event, nil
}

// String is used in logs.
func (p Params) String() string {
	return fmt.Sprintf("initial_ease=%.2f min_ease=%.2f fail_penalty=%.2f max_interval=%d",
		p.InitialEase, p.MinEase, p.FailPenalty, p.MaxIntervalDays)
}

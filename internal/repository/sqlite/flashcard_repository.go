package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/vytor/slangflash/internal/logger"
	"github.com/vytor/slangflash/internal/models"
	"github.com/vytor/slangflash/internal/repository"
)

var flashcardColumns = []string{
	"id", "user_id", "content_id", "front", "back", "ease_factor", "interval_days",
	"repetitions", "due_at", "last_reviewed_at", "created_at", "version",
}

type flashcardRepository struct {
	db *sql.DB
}

// NewFlashcardRepository creates a new FlashcardRepository implementation
func NewFlashcardRepository(db *sql.DB) repository.FlashcardRepository {
	return &flashcardRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlashcard(row rowScanner) (models.Flashcard, error) {
	var c models.Flashcard
	var lastReviewed sql.NullTime
	err := row.Scan(&c.ID, &c.UserID, &c.ContentID, &c.Front, &c.Back, &c.EaseFactor, &c.IntervalDays,
		&c.Repetitions, &c.DueAt, &lastReviewed, &c.CreatedAt, &c.Version)
	if err != nil {
		return c, err
	}
	if lastReviewed.Valid {
		t := lastReviewed.Time
		c.LastReviewedAt = &t
	}
	return c, nil
}

func (r *flashcardRepository) Insert(ctx context.Context, c models.Flashcard) (models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("inserting flashcard: user_id=%s, content_id=%s", c.UserID, c.ContentID)

	res, err := r.db.ExecContext(ctx, `
INSERT INTO flashcards (user_id, content_id, front, back, ease_factor, interval_days, repetitions, due_at, last_reviewed_at, created_at, version)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
`, c.UserID, c.ContentID, c.Front, c.Back, c.EaseFactor, c.IntervalDays, c.Repetitions,
		formatTime(c.DueAt), nullTime(c.LastReviewedAt), formatTime(c.CreatedAt))
	if err != nil {
		err = classify(err)
		if errors.Is(err, repository.ErrDuplicate) {
			log.Debug("flashcard already exists: user_id=%s, content_id=%s", c.UserID, c.ContentID)
		} else {
			log.Error("failed to insert flashcard: %v", err)
		}
		return c, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Error("failed to get flashcard id: %v", err)
		return c, err
	}
	c.ID = id
	c.Version = 0
	log.Debug("flashcard inserted: id=%d", id)
	return c, nil
}

func (r *flashcardRepository) Get(ctx context.Context, id int64) (*models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("getting flashcard: id=%d", id)

	query, args, err := sqlBuilder.Select(flashcardColumns...).
		From("flashcards").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	c, err := scanFlashcard(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("flashcard not found: id=%d", id)
		return nil, repository.ErrNotFound
	}
	if err != nil {
		log.Error("failed to get flashcard: %v", err)
		return nil, classify(err)
	}
	return &c, nil
}

func (r *flashcardRepository) ListByUser(ctx context.Context, userID string) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("listing flashcards: user_id=%s", userID)

	query := sqlBuilder.Select(flashcardColumns...).
		From("flashcards").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at ASC", "id ASC")
	return r.list(ctx, log, query)
}

func (r *flashcardRepository) DueForUser(ctx context.Context, userID string, now time.Time) ([]models.Flashcard, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("fetching due flashcards: user_id=%s, now=%s", userID, now.Format(time.RFC3339))

	query := sqlBuilder.Select(flashcardColumns...).
		From("flashcards").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.LtOrEq{"due_at": formatTime(now)}).
		OrderBy("due_at ASC", "created_at ASC", "id ASC")
	cards, err := r.list(ctx, log, query)
	if err == nil {
		log.Debug("found %d due flashcards", len(cards))
	}
	return cards, err
}

func (r *flashcardRepository) list(ctx context.Context, log *logger.Logger, query squirrel.SelectBuilder) ([]models.Flashcard, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to query flashcards: %v", err)
		return nil, classify(err)
	}
	defer rows.Close()

	cards := []models.Flashcard{}
	for rows.Next() {
		c, err := scanFlashcard(rows)
		if err != nil {
			log.Error("failed to scan flashcard row: %v", err)
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, classify(rows.Err())
}

func (r *flashcardRepository) ApplyReview(ctx context.Context, c models.Flashcard, expectedVersion int64, e models.ReviewEvent) (models.ReviewEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("applying review: id=%d, version=%d, interval=%d, ease=%.2f", c.ID, expectedVersion, c.IntervalDays, c.EaseFactor)

	err := tx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE flashcards
SET ease_factor = ?, interval_days = ?, repetitions = ?, due_at = ?, last_reviewed_at = ?, version = version + 1
WHERE id = ? AND version = ?
`, c.EaseFactor, c.IntervalDays, c.Repetitions, formatTime(c.DueAt), nullTime(c.LastReviewedAt), c.ID, expectedVersion)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM flashcards WHERE id = ?`, c.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return repository.ErrNotFound
			}
			if err != nil {
				return err
			}
			return repository.ErrConflict
		}

		res, err = tx.ExecContext(ctx, `
INSERT INTO review_events (flashcard_id, quality, time_seconds, reviewed_at, interval_days, ease_factor, repetitions, due_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, c.ID, e.Quality, e.TimeSeconds, formatTime(e.ReviewedAt), e.IntervalDays, e.EaseFactor, e.Repetitions, formatTime(e.DueAt))
		if err != nil {
			return err
		}
		e.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			log.Warn("version conflict on flashcard %d (expected version %d)", c.ID, expectedVersion)
		case errors.Is(err, repository.ErrNotFound):
			log.Debug("flashcard not found: id=%d", c.ID)
		default:
			log.Error("failed to apply review: %v", err)
		}
		return models.ReviewEvent{}, classify(err)
	}

	e.FlashcardID = c.ID
	log.Debug("review applied: flashcard_id=%d, event_id=%d", c.ID, e.ID)
	return e, nil
}

func (r *flashcardRepository) ReviewHistory(ctx context.Context, flashcardID int64) ([]models.ReviewEvent, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("fetching review history: flashcard_id=%d", flashcardID)

	stmt, args, err := sqlBuilder.Select(
		"id", "flashcard_id", "quality", "time_seconds", "reviewed_at",
		"interval_days", "ease_factor", "repetitions", "due_at",
	).From("review_events").
		Where(squirrel.Eq{"flashcard_id": flashcardID}).
		OrderBy("reviewed_at ASC", "id ASC").
		ToSql()
	if err != nil {
		log.Error("failed to build query: %v", err)
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		log.Error("failed to query review history: %v", err)
		return nil, classify(err)
	}
	defer rows.Close()

	events := []models.ReviewEvent{}
	for rows.Next() {
		var e models.ReviewEvent
		if err := rows.Scan(&e.ID, &e.FlashcardID, &e.Quality, &e.TimeSeconds, &e.ReviewedAt,
			&e.IntervalDays, &e.EaseFactor, &e.Repetitions, &e.DueAt); err != nil {
			log.Error("failed to scan review event row: %v", err)
			return nil, err
		}
		events = append(events, e)
	}
	return events, classify(rows.Err())
}

func (r *flashcardRepository) Stats(ctx context.Context, userID string, now time.Time) (*models.FlashcardStat, error) {
	log := logger.FromContext(ctx).WithPrefix("flashcard_repo")
	log.Debug("fetching flashcard stats: user_id=%s", userID)

	var stat models.FlashcardStat
	err := r.db.QueryRowContext(ctx, `
SELECT
    COUNT(*) AS total_cards,
    COALESCE(SUM(CASE WHEN f.interval_days > 30 AND f.ease_factor >= 2.5 THEN 1 ELSE 0 END), 0) AS cards_mastered,
    COALESCE(SUM(CASE WHEN f.ease_factor < 2.0
        AND (SELECT COUNT(*) FROM review_events e WHERE e.flashcard_id = f.id) >= 3 THEN 1 ELSE 0 END), 0) AS cards_struggling,
    COALESCE(SUM(CASE WHEN f.due_at <= ? THEN 1 ELSE 0 END), 0) AS cards_due,
    COALESCE(SUM(CASE WHEN f.due_at > ? AND f.due_at <= ? THEN 1 ELSE 0 END), 0) AS cards_due_soon,
    COALESCE(AVG(f.ease_factor), 0) AS avg_ease_factor,
    COALESCE(AVG(f.interval_days), 0) AS avg_interval_days
FROM flashcards f
WHERE f.user_id = ?
`, formatTime(now), formatTime(now), formatTime(now.AddDate(0, 0, 7)), userID).Scan(
		&stat.TotalCards,
		&stat.CardsMastered,
		&stat.CardsStruggling,
		&stat.CardsDue,
		&stat.CardsDueSoon,
		&stat.AvgEaseFactor,
		&stat.AvgIntervalDays,
	)
	if err != nil {
		log.Error("failed to get flashcard stats: %v", err)
		return nil, classify(err)
	}

	var correct int
	err = r.db.QueryRowContext(ctx, `
SELECT
    COUNT(*) AS total_reviews,
    COALESCE(SUM(CASE WHEN e.quality >= 3 THEN 1 ELSE 0 END), 0) AS correct_reviews,
    COALESCE(AVG(NULLIF(e.time_seconds, 0)), 0) AS avg_time_seconds
FROM review_events e
JOIN flashcards f ON f.id = e.flashcard_id
WHERE f.user_id = ?
`, userID).Scan(&stat.TotalReviews, &correct, &stat.AvgTimeSeconds)
	if err != nil {
		log.Error("failed to get review stats: %v", err)
		return nil, classify(err)
	}
	if stat.TotalReviews > 0 {
		stat.OverallAccuracy = math.Round(1000*float64(correct)/float64(stat.TotalReviews)) / 10
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT substr(e.reviewed_at, 1, 10) AS review_day
FROM review_events e
JOIN flashcards f ON f.id = e.flashcard_id
WHERE f.user_id = ?
`, userID)
	if err != nil {
		log.Error("failed to query review days: %v", err)
		return nil, classify(err)
	}
	defer rows.Close()

	days := make(map[string]bool)
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			log.Error("failed to scan review day: %v", err)
			return nil, err
		}
		days[day] = true
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	stat.StreakDays = streakDays(days, now.UTC())

	return &stat, nil
}

// streakDays counts consecutive review days ending today or yesterday.
func streakDays(days map[string]bool, today time.Time) int {
	const layout = "2006-01-02"
	check := today
	if !days[check.Format(layout)] {
		check = check.AddDate(0, 0, -1)
		if !days[check.Format(layout)] {
			return 0
		}
	}

	streak := 0
	for days[check.Format(layout)] {
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak
}

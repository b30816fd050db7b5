package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/slangflash/internal/api"
	"github.com/vytor/slangflash/internal/flashcard"
	"github.com/vytor/slangflash/internal/models"
	"github.com/vytor/slangflash/internal/repository/sqlite"
	"github.com/vytor/slangflash/internal/services"
	"github.com/vytor/slangflash/internal/session"
	"github.com/vytor/slangflash/internal/testutil"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db := testutil.NewTestDB(t)
	repo := sqlite.NewFlashcardRepository(db)
	sessions := session.NewManager(time.Hour)
	scheduler := flashcard.NewScheduler(flashcard.DefaultParams(), time.UTC)

	s := &api.Server{
		FlashcardService: services.NewFlashcardService(repo, scheduler, sessions, 3),
		SessionService:   services.NewSessionService(repo, sessions),
		StatsService:     services.NewStatsService(repo),
		DB:               db,
		RequestTimeout:   5 * time.Second,
	}
	return s.Routes()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
}

type addResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Data    models.Flashcard `json:"data"`
}

func addCard(t *testing.T, h http.Handler, userID, contentID string) models.Flashcard {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/flashcard/addFlashcard", map[string]string{
		"userId":    userID,
		"contentId": contentID,
		"front":     "lowkey",
		"back":      "secretly; modestly",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[addResponse](t, rec).Data
}

func TestAddFlashcard(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/flashcard/addFlashcard", map[string]string{"userId": "u1", "contentId": "slang-1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	res := decode[addResponse](t, rec)
	assert.True(t, res.Success)
	assert.Equal(t, "Flashcard added successfully", res.Message)
	assert.Equal(t, 2.5, res.Data.EaseFactor)
	assert.Equal(t, 0, res.Data.IntervalDays)
	assert.Equal(t, 0, res.Data.Repetitions)

	rec = do(t, h, http.MethodPost, "/api/flashcard/addFlashcard", map[string]string{"userId": "u1", "contentId": "slang-1"})
	require.Equal(t, http.StatusConflict, rec.Code)
	dup := decode[addResponse](t, rec)
	assert.False(t, dup.Success)
	assert.Equal(t, "Flashcard already exists", dup.Message)
}

func TestAddFlashcard_Validation(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/flashcard/addFlashcard", map[string]string{"userId": "u1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorResponse](t, rec).Error.Code)

	rec = do(t, h, http.MethodPost, "/api/flashcard/addFlashcard", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "BAD_REQUEST", decode[errorResponse](t, rec).Error.Code)
}

func TestGetFlashcardsAndDue(t *testing.T) {
	h := newTestServer(t)
	addCard(t, h, "u1", "a")
	addCard(t, h, "u1", "b")
	addCard(t, h, "u2", "c")

	rec := do(t, h, http.MethodGet, "/api/flashcard/getFlashcards/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Flashcard](t, rec), 2)

	rec = do(t, h, http.MethodGet, "/api/flashcard/getDueFlashcards/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Flashcard](t, rec), 2)

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	rec = do(t, h, http.MethodGet, "/api/flashcard/getDueFlashcards/u1?now="+past, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.Flashcard](t, rec))

	rec = do(t, h, http.MethodGet, "/api/flashcard/getDueFlashcards/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/flashcard/getDueFlashcards/u1?now=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateFlashcardReview_GradeShapes(t *testing.T) {
	h := newTestServer(t)

	cases := []struct {
		body    string
		quality int
	}{
		{`{"quality": 5}`, 5},
		{`{"quality": "4"}`, 4},
		{`{"quality": "Hard"}`, 3},
		{`{"quality": true}`, 0},
		{`{"isHard": false}`, 5},
		{`{"quality": 9}`, 5},
	}
	for i, tc := range cases {
		t.Run(tc.body, func(t *testing.T) {
			card := addCard(t, h, "u1", fmt.Sprintf("shape-%d", i))
			rec := do(t, h, http.MethodPut, fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", card.ID), tc.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			res := decode[services.ReviewResult](t, rec)
			assert.Equal(t, tc.quality, res.Review.Quality)
			assert.Equal(t, 1, res.Flashcard.IntervalDays)
			assert.NotNil(t, res.Flashcard.LastReviewedAt)
		})
	}
}

func TestUpdateFlashcardReview_InvalidGrade(t *testing.T) {
	h := newTestServer(t)
	card := addCard(t, h, "u1", "a")
	path := fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", card.ID)

	for _, body := range []string{`{"quality": 2.5}`, `{"quality": "meh"}`, `{}`, `{"quality": 4, "isHard": true}`, `{"quality": [1]}`} {
		rec := do(t, h, http.MethodPut, path, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "INVALID_GRADE", decode[errorResponse](t, rec).Error.Code, body)
	}

	// Nothing was stored.
	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/flashcard/getFlashcardHistory/%d", card.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]models.ReviewEvent](t, rec))
}

func TestUpdateFlashcardReview_UnknownCard(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPut, "/api/flashcard/updateFlashcardReview/999", `{"quality": 4}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Error.Code)

	rec = do(t, h, http.MethodPut, "/api/flashcard/updateFlashcardReview/abc", `{"quality": 4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReviewSequence_ScenarioA(t *testing.T) {
	h := newTestServer(t)
	card := addCard(t, h, "u1", "a")
	path := fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", card.ID)
	day0 := time.Now().UTC()

	wantIntervals := []int{1, 6, 16}
	wantEase := []float64{2.6, 2.7, 2.8}
	for i := range wantIntervals {
		now := day0.AddDate(0, 0, []int{0, 1, 7}[i])
		rec := do(t, h, http.MethodPut, path, map[string]any{"quality": 5, "now": now})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res := decode[services.ReviewResult](t, rec)
		assert.Equal(t, wantIntervals[i], res.Flashcard.IntervalDays)
		assert.InDelta(t, wantEase[i], res.Flashcard.EaseFactor, 1e-9)
		assert.Equal(t, i+1, res.Flashcard.Repetitions)
	}

	rec := do(t, h, http.MethodGet, fmt.Sprintf("/api/flashcard/getFlashcardHistory/%d", card.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.ReviewEvent](t, rec), 3)
}

func TestSessionFlow_ScenarioD(t *testing.T) {
	h := newTestServer(t)
	c1 := addCard(t, h, "u1", "c1")
	c2 := addCard(t, h, "u1", "c2")
	c3 := addCard(t, h, "u1", "c3")

	rec := do(t, h, http.MethodPost, "/api/flashcard/sessions", map[string]any{"userId": "u1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	snap := decode[session.Snapshot](t, rec)
	require.Equal(t, []int64{c1.ID, c2.ID, c3.ID}, snap.Queue)

	review := func(id int64, body map[string]any) services.ReviewResult {
		body["sessionId"] = snap.ID
		rec := do(t, h, http.MethodPut, fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", id), body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode[services.ReviewResult](t, rec)
	}

	res := review(c1.ID, map[string]any{"isHard": true, "keepInQueue": true})
	assert.Equal(t, []int64{c2.ID, c3.ID, c1.ID}, res.Session.Queue)
	res = review(c2.ID, map[string]any{"isHard": false})
	assert.Equal(t, []int64{c3.ID, c1.ID}, res.Session.Queue)
	res = review(c3.ID, map[string]any{"isHard": false})
	assert.Equal(t, []int64{c1.ID}, res.Session.Queue)
	res = review(c1.ID, map[string]any{"isHard": false})
	assert.Empty(t, res.Session.Queue)
	assert.Equal(t, session.StateComplete, res.Session.State)
	assert.Equal(t, session.StateComplete, res.Transition.State)

	rec = do(t, h, http.MethodPut, fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", c1.ID),
		map[string]any{"quality": 5, "sessionId": snap.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "SESSION_COMPLETE", decode[errorResponse](t, rec).Error.Code)

	rec = do(t, h, http.MethodGet, "/api/flashcard/sessions/"+snap.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/flashcard/sessions/"+snap.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/flashcard/sessions/"+snap.ID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(t)
	card := addCard(t, h, "u1", "a")
	addCard(t, h, "u1", "b")

	rec := do(t, h, http.MethodPut, fmt.Sprintf("/api/flashcard/updateFlashcardReview/%d", card.ID), `{"quality": "good"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/flashcard/stats/u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stat := decode[models.FlashcardStat](t, rec)
	assert.Equal(t, 2, stat.TotalCards)
	assert.Equal(t, 1, stat.TotalReviews)
	assert.Equal(t, 1, stat.CardsDue)
	assert.Equal(t, 100.0, stat.OverallAccuracy)
	assert.Equal(t, 1, stat.StreakDays)
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("down") }

func TestHealthEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	down := (&api.Server{DB: failingPinger{}}).Routes()
	rec = do(t, down, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnknownRouteIsJSON(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/flashcard/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, rec).Error.Code)
}

func TestRateLimit(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := sqlite.NewFlashcardRepository(db)
	s := &api.Server{
		FlashcardService: services.NewFlashcardService(repo, flashcard.NewScheduler(flashcard.DefaultParams(), time.UTC), nil, 1),
		RateLimit:        2,
	}
	h := s.Routes()

	for i := 0; i < 2; i++ {
		rec := do(t, h, http.MethodGet, "/api/flashcard/getFlashcards/u1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, h, http.MethodGet, "/api/flashcard/getFlashcards/u1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

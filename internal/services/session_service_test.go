package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vytor/slangflash/internal/errors"
	"github.com/vytor/slangflash/internal/models"
	"github.com/vytor/slangflash/internal/repository"
	"github.com/vytor/slangflash/internal/services"
	"github.com/vytor/slangflash/internal/session"
	"github.com/vytor/slangflash/internal/testutil/mocks"
)

func TestStartSession_SnapshotsDueSet(t *testing.T) {
	repo := new(mocks.MockFlashcardRepository)
	svc := services.NewSessionService(repo, session.NewManager(time.Hour))
	ctx := context.Background()

	repo.On("DueForUser", ctx, "u1", reviewNow).
		Return([]models.Flashcard{*storedCard(3, 0), *storedCard(1, 0)}, nil)

	snap, err := svc.StartSession(ctx, "u1", reviewNow)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, session.StateActive, snap.State)
	assert.Equal(t, []int64{3, 1}, snap.Queue)
	assert.Equal(t, 2, snap.Total)

	got, err := svc.GetSession(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Queue, got.Queue)
}

func TestStartSession_EmptyDueSetIsComplete(t *testing.T) {
	repo := new(mocks.MockFlashcardRepository)
	svc := services.NewSessionService(repo, session.NewManager(time.Hour))
	ctx := context.Background()

	repo.On("DueForUser", ctx, "u1", reviewNow).Return([]models.Flashcard{}, nil)

	snap, err := svc.StartSession(ctx, "u1", reviewNow)
	require.NoError(t, err)
	assert.Equal(t, session.StateComplete, snap.State)
	assert.Empty(t, snap.Queue)
}

func TestStartSession_StoreFailure(t *testing.T) {
	repo := new(mocks.MockFlashcardRepository)
	svc := services.NewSessionService(repo, session.NewManager(time.Hour))
	ctx := context.Background()

	repo.On("DueForUser", ctx, "u1", reviewNow).Return(nil, repository.ErrTransient)

	_, err := svc.StartSession(ctx, "u1", reviewNow)
	requireAppError(t, err, apperrors.ErrCodeStoreUnavailable)
}

func TestSessionLifecycle_UnknownAndEnded(t *testing.T) {
	repo := new(mocks.MockFlashcardRepository)
	sessions := session.NewManager(time.Hour)
	svc := services.NewSessionService(repo, sessions)
	ctx := context.Background()

	_, err := svc.GetSession(ctx, "missing")
	requireAppError(t, err, apperrors.ErrCodeNotFound)

	snap := sessions.Start("u1", []int64{1})
	require.NoError(t, svc.EndSession(ctx, snap.ID))

	err = svc.EndSession(ctx, snap.ID)
	requireAppError(t, err, apperrors.ErrCodeNotFound)
}

func TestGetFlashcardStats(t *testing.T) {
	repo := new(mocks.MockFlashcardRepository)
	svc := services.NewStatsService(repo)
	ctx := context.Background()

	repo.On("Stats", ctx, "u1", reviewNow).Return(&models.FlashcardStat{TotalCards: 4, StreakDays: 2}, nil)

	stat, err := svc.GetFlashcardStats(ctx, "u1", reviewNow)
	require.NoError(t, err)
	assert.Equal(t, 4, stat.TotalCards)
	assert.Equal(t, 2, stat.StreakDays)
}

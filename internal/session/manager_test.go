package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/slangflash/internal/session"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newManager(ttl time.Duration) (*session.Manager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)}
	return session.NewManager(ttl, session.WithClock(clock.Now)), clock
}

func TestManager_StartAndApply(t *testing.T) {
	m, _ := newManager(time.Hour)

	snap := m.Start("user-1", []int64{1, 2, 3})
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, "user-1", snap.UserID)
	assert.Equal(t, []int64{1, 2, 3}, snap.Queue)
	assert.Equal(t, []int64{}, snap.Retired)
	assert.Equal(t, 3, snap.Total)
	assert.Equal(t, session.StateActive, snap.State)

	snap, tr, err := m.Apply(snap.ID, 1, true, true)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRequeued, tr.Outcome)
	assert.Equal(t, []int64{2, 3, 1}, snap.Queue)

	snap, tr, err = m.Apply(snap.ID, 2, true, false)
	require.NoError(t, err)
	assert.Equal(t, session.OutcomeRetired, tr.Outcome)
	assert.Equal(t, []int64{3, 1}, snap.Queue)
	assert.Equal(t, []int64{2}, snap.Retired)

	got, err := m.Get(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.Queue, got.Queue)
}

func TestManager_Check(t *testing.T) {
	m, _ := newManager(time.Hour)
	snap := m.Start("user-1", []int64{1})

	assert.NoError(t, m.Check(snap.ID, 1))
	assert.ErrorIs(t, m.Check(snap.ID, 2), session.ErrNotInSession)
	assert.ErrorIs(t, m.Check("missing", 1), session.ErrSessionNotFound)

	_, _, err := m.Apply(snap.ID, 1, true, false)
	require.NoError(t, err)
	assert.ErrorIs(t, m.Check(snap.ID, 1), session.ErrSessionComplete)
}

func TestManager_End(t *testing.T) {
	m, _ := newManager(time.Hour)
	snap := m.Start("user-1", []int64{1})

	require.NoError(t, m.End(snap.ID))
	assert.ErrorIs(t, m.End(snap.ID), session.ErrSessionNotFound)
	_, err := m.Get(snap.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestManager_ExpiresIdleSessions(t *testing.T) {
	m, clock := newManager(time.Hour)
	idle := m.Start("user-1", []int64{1})
	active := m.Start("user-2", []int64{2, 3})

	clock.t = clock.t.Add(50 * time.Minute)
	_, _, err := m.Apply(active.ID, 2, false, false)
	require.NoError(t, err)

	clock.t = clock.t.Add(20 * time.Minute)
	assert.Equal(t, 1, m.Sweep(clock.t))
	assert.Equal(t, 1, m.Len())

	_, err = m.Get(idle.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = m.Get(active.ID)
	assert.NoError(t, err)
}

func TestManager_LookupDropsExpiredSession(t *testing.T) {
	m, clock := newManager(time.Minute)
	snap := m.Start("user-1", []int64{1})

	clock.t = clock.t.Add(2 * time.Minute)
	_, err := m.Get(snap.ID)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())
}

func TestSweepJob_Run(t *testing.T) {
	m, clock := newManager(time.Minute)
	m.Start("user-1", []int64{1})
	clock.t = clock.t.Add(time.Hour)

	job := session.SweepJob{Manager: m}
	assert.Equal(t, "session-sweep", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 0, m.Len())
}

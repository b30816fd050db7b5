package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vytor/slangflash/internal/logger"
)

const DefaultTTL = 2 * time.Hour

// Snapshot is a read-only view of a session.
type Snapshot struct {
	ID        string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	State     State     `json:"state"`
	Queue     []int64   `json:"queue"`
	Retired   []int64   `json:"retired"`
	Total     int       `json:"total"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type entry struct {
	id       string
	userID   string
	queue    *Queue
	created  time.Time
	lastSeen time.Time
}

// Manager holds the live sessions of the server. Sessions idle for longer than
// the TTL are dropped by Sweep.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
	log      *logger.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a Manager. A non-positive ttl uses DefaultTTL.
func NewManager(ttl time.Duration, opts ...ManagerOption) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Manager{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		log:      logger.Default().WithPrefix("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a session over the given due set.
func (m *Manager) Start(userID string, due []int64) Snapshot {
	now := m.now()
	e := &entry{
		id:       uuid.NewString(),
		userID:   userID,
		queue:    NewQueue(due),
		created:  now,
		lastSeen: now,
	}

	m.mu.Lock()
	m.sessions[e.id] = e
	m.mu.Unlock()

	m.log.Debug("session started: id=%s, user_id=%s, cards=%d", e.id, userID, e.queue.Total())
	return m.snapshot(e)
}

// Get returns the current state of a session.
func (m *Manager) Get(id string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	return m.snapshot(e), nil
}

// Check verifies that flashcardID can be reviewed in the session without
// changing anything.
func (m *Manager) Check(id string, flashcardID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	if e.queue.State() == StateComplete {
		return ErrSessionComplete
	}
	if !e.queue.Contains(flashcardID) {
		return ErrNotInSession
	}
	return nil
}

// Apply records the review of flashcardID in the session.
func (m *Manager) Apply(id string, flashcardID int64, passed, keepInQueue bool) (Snapshot, Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.lookup(id)
	if err != nil {
		return Snapshot{}, Transition{}, err
	}
	tr, err := e.queue.Review(flashcardID, passed, keepInQueue)
	if err != nil {
		return Snapshot{}, Transition{}, err
	}
	e.lastSeen = m.now()

	m.log.Debug("session transition: id=%s, flashcard_id=%d, outcome=%s, remaining=%d",
		id, flashcardID, tr.Outcome, len(e.queue.order))
	return m.snapshot(e), tr, nil
}

// End discards a session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.lookup(id); err != nil {
		return err
	}
	delete(m.sessions, id)
	m.log.Debug("session ended: id=%s", id)
	return nil
}

// Sweep drops sessions idle since before now-ttl and returns how many went.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// caller holds m.mu
func (m *Manager) lookup(id string) (*entry, error) {
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if m.now().Sub(e.lastSeen) > m.ttl {
		delete(m.sessions, id)
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (m *Manager) snapshot(e *entry) Snapshot {
	return Snapshot{
		ID:        e.id,
		UserID:    e.userID,
		State:     e.queue.State(),
		Queue:     append([]int64{}, e.queue.order...),
		Retired:   append([]int64{}, e.queue.retired...),
		Total:     e.queue.Total(),
		CreatedAt: e.created,
		ExpiresAt: e.lastSeen.Add(m.ttl),
	}
}

// SweepJob runs Manager.Sweep on the worker pool.
type SweepJob struct {
	Manager *Manager
}

func (j SweepJob) Name() string {
	return "session-sweep"
}

func (j SweepJob) Run(ctx context.Context) error {
	n := j.Manager.Sweep(j.Manager.now())
	if n > 0 {
		logger.FromContext(ctx).Info("expired %d idle sessions", n)
	}
	return nil
}

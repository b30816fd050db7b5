// Package session keeps the in-memory review order of one study session.
//
// The queue is independent of persisted scheduling: a missed card goes to
// the back of the queue so it is drilled again before the session ends, while
// its stored due date is whatever the scheduler computed for that review.
package session

import (
	"errors"
	"slices"
)

type State string

const (
	StateActive   State = "active"
	StateComplete State = "complete"
)

type Outcome string

const (
	OutcomeRetired  Outcome = "retired"
	OutcomeRequeued Outcome = "requeued"
)

var (
	ErrSessionComplete = errors.New("session is complete")
	ErrNotInSession    = errors.New("flashcard is not queued in this session")
	ErrSessionNotFound = errors.New("session not found")
)

// Transition is the result of applying one review to a queue.
type Transition struct {
	FlashcardID int64   `json:"flashcardId"`
	Outcome     Outcome `json:"outcome"`
	State       State   `json:"state"`
}

// Queue is the ordered set of cards still due in a session. The zero value is
// a complete, empty queue. Queue is not safe for concurrent use.
type Queue struct {
	order   []int64
	retired []int64
	total   int
}

// NewQueue snapshots the due set. Duplicate ids are dropped.
func NewQueue(ids []int64) *Queue {
	seen := make(map[int64]struct{}, len(ids))
	order := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	return &Queue{order: order, total: len(order)}
}

// State reports whether any card is left.
func (q *Queue) State() State {
	if len(q.order) == 0 {
		return StateComplete
	}
	return StateActive
}

// Current returns the card at the head of the queue.
func (q *Queue) Current() (int64, bool) {
	if len(q.order) == 0 {
		return 0, false
	}
	return q.order[0], true
}

// Contains reports whether id is still queued.
func (q *Queue) Contains(id int64) bool {
	return slices.Contains(q.order, id)
}

// Review applies the outcome of reviewing card id. A passing review without
// keepInQueue retires the card; anything else moves it to the back.
func (q *Queue) Review(id int64, passed, keepInQueue bool) (Transition, error) {
	if len(q.order) == 0 {
		return Transition{}, ErrSessionComplete
	}
	idx := slices.Index(q.order, id)
	if idx < 0 {
		return Transition{}, ErrNotInSession
	}

	q.order = slices.Delete(q.order, idx, idx+1)
	outcome := OutcomeRequeued
	if passed && !keepInQueue {
		q.retired = append(q.retired, id)
		outcome = OutcomeRetired
	} else {
		q.order = append(q.order, id)
	}

	return Transition{FlashcardID: id, Outcome: outcome, State: q.State()}, nil
}

// Remaining returns a copy of the queued ids in review order.
func (q *Queue) Remaining() []int64 {
	return slices.Clone(q.order)
}

// Retired returns a copy of the ids retired so far, in retirement order.
func (q *Queue) Retired() []int64 {
	return slices.Clone(q.retired)
}

// Total is the size of the due set the session started with.
func (q *Queue) Total() int {
	return q.total
}

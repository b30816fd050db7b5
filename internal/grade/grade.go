// Package grade normalizes the review grades sent by clients onto the
// canonical 0-5 quality scale used by the scheduler.
//
// Clients have sent three shapes over time: a boolean "hard" flag from the
// two-way swipe, a named grade from the button row, and a plain number.
// Mapping policy:
//
//	hard=true  (left swipe, "Again") -> 0
//	hard=false (right swipe, "Easy") -> 5
//	"Again" -> 0, "Hard" -> 3, "Good" -> 4, "Easy" -> 5
//	integral numbers are clamped to [0, 5]
package grade

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Quality is a grade on the canonical 0-5 scale.
type Quality int

const (
	Again Quality = 0
	Hard  Quality = 3
	Good  Quality = 4
	Easy  Quality = 5

	MinQuality Quality = 0
	MaxQuality Quality = 5

	// PassThreshold is the lowest passing quality.
	PassThreshold Quality = 3
)

// Valid reports whether q is inside the canonical range.
func (q Quality) Valid() bool {
	return q >= MinQuality && q <= MaxQuality
}

// Passed reports whether q counts as a successful recall.
func (q Quality) Passed() bool {
	return q >= PassThreshold
}

// ErrInvalidGrade is matched by every InvalidGradeError.
var ErrInvalidGrade = errors.New("invalid grade")

// InvalidGradeError describes a grade that matches none of the accepted shapes.
type InvalidGradeError struct {
	Input  any
	Reason string
}

func (e *InvalidGradeError) Error() string {
	return fmt.Sprintf("invalid grade %v: %s", e.Input, e.Reason)
}

func (e *InvalidGradeError) Is(target error) bool {
	return target == ErrInvalidGrade
}

// Input holds one grade as supplied by a caller. Exactly one field must be set.
type Input struct {
	Hard   *bool
	Name   string
	Number *float64
}

// FromHard builds an Input from a swipe-style hard flag.
func FromHard(hard bool) Input {
	return Input{Hard: &hard}
}

// FromName builds an Input from a named grade.
func FromName(name string) Input {
	return Input{Name: name}
}

// FromNumber builds an Input from a numeric grade.
func FromNumber(n float64) Input {
	return Input{Number: &n}
}

// IsZero reports whether no grade was supplied.
func (in Input) IsZero() bool {
	return in.Hard == nil && in.Name == "" && in.Number == nil
}

var names = map[string]Quality{
	"again": Again,
	"hard":  Hard,
	"good":  Good,
	"easy":  Easy,
}

// Map converts in to a canonical quality.
func Map(in Input) (Quality, error) {
	set := 0
	if in.Hard != nil {
		set++
	}
	if in.Name != "" {
		set++
	}
	if in.Number != nil {
		set++
	}
	switch set {
	case 0:
		return 0, &InvalidGradeError{Input: nil, Reason: "no grade supplied"}
	case 1:
	default:
		return 0, &InvalidGradeError{Input: in, Reason: "more than one grade supplied"}
	}

	switch {
	case in.Hard != nil:
		if *in.Hard {
			return Again, nil
		}
		return Easy, nil
	case in.Number != nil:
		return fromNumber(*in.Number)
	default:
		q, ok := names[strings.ToLower(strings.TrimSpace(in.Name))]
		if !ok {
			return 0, &InvalidGradeError{Input: in.Name, Reason: "unknown grade name"}
		}
		return q, nil
	}
}

func fromNumber(n float64) (Quality, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, &InvalidGradeError{Input: n, Reason: "not a finite number"}
	}
	if n != math.Trunc(n) {
		return 0, &InvalidGradeError{Input: n, Reason: "not an integer"}
	}
	switch {
	case n < float64(MinQuality):
		return MinQuality, nil
	case n > float64(MaxQuality):
		return MaxQuality, nil
	}
	return Quality(n), nil
}

// FromJSON decodes a raw JSON grade value. Booleans are read as the hard
// flag, numbers and numeric strings as numeric grades, other strings as names.
func FromJSON(raw json.RawMessage) (Input, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Input{}, nil
	}

	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Input{}, &InvalidGradeError{Input: string(raw), Reason: "malformed JSON"}
	}

	switch t := v.(type) {
	case bool:
		return FromHard(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Input{}, &InvalidGradeError{Input: t.String(), Reason: "number out of range"}
		}
		return FromNumber(f), nil
	case string:
		s := strings.TrimSpace(t)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return FromNumber(f), nil
		}
		if s == "" {
			return Input{}, &InvalidGradeError{Input: t, Reason: "empty grade name"}
		}
		return FromName(s), nil
	default:
		return Input{}, &InvalidGradeError{Input: string(raw), Reason: "unsupported JSON type"}
	}
}

// Parse decodes and maps a raw JSON grade in one step.
func Parse(raw json.RawMessage) (Quality, error) {
	in, err := FromJSON(raw)
	if err != nil {
		return 0, err
	}
	return Map(in)
}

package grade_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/slangflash/internal/grade"
)

func TestMap_HardFlag(t *testing.T) {
	q, err := grade.Map(grade.FromHard(true))
	require.NoError(t, err)
	assert.Equal(t, grade.Again, q)

	q, err = grade.Map(grade.FromHard(false))
	require.NoError(t, err)
	assert.Equal(t, grade.Easy, q)
}

func TestMap_Names(t *testing.T) {
	tests := []struct {
		name string
		want grade.Quality
	}{
		{"Again", 0},
		{"hard", 3},
		{" Good ", 4},
		{"EASY", 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := grade.Map(grade.FromName(tt.name))
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestMap_Numbers(t *testing.T) {
	tests := []struct {
		name    string
		in      float64
		want    grade.Quality
		wantErr bool
	}{
		{name: "zero", in: 0, want: 0},
		{name: "in range", in: 4, want: 4},
		{name: "clamped high", in: 6, want: 5},
		{name: "clamped low", in: -2, want: 0},
		{name: "fractional", in: 2.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := grade.Map(grade.FromNumber(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, grade.ErrInvalidGrade)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestMap_Invalid(t *testing.T) {
	_, err := grade.Map(grade.Input{})
	assert.ErrorIs(t, err, grade.ErrInvalidGrade)

	_, err = grade.Map(grade.FromName("Perfect"))
	assert.ErrorIs(t, err, grade.ErrInvalidGrade)

	hard := true
	n := 3.0
	_, err = grade.Map(grade.Input{Hard: &hard, Number: &n})
	assert.ErrorIs(t, err, grade.ErrInvalidGrade)

	var ige *grade.InvalidGradeError
	assert.True(t, errors.As(err, &ige))
}

func TestParse_JSONShapes(t *testing.T) {
	tests := []struct {
		raw     string
		want    grade.Quality
		wantErr bool
	}{
		{raw: `5`, want: 5},
		{raw: `"3"`, want: 3},
		{raw: `"Again"`, want: 0},
		{raw: `true`, want: 0},
		{raw: `false`, want: 5},
		{raw: `null`, wantErr: true},
		{raw: `[1]`, wantErr: true},
		{raw: `{"q":1}`, wantErr: true},
		{raw: `"NaN"`, wantErr: true},
		{raw: `""`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			q, err := grade.Parse(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, grade.ErrInvalidGrade)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestQuality_Passed(t *testing.T) {
	assert.False(t, grade.Quality(2).Passed())
	assert.True(t, grade.Quality(3).Passed())
	assert.False(t, grade.Quality(6).Valid())
	assert.False(t, grade.Quality(-1).Valid())
}

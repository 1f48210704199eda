package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ryohei-iwamoto/mml-mvp/internal/ir"
	"github.com/ryohei-iwamoto/mml-mvp/internal/vision"
)

func TestRound3(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{3, 3},
		{1.23449, 1.234},
		{9.8766, 9.877},
		{-2.7184, -2.718},
		{0.0004, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, round3(tc.in), "round3(%v)", tc.in)
	}
}

func TestFormatMM(t *testing.T) {
	assert.Equal(t, "6", formatMM(6))
	assert.Equal(t, "5.5", formatMM(5.5))
	assert.Equal(t, "0.125", formatMM(0.125))
	assert.Equal(t, "11", formatMM(11))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-0.2))
	assert.Equal(t, 0.5, clamp01(0.5))
	assert.Equal(t, 1.0, clamp01(1.7))
}

func TestToMM(t *testing.T) {
	assert.Equal(t, ir.PointMM{15, 25}, toMM(vision.PointPx{30, 50}, 0.5))
}

func TestCoerceAnswer_Float(t *testing.T) {
	cases := []struct {
		in     any
		want   float64
		usable bool
	}{
		{3.5, 3.5, true},
		{"3.5", 3.5, true},
		{" 2 ", 2.0, true},
		{4, 4.0, true},
		{int64(7), 7.0, true},
		{float32(1.5), 1.5, true},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tc := range cases {
		got, usable, note := coerceAnswer(QuestionThickness, ir.QuestionFloat, tc.in)
		assert.Equal(t, tc.usable, usable, "input %v", tc.in)
		if tc.usable {
			assert.Equal(t, tc.want, got, "input %v", tc.in)
			assert.Empty(t, note)
		}
	}

	// A garbled value leaves a note so the report explains the open question.
	_, usable, note := coerceAnswer(QuestionThickness, ir.QuestionFloat, "abc")
	assert.False(t, usable)
	assert.Equal(t, `answer "thickness_mm": cannot read abc as a number; ignored`, note)

	// nil is silently absent, not noteworthy.
	_, usable, note = coerceAnswer(QuestionThickness, ir.QuestionFloat, nil)
	assert.False(t, usable)
	assert.Empty(t, note)
}

func TestCoerceAnswer_Bool(t *testing.T) {
	truthy := []any{true, "y", "YES", "1", " true "}
	for _, in := range truthy {
		got, usable, _ := coerceAnswer(QuestionUnifyHoles, ir.QuestionBool, in)
		assert.True(t, usable, "input %v", in)
		assert.Equal(t, true, got, "input %v", in)
	}

	falsy := []any{false, "n", "No", "0", "false"}
	for _, in := range falsy {
		got, usable, _ := coerceAnswer(QuestionUnifyHoles, ir.QuestionBool, in)
		assert.True(t, usable, "input %v", in)
		assert.Equal(t, false, got, "input %v", in)
	}

	_, usable, note := coerceAnswer(QuestionUnifyHoles, ir.QuestionBool, "maybe")
	assert.False(t, usable)
	assert.Equal(t, `answer "unify_holes": cannot read maybe as yes/no; ignored`, note)
}

func TestCoerceAnswer_String(t *testing.T) {
	got, usable, _ := coerceAnswer(QuestionHoleStandard, ir.QuestionString, "  M5  ")
	assert.True(t, usable)
	assert.Equal(t, "M5", got)

	// Blank means unanswered.
	_, usable, note := coerceAnswer(QuestionHoleStandard, ir.QuestionString, "   ")
	assert.False(t, usable)
	assert.Empty(t, note)

	got, usable, _ = coerceAnswer(QuestionHoleStandard, ir.QuestionString, 42)
	assert.True(t, usable)
	assert.Equal(t, "42", got)

	// List answers (subcomponents) pass through untouched.
	list := []any{"base", "link"}
	got, usable, _ = coerceAnswer("subcomponents", ir.QuestionString, list)
	assert.True(t, usable)
	assert.Equal(t, list, got)

	_, usable, _ = coerceAnswer("subcomponents", ir.QuestionString, []any{})
	assert.False(t, usable, "an empty list answers nothing")
}

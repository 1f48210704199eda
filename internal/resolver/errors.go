package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ResolveErrorCode categorizes resolver failures.
type ResolveErrorCode string

const (
	// ErrCodeScaleUndefined indicates no scale answer exists yet. This is a
	// blocking state, not a defect: the caller asks the scale question and
	// re-enters the resolver.
	ErrCodeScaleUndefined ResolveErrorCode = "SCALE_UNDEFINED"

	// ErrCodeConstraintViolation indicates one or more constraints failed on
	// dialogue-confirmed values, which is terminal for the part.
	ErrCodeConstraintViolation ResolveErrorCode = "CONSTRAINT_VIOLATION"

	// ErrCodeInvalidGeometry indicates a self-intersecting outline, a hole
	// outside the outline, or a degenerate bend. Never auto-repaired.
	ErrCodeInvalidGeometry ResolveErrorCode = "INVALID_GEOMETRY"

	// ErrCodeContradictoryAnswer indicates the same question was answered
	// twice with different values (e.g. two different scales for the same
	// reference edge).
	ErrCodeContradictoryAnswer ResolveErrorCode = "CONTRADICTORY_ANSWER"
)

// ResolveError is an error detected while assembling one part record.
//
// Resolver errors are part-scoped: in a multi-component run a ResolveError
// rejects its own part and must not abort siblings.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Part names the affected part.
	Part string

	// Message is a human-readable description.
	Message string

	// Violations carries the failed predicates for CONSTRAINT_VIOLATION.
	Violations []Violation
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	var b strings.Builder
	if e.Part != "" {
		fmt.Fprintf(&b, "%s: %s (part=%s)", e.Code, e.Message, e.Part)
	} else {
		fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	}
	for _, v := range e.Violations {
		fmt.Fprintf(&b, "\n  %s", v.Error())
	}
	return b.String()
}

// IsScaleUndefined returns true if the error is a missing-scale condition.
// Uses errors.As to handle wrapped errors.
func IsScaleUndefined(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeScaleUndefined
}

// IsConstraintViolation returns true for terminal constraint failures.
func IsConstraintViolation(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeConstraintViolation
}

// IsInvalidGeometry returns true for fatal geometry errors.
func IsInvalidGeometry(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeInvalidGeometry
}

// IsContradictoryAnswer returns true when conflicting answers were given for
// the same question.
func IsContradictoryAnswer(err error) bool {
	var re *ResolveError
	return errors.As(err, &re) && re.Code == ErrCodeContradictoryAnswer
}

// NewScaleUndefinedError creates the blocking missing-scale error.
func NewScaleUndefinedError(part string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeScaleUndefined,
		Part:    part,
		Message: "no scale reference answered; cannot convert pixel geometry to millimeters",
	}
}

// NewInvalidGeometryError creates a fatal geometry error.
func NewInvalidGeometryError(part, reason string) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeInvalidGeometry,
		Part:    part,
		Message: reason,
	}
}

// NewContradictionError creates a rejection for conflicting answers.
func NewContradictionError(part, questionID string, previous, incoming any) *ResolveError {
	return &ResolveError{
		Code:    ErrCodeContradictoryAnswer,
		Part:    part,
		Message: fmt.Sprintf("question %q answered twice with different values (%v, then %v)", questionID, previous, incoming),
	}
}

// NewConstraintViolationError creates a terminal validation error for
// violations on dialogue-confirmed values.
func NewConstraintViolationError(part string, violations []Violation) *ResolveError {
	return &ResolveError{
		Code:       ErrCodeConstraintViolation,
		Part:       part,
		Message:    fmt.Sprintf("%d constraint violation(s) on confirmed values", len(violations)),
		Violations: violations,
	}
}

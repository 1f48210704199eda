package assembly

import (
	"errors"
	"fmt"
)

// ErrNoSubcomponents reports a record whose intent lists nothing to compose.
var ErrNoSubcomponents = errors.New("assembly: record lists no subcomponents")

// UnresolvedSubcomponentError is raised when a declared subcomponent cannot
// be matched to a catalog part, or when its component mesh cannot be built.
// Silently dropping unmatched text would shrink the assembly the user asked
// for, so the whole composition fails instead.
type UnresolvedSubcomponentError struct {
	// Part names the parent record.
	Part string

	// Subcomponent is the offending text or canonical name.
	Subcomponent string

	// Index is the slot the subcomponent would occupy in the plan.
	Index int

	// Reason is a human-readable description.
	Reason string

	// Cause holds the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *UnresolvedSubcomponentError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("UNRESOLVED_SUBCOMPONENT: %s (part=%s)", e.Reason, e.Part)
	}
	return fmt.Sprintf("UNRESOLVED_SUBCOMPONENT: %s", e.Reason)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *UnresolvedSubcomponentError) Unwrap() error {
	return e.Cause
}

// IsUnresolvedSubcomponent returns true for subcomponent resolution
// failures. Uses errors.As to handle wrapped errors.
func IsUnresolvedSubcomponent(err error) bool {
	var ue *UnresolvedSubcomponentError
	return errors.As(err, &ue)
}

package solid

import (
	"errors"
	"fmt"
)

// NotManifoldError reports a generator whose output failed the closed-surface
// postcondition. Component-scoped: in a multi-component run it aborts its own
// component and must not abort siblings.
type NotManifoldError struct {
	// Part names the affected part or subcomponent.
	Part string

	// Detail describes the first defect found (unpaired or duplicated edge,
	// degenerate facet).
	Detail string
}

// Error implements the error interface.
func (e *NotManifoldError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("MESH_NOT_MANIFOLD: %s (part=%s)", e.Detail, e.Part)
	}
	return fmt.Sprintf("MESH_NOT_MANIFOLD: %s", e.Detail)
}

// IsNotManifold returns true for manifold postcondition failures. Uses
// errors.As to handle wrapped errors.
func IsNotManifold(err error) bool {
	var me *NotManifoldError
	return errors.As(err, &me)
}

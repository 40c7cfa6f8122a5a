package shape

import (
	"fmt"
	"strings"
)

// UnsupportedShapeError reports a generic shape with no converter mapping.
type UnsupportedShapeError struct {
	// Shape is the offending (innermost) generic shape.
	Shape *TypeShape

	// Within is the full annotation the shape was found in, if different.
	Within *TypeShape

	// Reason is set when the name is known but the shape still cannot be
	// marshalled (wrong arity, non-comparable map key).
	Reason string
}

func (e *UnsupportedShapeError) Error() string {
	return "unsupported shape " + e.Detail()
}

// Detail describes the shape without the error prefix, e.g.
// "Custom in list[Custom[int]]".
func (e *UnsupportedShapeError) Detail() string {
	var b strings.Builder
	b.WriteString(e.Shape.Name)
	if e.Within != nil && e.Within != e.Shape {
		fmt.Fprintf(&b, " in %s", e.Within)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

// MalformedInputError reports a structurally invalid signature set.
// It is fatal for the module being generated.
type MalformedInputError struct {
	Module   string
	Problems []string
}

func (e *MalformedInputError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("malformed signatures for module %q: %s", e.Module, e.Problems[0])
	}
	return fmt.Sprintf("malformed signatures for module %q:\n  %s", e.Module, strings.Join(e.Problems, "\n  "))
}

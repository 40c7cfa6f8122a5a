// Package shape is the signature model consumed by the binding generator.
//
// A Module is an ordered list of Python function signatures. Every parameter
// and return value carries a TypeShape: either a primitive name or a generic
// name with nested type arguments.
package shape

import "strings"

// TypeShape describes a parameter or return type.
//
// A shape is generic when it was written with a subscript (list[int]);
// Args is then non-empty. Primitive shapes have no Args.
type TypeShape struct {
	// Name is the annotation name as written, without module qualifier
	// (typing.List → "List").
	Name string

	// Args holds the nested type arguments of a generic shape, in order.
	Args []*TypeShape

	// generic marks shapes built with Generic, even if Args ended up empty.
	generic bool
}

// Primitive returns a non-generic shape.
func Primitive(name string) *TypeShape {
	return &TypeShape{Name: name}
}

// Generic returns a generic shape with the given type arguments.
func Generic(name string, args ...*TypeShape) *TypeShape {
	return &TypeShape{Name: name, Args: args, generic: true}
}

// IsGeneric reports whether the shape was written with type arguments.
func (s *TypeShape) IsGeneric() bool {
	return s.generic || len(s.Args) > 0
}

// String renders the shape in Python annotation syntax, e.g. dict[str, list[int]].
func (s *TypeShape) String() string {
	if s == nil {
		return "<nil>"
	}
	if !s.IsGeneric() {
		return s.Name
	}
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s *TypeShape) write(b *strings.Builder) {
	b.WriteString(s.Name)
	if !s.IsGeneric() {
		return
	}
	b.WriteByte('[')
	for i, a := range s.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		if a == nil {
			b.WriteString("<nil>")
			continue
		}
		a.write(b)
	}
	b.WriteByte(']')
}

// Walk visits s and every nested shape depth-first, left to right.
// It stops early when fn returns false.
func (s *TypeShape) Walk(fn func(*TypeShape) bool) bool {
	if s == nil {
		return true
	}
	if !fn(s) {
		return false
	}
	for _, a := range s.Args {
		if !a.Walk(fn) {
			return false
		}
	}
	return true
}

// Parameter is a single function parameter.
type Parameter struct {
	Name     string
	Type     *TypeShape
	Position int
}

// Function is the signature of one Python function.
type Function struct {
	// Name is the Python function name as written.
	Name string

	// Params is the ordered parameter list.
	Params []*Parameter

	// Returns is the return shape; Primitive("None") when the function
	// returns nothing.
	Returns *TypeShape

	// Line is the 1-based source line of the def, 0 when unknown.
	Line int
}

// Module is the parsed signature set of one Python source file.
type Module struct {
	// Name is the Python module name (file name without extension).
	Name string

	// Path is the source file path, if any.
	Path string

	// Functions are the top-level functions in source order.
	Functions []*Function
}

// NoneName is the annotation used for functions without a return value.
const NoneName = "None"

// ReturnsNothing reports whether fn has no return value.
func (fn *Function) ReturnsNothing() bool {
	return fn.Returns == nil || (!fn.Returns.IsGeneric() && fn.Returns.Name == NoneName)
}

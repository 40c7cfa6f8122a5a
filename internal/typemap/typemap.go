// Package typemap renders Python type shapes as Go types.
package typemap

import (
	"fmt"
	"strings"

	"github.com/funvibe/pybind/internal/shape"
)

// primitives maps Python primitive annotations to Go types.
// Anything not listed (Any, object, user classes) is passed through as any.
var primitives = map[string]string{
	"int":       "int64",
	"float":     "float64",
	"str":       "string",
	"bool":      "bool",
	"bytes":     "[]byte",
	"bytearray": "[]byte",
	"complex":   "complex128",
}

// Mapper renders shapes relative to the runtime package imported by the
// generated file.
type Mapper struct {
	// RuntimeAlias is the import alias of the runtime facade (e.g. "pyrt").
	RuntimeAlias string
}

// New creates a Mapper for the given runtime import alias.
func New(runtimeAlias string) *Mapper {
	return &Mapper{RuntimeAlias: runtimeAlias}
}

// TupleType is the Go type used for every tuple shape.
func (m *Mapper) TupleType() string {
	return m.RuntimeAlias + ".Tuple"
}

// GoType returns the Go type for s. Generic shapes without a converter
// mapping, or with a shape Go cannot express, yield *shape.UnsupportedShapeError.
func (m *Mapper) GoType(s *shape.TypeShape) (string, error) {
	var b strings.Builder
	if err := m.write(&b, s, s); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (m *Mapper) write(b *strings.Builder, s, root *shape.TypeShape) error {
	if !s.IsGeneric() {
		if t, ok := primitives[s.Name]; ok {
			b.WriteString(t)
		} else {
			b.WriteString("any")
		}
		return nil
	}

	cat, ok := shape.Classify(s.Name)
	if !ok {
		return &shape.UnsupportedShapeError{Shape: s, Within: root}
	}
	if n := cat.Arity(); n > 0 && len(s.Args) != n {
		return &shape.UnsupportedShapeError{
			Shape:  s,
			Within: root,
			Reason: fmt.Sprintf("%s expects %d type argument(s), got %d", s.Name, n, len(s.Args)),
		}
	}

	switch cat {
	case shape.CategorySequence:
		b.WriteString("[]")
		return m.write(b, s.Args[0], root)
	case shape.CategoryMapping:
		if !Comparable(s.Args[0]) {
			return &shape.UnsupportedShapeError{
				Shape:  s,
				Within: root,
				Reason: fmt.Sprintf("map key %s is not hashable in Go", s.Args[0]),
			}
		}
		b.WriteString("map[")
		if err := m.write(b, s.Args[0], root); err != nil {
			return err
		}
		b.WriteByte(']')
		return m.write(b, s.Args[1], root)
	default:
		// Element shapes of a tuple are not part of its Go type, but they
		// must still be expressible.
		b.WriteString(m.TupleType())
		for _, a := range s.Args {
			var discard strings.Builder
			if err := m.write(&discard, a, root); err != nil {
				return err
			}
		}
		return nil
	}
}

// Comparable reports whether the Go rendering of s can be a map key.
func Comparable(s *shape.TypeShape) bool {
	if s.IsGeneric() {
		return false
	}
	t, ok := primitives[s.Name]
	return !ok || t != "[]byte"
}

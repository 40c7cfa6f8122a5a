package resolve

import (
	"strings"

	"github.com/funvibe/pybind/internal/shape"
)

// Converter identifies one converter by its fully instantiated type.
// ListConverter[int64] and ListConverter[string] are different converters;
// the tuple converter has no type parameters and is shared by all tuples.
type Converter struct {
	// Category selects the converter family.
	Category shape.Category

	// TypeArgs are the Go renderings of the converter's type parameters.
	TypeArgs []string

	// Implied is true when the converter was added only because another
	// converter depends on it.
	Implied bool
}

// Name returns the converter type name without type arguments.
func (c Converter) Name() string {
	switch c.Category {
	case shape.CategorySequence:
		return "ListConverter"
	case shape.CategoryMapping:
		return "DictConverter"
	case shape.CategoryTuple:
		return "TupleConverter"
	default:
		return "UnknownConverter"
	}
}

// Identity returns the converter's fully instantiated name, e.g.
// "DictConverter[string, []int64]". Two converters are the same requirement
// exactly when their identities are equal.
func (c Converter) Identity() string {
	if len(c.TypeArgs) == 0 {
		return c.Name()
	}
	return c.Name() + "[" + strings.Join(c.TypeArgs, ", ") + "]"
}

// Expr returns a Go composite literal constructing the converter from the
// runtime package imported under alias.
func (c Converter) Expr(alias string) string {
	return alias + "." + c.Identity() + "{}"
}

// Direction tells whether a registration installs an encoder or a decoder.
type Direction int

const (
	Encoder Direction = iota // Go value → Python object
	Decoder                  // Python object → Go value
)

func (d Direction) String() string {
	if d == Decoder {
		return "decoder"
	}
	return "encoder"
}

// Registration is one statement of the generated registration block.
type Registration struct {
	Direction Direction
	Converter Converter
}

// Statement renders the registration call, e.g.
// "pyrt.RegisterEncoder(pyrt.TupleConverter{})".
func (r Registration) Statement(alias string) string {
	fn := "RegisterEncoder"
	if r.Direction == Decoder {
		fn = "RegisterDecoder"
	}
	return alias + "." + fn + "(" + r.Converter.Expr(alias) + ")"
}

var tupleConverter = Converter{Category: shape.CategoryTuple}

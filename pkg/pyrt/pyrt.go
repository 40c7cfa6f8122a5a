// Package pyrt is the runtime facade imported by generated bindings.
//
// Generated adapters call Python functions through a Module obtained from an
// Environment, marshalling arguments and results with the converters held in
// the process registry. The Python object model itself lives behind Module;
// on this side of the boundary Python lists are []any, tuples are Tuple and
// dicts are Dict.
package pyrt

import (
	"context"
	"fmt"
	"reflect"
)

// Module is an imported Python module.
type Module interface {
	// Call invokes the named function with already encoded arguments and
	// returns its raw result.
	Call(ctx context.Context, name string, args ...any) (any, error)
}

// Environment imports Python modules.
type Environment interface {
	Import(name string) (Module, error)
}

// Tuple is a Python tuple. Elements keep their Python-side representation.
type Tuple []any

// Dict is a Python dict seen as its items: every element is a two-element
// Tuple holding the key and the value.
type Dict []any

// Call invokes fn on mod and decodes the result into T.
func Call[T any](ctx context.Context, mod Module, fn string, args ...any) (T, error) {
	var zero T
	raw, err := invoke(ctx, mod, fn, args)
	if err != nil {
		return zero, err
	}
	v, err := Default.Decode(raw, reflect.TypeFor[T]())
	if err == nil {
		zero, err = as[T](v)
	}
	if err != nil {
		return zero, fmt.Errorf("%s: decoding result: %w", fn, err)
	}
	return zero, nil
}

// CallVoid invokes fn on mod and discards its result.
func CallVoid(ctx context.Context, mod Module, fn string, args ...any) error {
	_, err := invoke(ctx, mod, fn, args)
	return err
}

func invoke(ctx context.Context, mod Module, fn string, args []any) (any, error) {
	if mod == nil {
		return nil, fmt.Errorf("%s: module is not bound", fn)
	}
	encoded := make([]any, len(args))
	for i, a := range args {
		v, err := Default.Encode(a)
		if err != nil {
			return nil, fmt.Errorf("%s: encoding argument %d: %w", fn, i, err)
		}
		encoded[i] = v
	}
	return mod.Call(ctx, fn, encoded...)
}

package pyrt

import (
	"fmt"
	"reflect"
	"sync"
)

// Encoder converts Go values of one type into their Python representation.
type Encoder interface {
	// Identity names the converter; registering the same identity twice is a no-op.
	Identity() string
	// GoType is the Go type the encoder accepts.
	GoType() reflect.Type
	Encode(r *Registry, v any) (any, error)
}

// Decoder converts Python values into Go values of one type.
type Decoder interface {
	Identity() string
	// GoType is the Go type the decoder produces.
	GoType() reflect.Type
	Decode(r *Registry, obj any) (any, error)
}

// Registry holds the converters known to the process.
type Registry struct {
	mu       sync.RWMutex
	encoders map[reflect.Type]Encoder
	decoders map[reflect.Type]Decoder
	ids      map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		encoders: make(map[reflect.Type]Encoder),
		decoders: make(map[reflect.Type]Decoder),
		ids:      make(map[string]bool),
	}
}

// Default is the registry generated bindings register into.
var Default = NewRegistry()

// RegisterEncoder adds e to the default registry.
func RegisterEncoder(e Encoder) { Default.RegisterEncoder(e) }

// RegisterDecoder adds d to the default registry.
func RegisterDecoder(d Decoder) { Default.RegisterDecoder(d) }

// RegisterEncoder adds e unless an encoder with the same identity exists.
// It reports whether e was added.
func (r *Registry) RegisterEncoder(e Encoder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := "enc:" + e.Identity()
	if r.ids[key] {
		return false
	}
	r.ids[key] = true
	r.encoders[e.GoType()] = e
	return true
}

// RegisterDecoder adds d unless a decoder with the same identity exists.
// It reports whether d was added.
func (r *Registry) RegisterDecoder(d Decoder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := "dec:" + d.Identity()
	if r.ids[key] {
		return false
	}
	r.ids[key] = true
	r.decoders[d.GoType()] = d
	return true
}

// Encode converts v to its Python representation. Values without a
// registered encoder are passed through unchanged.
func (r *Registry) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	r.mu.RLock()
	e, ok := r.encoders[reflect.TypeOf(v)]
	r.mu.RUnlock()
	if !ok {
		if needsConverter(reflect.TypeOf(v)) {
			return nil, fmt.Errorf("no encoder registered for %T", v)
		}
		return v, nil
	}
	return e.Encode(r, v)
}

// Decode converts obj into a value of type t.
func (r *Registry) Decode(obj any, t reflect.Type) (any, error) {
	r.mu.RLock()
	d, ok := r.decoders[t]
	r.mu.RUnlock()
	if ok {
		return d.Decode(r, obj)
	}
	if obj == nil {
		return reflect.Zero(t).Interface(), nil
	}

	v := reflect.ValueOf(obj)
	switch {
	case v.Type().AssignableTo(t):
		if t.Kind() == reflect.Interface {
			return obj, nil
		}
		return v.Convert(t).Interface(), nil
	case needsConverter(t):
		return nil, fmt.Errorf("no decoder registered for %s", t)
	case v.Type().ConvertibleTo(t) && sameFamily(v.Kind(), t.Kind()):
		return v.Convert(t).Interface(), nil
	}
	return nil, fmt.Errorf("cannot decode %T as %s", obj, t)
}

// as asserts a decoded value to T. A nil value yields the zero T.
func as[T any](v any) (T, error) {
	var zero T
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("decoded %T where %s was expected", v, reflect.TypeFor[T]())
	}
	return out, nil
}

// needsConverter reports whether values of t can only cross the boundary
// through a registered converter.
func needsConverter(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Map:
		return true
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// sameFamily restricts implicit conversions to numeric widening and
// string-like types, so a float never silently becomes a string.
func sameFamily(a, b reflect.Kind) bool {
	family := func(k reflect.Kind) int {
		switch k {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return 1
		case reflect.Float32, reflect.Float64:
			return 2
		case reflect.Complex64, reflect.Complex128:
			return 3
		case reflect.String:
			return 4
		case reflect.Bool:
			return 5
		}
		return 0
	}
	fa, fb := family(a), family(b)
	if fa == 1 && fb == 2 {
		return true
	}
	return fa != 0 && fa == fb
}

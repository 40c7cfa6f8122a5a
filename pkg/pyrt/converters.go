package pyrt

import (
	"fmt"
	"reflect"
)

var tupleType = reflect.TypeFor[Tuple]()

// ListConverter marshals []T as a Python list.
type ListConverter[T any] struct{}

func (ListConverter[T]) Identity() string {
	return fmt.Sprintf("ListConverter[%s]", reflect.TypeFor[T]())
}
func (ListConverter[T]) GoType() reflect.Type { return reflect.TypeFor[[]T]() }

func (ListConverter[T]) Encode(r *Registry, v any) (any, error) {
	items, ok := v.([]T)
	if !ok {
		return nil, fmt.Errorf("ListConverter: expected %s, got %T", reflect.TypeFor[[]T](), v)
	}
	out := make([]any, len(items))
	for i, item := range items {
		enc, err := r.Encode(item)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func (ListConverter[T]) Decode(r *Registry, obj any) (any, error) {
	items, ok := asSlice(obj)
	if !ok {
		return nil, fmt.Errorf("ListConverter: expected a Python sequence, got %T", obj)
	}
	out := make([]T, len(items))
	elem := reflect.TypeFor[T]()
	for i, item := range items {
		dec, err := r.Decode(item, elem)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		if out[i], err = as[T](dec); err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
	}
	return out, nil
}

// DictConverter marshals map[K]V as a Python dict. Items cross the boundary
// as (key, value) tuples, so the TupleConverter must be registered too.
type DictConverter[K comparable, V any] struct{}

func (DictConverter[K, V]) Identity() string {
	return fmt.Sprintf("DictConverter[%s, %s]", reflect.TypeFor[K](), reflect.TypeFor[V]())
}

func (DictConverter[K, V]) GoType() reflect.Type { return reflect.TypeFor[map[K]V]() }

func (DictConverter[K, V]) Encode(r *Registry, v any) (any, error) {
	m, ok := v.(map[K]V)
	if !ok {
		return nil, fmt.Errorf("DictConverter: expected %s, got %T", reflect.TypeFor[map[K]V](), v)
	}
	out := make(Dict, 0, len(m))
	for k, val := range m {
		item, err := r.Encode(Tuple{k, val})
		if err != nil {
			return nil, fmt.Errorf("dict item %v: %w", k, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func (DictConverter[K, V]) Decode(r *Registry, obj any) (any, error) {
	items, ok := asSlice(obj)
	if !ok {
		return nil, fmt.Errorf("DictConverter: expected Python dict items, got %T", obj)
	}
	out := make(map[K]V, len(items))
	for i, item := range items {
		raw, err := r.Decode(item, tupleType)
		if err != nil {
			return nil, fmt.Errorf("dict item %d: %w", i, err)
		}
		pair, err := as[Tuple](raw)
		if err != nil {
			return nil, fmt.Errorf("dict item %d: %w", i, err)
		}
		if len(pair) != 2 {
			return nil, fmt.Errorf("dict item %d: expected a pair, got %d elements", i, len(pair))
		}
		k, err := r.Decode(pair[0], reflect.TypeFor[K]())
		if err != nil {
			return nil, fmt.Errorf("dict key %d: %w", i, err)
		}
		val, err := r.Decode(pair[1], reflect.TypeFor[V]())
		if err != nil {
			return nil, fmt.Errorf("dict value %d: %w", i, err)
		}
		key, err := as[K](k)
		if err != nil {
			return nil, fmt.Errorf("dict key %d: %w", i, err)
		}
		value, err := as[V](val)
		if err != nil {
			return nil, fmt.Errorf("dict value %d: %w", i, err)
		}
		out[key] = value
	}
	return out, nil
}

// TupleConverter marshals Tuple values of any arity.
type TupleConverter struct{}

func (TupleConverter) Identity() string     { return "TupleConverter" }
func (TupleConverter) GoType() reflect.Type { return tupleType }

func (TupleConverter) Encode(r *Registry, v any) (any, error) {
	t, ok := v.(Tuple)
	if !ok {
		return nil, fmt.Errorf("TupleConverter: expected Tuple, got %T", v)
	}
	out := make(Tuple, len(t))
	for i, elem := range t {
		enc, err := r.Encode(elem)
		if err != nil {
			return nil, fmt.Errorf("tuple element %d: %w", i, err)
		}
		out[i] = enc
	}
	return out, nil
}

func (TupleConverter) Decode(_ *Registry, obj any) (any, error) {
	items, ok := asSlice(obj)
	if !ok {
		return nil, fmt.Errorf("TupleConverter: expected a Python tuple, got %T", obj)
	}
	return Tuple(items), nil
}

func asSlice(obj any) ([]any, bool) {
	switch v := obj.(type) {
	case []any:
		return v, true
	case Tuple:
		return v, true
	case Dict:
		return v, true
	}
	return nil, false
}

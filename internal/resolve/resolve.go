// Package resolve computes the converters a set of Python signatures needs.
//
// Every recognised generic shape reachable from a parameter yields one
// converter requirement; mappings additionally require the shared tuple
// converter because dict entries are marshalled as (key, value) pairs.
// Requirements are deduplicated by identity and kept in first-seen order:
// signature order, then parameter order, then depth-first left-to-right
// through nested type arguments.
package resolve

import (
	"errors"

	"github.com/funvibe/pybind/internal/shape"
	"github.com/funvibe/pybind/internal/typemap"
)

// Options tunes resolution.
type Options struct {
	// IncludeReturns adds return shapes to the traversal, after each
	// function's parameters. By default only parameters are scanned.
	IncludeReturns bool
}

// Resolver walks signatures and accumulates converter requirements.
// It holds no state between calls and is safe for concurrent use.
type Resolver struct {
	mapper *typemap.Mapper
	opts   Options
}

// New creates a Resolver rendering converter type arguments with mapper.
func New(mapper *typemap.Mapper, opts Options) *Resolver {
	return &Resolver{mapper: mapper, opts: opts}
}

// Failure records a function that could not be resolved.
type Failure struct {
	Function *shape.Function

	// Param is the parameter holding the unsupported shape,
	// nil when the shape is the return type.
	Param *shape.Parameter

	Err *shape.UnsupportedShapeError
}

// Result is the outcome of one resolution pass.
type Result struct {
	// Encoders and Decoders hold the deduplicated requirements in
	// first-seen order.
	Encoders []Converter
	Decoders []Converter

	// Resolved lists the functions whose shapes were all supported,
	// in input order.
	Resolved []*shape.Function

	// Failures lists the functions excluded because of unsupported shapes.
	Failures []Failure

	encSeen map[string]bool
	decSeen map[string]bool
}

func newResult() *Result {
	return &Result{
		Encoders: []Converter{},
		Decoders: []Converter{},
		encSeen:  make(map[string]bool),
		decSeen:  make(map[string]bool),
	}
}

// Registrations returns every encoder registration followed by every
// decoder registration.
func (r *Result) Registrations() []Registration {
	regs := make([]Registration, 0, len(r.Encoders)+len(r.Decoders))
	for _, c := range r.Encoders {
		regs = append(regs, Registration{Direction: Encoder, Converter: c})
	}
	for _, c := range r.Decoders {
		regs = append(regs, Registration{Direction: Decoder, Converter: c})
	}
	return regs
}

// HasEncoder reports whether an encoder with the given identity is required.
func (r *Result) HasEncoder(identity string) bool { return r.encSeen[identity] }

// HasDecoder reports whether a decoder with the given identity is required.
func (r *Result) HasDecoder(identity string) bool { return r.decSeen[identity] }

func (r *Result) add(c Converter) {
	id := c.Identity()
	if !r.encSeen[id] {
		r.encSeen[id] = true
		r.Encoders = append(r.Encoders, c)
	}
	if !r.decSeen[id] {
		r.decSeen[id] = true
		r.Decoders = append(r.Decoders, c)
	}
}

func (r *Result) merge(other *Result) {
	for _, c := range other.Encoders {
		if id := c.Identity(); !r.encSeen[id] {
			r.encSeen[id] = true
			r.Encoders = append(r.Encoders, c)
		}
	}
	for _, c := range other.Decoders {
		if id := c.Identity(); !r.decSeen[id] {
			r.decSeen[id] = true
			r.Decoders = append(r.Decoders, c)
		}
	}
}

// Resolve computes the requirements of fns. A function with an unsupported
// shape is recorded in Failures and contributes no converters; the other
// functions are unaffected.
func (r *Resolver) Resolve(fns []*shape.Function) *Result {
	res := newResult()
	for _, fn := range fns {
		local := newResult()
		if param, err := r.collectFunction(local, fn); err != nil {
			res.Failures = append(res.Failures, Failure{Function: fn, Param: param, Err: err})
			continue
		}
		res.merge(local)
		res.Resolved = append(res.Resolved, fn)
	}
	return res
}

// ResolveShapes computes the requirements of a bare shape set, in order.
// The first unsupported shape aborts resolution.
func (r *Resolver) ResolveShapes(shapes ...*shape.TypeShape) (*Result, error) {
	res := newResult()
	for _, s := range shapes {
		if err := r.collect(res, s); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r *Resolver) collectFunction(res *Result, fn *shape.Function) (*shape.Parameter, *shape.UnsupportedShapeError) {
	for _, p := range fn.Params {
		if err := r.collect(res, p.Type); err != nil {
			return p, err
		}
	}
	if r.opts.IncludeReturns && !fn.ReturnsNothing() {
		if err := r.collect(res, fn.Returns); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// collect walks root with an explicit stack so nesting depth never grows
// the Go call stack.
func (r *Resolver) collect(res *Result, root *shape.TypeShape) *shape.UnsupportedShapeError {
	stack := []*shape.TypeShape{root}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !s.IsGeneric() {
			continue
		}

		c, err := r.converterFor(s, root)
		if err != nil {
			return err
		}
		res.add(c)
		if c.Category == shape.CategoryMapping {
			res.add(Converter{Category: shape.CategoryTuple, Implied: true})
		}

		for i := len(s.Args) - 1; i >= 0; i-- {
			stack = append(stack, s.Args[i])
		}
	}
	return nil
}

// converterFor maps a generic shape to its converter.
func (r *Resolver) converterFor(s, root *shape.TypeShape) (Converter, *shape.UnsupportedShapeError) {
	cat, ok := shape.Classify(s.Name)
	if !ok {
		return Converter{}, &shape.UnsupportedShapeError{Shape: s, Within: root}
	}
	// Rendering the whole shape validates arity, map keys and tuple elements.
	if _, err := r.mapper.GoType(s); err != nil {
		return Converter{}, unsupported(err, s, root)
	}
	if cat == shape.CategoryTuple {
		return tupleConverter, nil
	}

	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		t, err := r.mapper.GoType(a)
		if err != nil {
			return Converter{}, unsupported(err, s, root)
		}
		args[i] = t
	}
	return Converter{Category: cat, TypeArgs: args}, nil
}

func unsupported(err error, s, root *shape.TypeShape) *shape.UnsupportedShapeError {
	var use *shape.UnsupportedShapeError
	if !errors.As(err, &use) {
		return &shape.UnsupportedShapeError{Shape: s, Within: root, Reason: err.Error()}
	}
	use.Within = root
	return use
}

// ReturnGaps lists the generic shapes reachable from fn's return type whose
// converter is not part of res. They are only meaningful when returns were
// not resolved; the runtime needs a decoder for each of them.
func (r *Resolver) ReturnGaps(fn *shape.Function, res *Result) []*shape.TypeShape {
	if fn.ReturnsNothing() || !fn.Returns.IsGeneric() {
		return nil
	}
	var gaps []*shape.TypeShape
	fn.Returns.Walk(func(s *shape.TypeShape) bool {
		if !s.IsGeneric() {
			return true
		}
		c, err := r.converterFor(s, fn.Returns)
		if err == nil && !res.HasDecoder(c.Identity()) {
			gaps = append(gaps, s)
		}
		return true
	})
	return gaps
}

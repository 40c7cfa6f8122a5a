// Package emit renders Go bindings for a Python module.
//
// For each module it produces a BindingUnit made of three independently
// rendered sections: the capability interface, the adapter implementing it
// through the runtime call mechanism, and the one-time converter
// registration block. Functions whose shapes cannot be marshalled are left
// out and reported as diagnostics; the rest of the module is still bound.
package emit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/naming"
	"github.com/funvibe/pybind/internal/resolve"
	"github.com/funvibe/pybind/internal/shape"
	"github.com/funvibe/pybind/internal/typemap"
)

// DefaultRuntimeImport is the runtime facade generated code calls into.
const DefaultRuntimeImport = "github.com/funvibe/pybind/pkg/pyrt"

// Options configures an Emitter.
type Options struct {
	// Package is the Go package name of generated files.
	Package string

	// RuntimeImport is the import path of the runtime facade.
	RuntimeImport string

	// IncludeReturns resolves converters for return shapes too.
	IncludeReturns bool

	// Exclude lists Python function names that are never bound.
	Exclude []string
}

// Emitter renders binding units. It keeps no per-module state and may be
// shared by concurrent workers.
type Emitter struct {
	opts     Options
	alias    string
	mapper   *typemap.Mapper
	resolver *resolve.Resolver
}

// New creates an Emitter.
func New(opts Options) *Emitter {
	if opts.Package == "" {
		opts.Package = "bindings"
	}
	if opts.RuntimeImport == "" {
		opts.RuntimeImport = DefaultRuntimeImport
	}
	alias := naming.ImportAlias(opts.RuntimeImport)
	mapper := typemap.New(alias)
	return &Emitter{
		opts:     opts,
		alias:    alias,
		mapper:   mapper,
		resolver: resolve.New(mapper, resolve.Options{IncludeReturns: opts.IncludeReturns}),
	}
}

// RuntimeAlias returns the identifier generated code uses for the runtime package.
func (e *Emitter) RuntimeAlias() string {
	return e.alias
}

// BoundParam is a parameter of a bound function.
type BoundParam struct {
	Python string
	GoName string
	GoType string
	Shape  *shape.TypeShape
}

// BoundFunction is a Python function that made it into the bindings.
type BoundFunction struct {
	Python  string
	GoName  string
	Params  []BoundParam
	Returns *shape.TypeShape

	// GoReturn is empty for functions returning None.
	GoReturn string
	Line     int
}

// BindingUnit is the rendered binding for one Python module.
type BindingUnit struct {
	Namespace     string
	Module        string
	File          string
	TypeName      string
	RuntimeImport string
	RuntimeAlias  string

	// Interface, Adapter and Registration are the rendered sections.
	Interface    string
	Adapter      string
	Registration string

	// Registrations are the registration statements, encoders first.
	Registrations []string

	Functions   []BoundFunction
	Converters  *resolve.Result
	Diagnostics []diagnostics.Diagnostic
}

// Emit renders the bindings for mod. typeName is the exported Go name of the
// capability interface; when empty it is derived from the module name.
//
// A structurally invalid module yields a *shape.MalformedInputError together
// with a unit carrying only the corresponding diagnostic.
func (e *Emitter) Emit(mod *shape.Module, typeName string) (*BindingUnit, error) {
	if err := shape.Validate(mod); err != nil {
		unit := &BindingUnit{Namespace: e.opts.Package}
		d := diagnostics.New(diagnostics.MalformedInput, "", "", "%v", err)
		if mod != nil {
			unit.Module, unit.File = mod.Name, mod.Path
			d.Module, d.File = mod.Name, mod.Path
		}
		unit.Diagnostics = []diagnostics.Diagnostic{d}
		return unit, err
	}

	if typeName == "" {
		typeName = naming.Pascal(mod.Name)
	}
	unit := &BindingUnit{
		Namespace:     e.opts.Package,
		Module:        mod.Name,
		File:          mod.Path,
		TypeName:      typeName,
		RuntimeImport: e.opts.RuntimeImport,
		RuntimeAlias:  e.alias,
	}

	excluded := make(map[*shape.Function]diagnostics.Diagnostic)
	candidates := e.selectFunctions(mod, excluded)

	res := e.resolver.Resolve(candidates)
	for _, f := range res.Failures {
		excluded[f.Function] = e.unsupportedParam(mod, f)
	}
	unit.Converters = res

	for _, fn := range res.Resolved {
		unit.Functions = append(unit.Functions, e.bind(fn))
	}

	// Report in source order, whatever stage rejected the function.
	for _, fn := range mod.Functions {
		if d, ok := excluded[fn]; ok {
			unit.Diagnostics = append(unit.Diagnostics, d)
		}
	}
	if !e.opts.IncludeReturns {
		for _, fn := range res.Resolved {
			for _, gap := range e.resolver.ReturnGaps(fn, res) {
				d := diagnostics.New(diagnostics.ReturnNeedsDecoder, mod.Name, fn.Name,
					"return type of %s needs a decoder for %s that no parameter registers", fn.Name, gap)
				d.File, d.Line, d.Shape = mod.Path, fn.Line, gap.Name
				unit.Diagnostics = append(unit.Diagnostics, d)
			}
		}
	}

	for _, reg := range res.Registrations() {
		unit.Registrations = append(unit.Registrations, reg.Statement(e.alias))
	}

	unit.Interface = renderInterface(unit)
	unit.Adapter = renderAdapter(unit)
	reg, err := renderRegistration(unit)
	if err != nil {
		return unit, err
	}
	unit.Registration = reg
	return unit, nil
}

// selectFunctions drops excluded names, duplicates and functions whose return
// shape has no Go rendering. The survivors keep their source order.
func (e *Emitter) selectFunctions(mod *shape.Module, excluded map[*shape.Function]diagnostics.Diagnostic) []*shape.Function {
	skip := make(map[string]bool, len(e.opts.Exclude))
	for _, name := range e.opts.Exclude {
		skip[name] = true
	}

	byPython := make(map[string]*shape.Function)
	byGo := make(map[string]*shape.Function)
	var out []*shape.Function

	for _, fn := range mod.Functions {
		if skip[fn.Name] {
			continue
		}
		goName := naming.Pascal(fn.Name)
		if first, ok := byPython[fn.Name]; ok {
			excluded[fn] = e.duplicate(mod, fn, &DuplicateFunctionError{Module: mod.Name, Name: fn.Name, First: first.Line, Line: fn.Line})
			continue
		}
		byPython[fn.Name] = fn
		if first, ok := byGo[goName]; ok {
			excluded[fn] = e.duplicate(mod, fn, &DuplicateFunctionError{Module: mod.Name, Name: fn.Name, GoName: goName, Other: first.Name, First: first.Line, Line: fn.Line})
			continue
		}
		byGo[goName] = fn

		if !fn.ReturnsNothing() {
			if _, err := e.mapper.GoType(fn.Returns); err != nil {
				d := diagnostics.New(diagnostics.UnsupportedReturn, mod.Name, fn.Name,
					"%s: unsupported return shape %s", fn.Name, fn.Returns)
				d.File, d.Line = mod.Path, fn.Line
				var use *shape.UnsupportedShapeError
				if errors.As(err, &use) {
					d.Shape = use.Shape.Name
					d.Message = fmt.Sprintf("%s: unsupported return shape %s", fn.Name, use.Detail())
				}
				excluded[fn] = d
				continue
			}
		}
		out = append(out, fn)
	}
	return out
}

func (e *Emitter) duplicate(mod *shape.Module, fn *shape.Function, err *DuplicateFunctionError) diagnostics.Diagnostic {
	d := diagnostics.New(diagnostics.DuplicateFunction, mod.Name, fn.Name, "%v", err)
	d.File, d.Line = mod.Path, fn.Line
	return d
}

func (e *Emitter) unsupportedParam(mod *shape.Module, f resolve.Failure) diagnostics.Diagnostic {
	where := "return type"
	if f.Param != nil {
		where = fmt.Sprintf("parameter %q", f.Param.Name)
	}
	d := diagnostics.New(diagnostics.UnsupportedShape, mod.Name, f.Function.Name,
		"%s: unsupported parameter shape %s (%s)", f.Function.Name, f.Err.Detail(), where)
	d.File, d.Line, d.Shape = mod.Path, f.Function.Line, f.Err.Shape.Name
	return d
}

// bind computes the Go names and types of a resolved function.
func (e *Emitter) bind(fn *shape.Function) BoundFunction {
	bf := BoundFunction{
		Python:  fn.Name,
		GoName:  naming.Pascal(fn.Name),
		Returns: fn.Returns,
		Line:    fn.Line,
	}
	used := map[string]bool{"ctx": true, e.alias: true}
	for _, p := range fn.Params {
		// Resolution already proved every parameter renders.
		goType, _ := e.mapper.GoType(p.Type)
		name := naming.Camel(p.Name)
		for i := 2; used[name]; i++ {
			name = fmt.Sprintf("%s%d", naming.Camel(p.Name), i)
		}
		used[name] = true
		bf.Params = append(bf.Params, BoundParam{Python: p.Name, GoName: name, GoType: goType, Shape: p.Type})
	}
	if !fn.ReturnsNothing() {
		bf.GoReturn, _ = e.mapper.GoType(fn.Returns)
	}
	return bf
}

// DuplicateFunctionError reports a function whose name, or Go method name,
// is already taken in the module.
type DuplicateFunctionError struct {
	Module string
	Name   string

	// GoName and Other are set when two different Python names map to the
	// same Go method.
	GoName string
	Other  string

	First int
	Line  int
}

func (e *DuplicateFunctionError) Error() string {
	var b strings.Builder
	if e.Other != "" {
		fmt.Fprintf(&b, "function %q collides with %q as Go method %s", e.Name, e.Other, e.GoName)
	} else {
		fmt.Fprintf(&b, "duplicate function name %q", e.Name)
	}
	if e.First > 0 {
		fmt.Fprintf(&b, " (first defined on line %d)", e.First)
	}
	return b.String()
}

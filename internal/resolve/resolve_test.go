package resolve

import (
	"strings"
	"testing"

	"github.com/funvibe/pybind/internal/shape"
	"github.com/funvibe/pybind/internal/typemap"
)

var (
	p = shape.Primitive
	g = shape.Generic
)

func fn(name string, ret *shape.TypeShape, params ...*shape.TypeShape) *shape.Function {
	f := &shape.Function{Name: name, Returns: ret}
	for i, t := range params {
		f.Params = append(f.Params, &shape.Parameter{Name: string(rune('a' + i)), Type: t, Position: i})
	}
	return f
}

func identities(cs []Converter) string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.Identity()
	}
	return strings.Join(ids, "; ")
}

func newResolver(opts Options) *Resolver {
	return New(typemap.New("pyrt"), opts)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		fns  []*shape.Function
		want string
	}{
		{
			name: "geometry",
			fns: []*shape.Function{
				fn("f", p("int"), g("list", p("int"))),
				fn("g", p("None"), g("dict", p("str"), g("list", p("int")))),
			},
			want: "ListConverter[int64]; DictConverter[string, []int64]; TupleConverter",
		},
		{
			name: "primitives only",
			fns:  []*shape.Function{fn("f", p("int"), p("int"), p("str"), p("Any"))},
			want: "",
		},
		{
			name: "nested depth first",
			fns:  []*shape.Function{fn("f", p("None"), g("list", g("dict", p("str"), g("list", p("float")))))},
			want: "ListConverter[map[string][]float64]; DictConverter[string, []float64]; TupleConverter; ListConverter[float64]",
		},
		{
			name: "deduplicated across functions",
			fns: []*shape.Function{
				fn("f", p("None"), g("list", p("int")), g("List", p("int"))),
				fn("g", p("None"), g("Sequence", p("int")), g("tuple", p("int"))),
				fn("h", p("None"), g("Tuple", p("str")), g("dict", p("str"), p("int"))),
			},
			want: "ListConverter[int64]; TupleConverter; DictConverter[string, int64]",
		},
		{
			name: "different element types are different converters",
			fns:  []*shape.Function{fn("f", p("None"), g("list", p("int")), g("list", p("str")))},
			want: "ListConverter[int64]; ListConverter[string]",
		},
		{
			name: "returns ignored by default",
			fns:  []*shape.Function{fn("f", g("list", p("str")), p("int"))},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newResolver(Options{}).Resolve(tt.fns)
			if got := identities(res.Encoders); got != tt.want {
				t.Errorf("encoders = %q; want %q", got, tt.want)
			}
			if got := identities(res.Decoders); got != tt.want {
				t.Errorf("decoders = %q; want %q", got, tt.want)
			}
			if len(res.Failures) != 0 || len(res.Resolved) != len(tt.fns) {
				t.Errorf("failures = %v, resolved = %d", res.Failures, len(res.Resolved))
			}
		})
	}
}

func TestResolve_IncludeReturns(t *testing.T) {
	fns := []*shape.Function{
		fn("f", g("list", p("str")), g("tuple", p("int"))),
		fn("g", g("dict", p("str"), p("int"))),
	}
	res := newResolver(Options{IncludeReturns: true}).Resolve(fns)
	want := "TupleConverter; ListConverter[string]; DictConverter[string, int64]"
	if got := identities(res.Encoders); got != want {
		t.Errorf("encoders = %q; want %q", got, want)
	}
}

func TestResolve_Failures(t *testing.T) {
	fns := []*shape.Function{
		fn("f", p("None"), g("list", p("int"))),
		fn("h", p("None"), p("int"), g("list", g("Custom", p("int")))),
		fn("k", p("None"), g("dict", p("str"), p("float"))),
	}
	res := newResolver(Options{}).Resolve(fns)

	if len(res.Failures) != 1 {
		t.Fatalf("failures = %d; want 1", len(res.Failures))
	}
	f := res.Failures[0]
	if f.Function.Name != "h" || f.Param == nil || f.Param.Name != "b" || f.Err.Shape.Name != "Custom" {
		t.Errorf("failure = %s / %v / %v", f.Function.Name, f.Param, f.Err)
	}
	// h's list[...] must not leak a converter even though it was visited
	// before the unsupported argument.
	want := "ListConverter[int64]; DictConverter[string, float64]; TupleConverter"
	if got := identities(res.Encoders); got != want {
		t.Errorf("encoders = %q; want %q", got, want)
	}
	if len(res.Resolved) != 2 || res.Resolved[0].Name != "f" || res.Resolved[1].Name != "k" {
		t.Errorf("resolved = %v", res.Resolved)
	}
}

func TestResolve_Empty(t *testing.T) {
	res := newResolver(Options{}).Resolve(nil)
	if res.Encoders == nil || res.Decoders == nil {
		t.Error("empty results must be non-nil, empty lists")
	}
	if len(res.Registrations()) != 0 {
		t.Error("no registrations expected")
	}
}

func TestResolve_DeepNesting(t *testing.T) {
	s := p("int")
	for i := 0; i < 500; i++ {
		s = g("list", s)
	}
	res, err := newResolver(Options{}).ResolveShapes(s)
	if err != nil {
		t.Fatalf("ResolveShapes: %v", err)
	}
	if len(res.Encoders) != 500 {
		t.Errorf("encoders = %d; want 500", len(res.Encoders))
	}
}

func TestResolveShapes(t *testing.T) {
	res, err := newResolver(Options{}).ResolveShapes(g("Dict", p("str"), p("int")), g("list", p("str")))
	if err != nil {
		t.Fatalf("ResolveShapes: %v", err)
	}
	if got := identities(res.Encoders); got != "DictConverter[string, int64]; TupleConverter; ListConverter[string]" {
		t.Errorf("encoders = %q", got)
	}
	if _, err := newResolver(Options{}).ResolveShapes(g("Optional", p("int"))); err == nil {
		t.Error("expected an error for Optional[int]")
	}
}

func TestRegistrations(t *testing.T) {
	res := newResolver(Options{}).Resolve([]*shape.Function{fn("g", p("None"), g("dict", p("str"), p("int")))})
	var got []string
	for _, r := range res.Registrations() {
		got = append(got, r.Statement("pyrt"))
	}
	want := []string{
		"pyrt.RegisterEncoder(pyrt.DictConverter[string, int64]{})",
		"pyrt.RegisterEncoder(pyrt.TupleConverter{})",
		"pyrt.RegisterDecoder(pyrt.DictConverter[string, int64]{})",
		"pyrt.RegisterDecoder(pyrt.TupleConverter{})",
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("registrations =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestReturnGaps(t *testing.T) {
	r := newResolver(Options{})
	fns := []*shape.Function{
		fn("f", g("list", p("int")), g("list", p("int"))),
		fn("g", g("dict", p("str"), g("list", p("str"))), p("int")),
		fn("h", p("int")),
	}
	res := r.Resolve(fns)
	if gaps := r.ReturnGaps(fns[0], res); len(gaps) != 0 {
		t.Errorf("f gaps = %v", gaps)
	}
	gaps := r.ReturnGaps(fns[1], res)
	var names []string
	for _, s := range gaps {
		names = append(names, s.String())
	}
	if got := strings.Join(names, ", "); got != "dict[str, list[str]], list[str]" {
		t.Errorf("g gaps = %s", got)
	}
	if gaps := r.ReturnGaps(fns[2], res); gaps != nil {
		t.Errorf("h gaps = %v", gaps)
	}
}

func TestConcurrentResolve(t *testing.T) {
	r := newResolver(Options{})
	fns := []*shape.Function{fn("g", p("None"), g("dict", p("str"), g("list", p("int"))))}
	done := make(chan string, 8)
	for range 8 {
		go func() { done <- identities(r.Resolve(fns).Encoders) }()
	}
	first := <-done
	for range 7 {
		if got := <-done; got != first {
			t.Errorf("concurrent results differ: %q vs %q", got, first)
		}
	}
}

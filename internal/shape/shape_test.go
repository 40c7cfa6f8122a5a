package shape

import (
	"errors"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	tests := []struct {
		shape *TypeShape
		want  string
	}{
		{Primitive("int"), "int"},
		{Generic("list", Primitive("int")), "list[int]"},
		{Generic("dict", Primitive("str"), Generic("list", Primitive("int"))), "dict[str, list[int]]"},
		{Generic("Custom"), "Custom[]"},
		{Generic("list", nil), "list[<nil>]"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		if got := tt.shape.String(); got != tt.want {
			t.Errorf("String() = %q; want %q", got, tt.want)
		}
	}
}

func TestWalk(t *testing.T) {
	s := Generic("dict", Primitive("str"), Generic("list", Generic("tuple", Primitive("int"), Primitive("str"))))
	var names []string
	s.Walk(func(n *TypeShape) bool {
		names = append(names, n.Name)
		return true
	})
	if got := strings.Join(names, " "); got != "dict str list tuple int str" {
		t.Errorf("walk order = %s", got)
	}

	names = nil
	s.Walk(func(n *TypeShape) bool {
		names = append(names, n.Name)
		return n.Name != "list"
	})
	if got := strings.Join(names, " "); got != "dict str list" {
		t.Errorf("early stop = %s", got)
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]Category{
		"list":           CategorySequence,
		"Iterable":       CategorySequence,
		"frozenset":      CategorySequence,
		"Dict":           CategoryMapping,
		"MutableMapping": CategoryMapping,
		"Tuple":          CategoryTuple,
	}
	for name, want := range tests {
		got, ok := Classify(name)
		if !ok || got != want {
			t.Errorf("Classify(%q) = %v, %v; want %v", name, got, ok, want)
		}
	}
	for _, name := range []string{"Custom", "Optional", "Union", "LIST", "int"} {
		if IsRecognizedGeneric(name) {
			t.Errorf("%s must not be recognised", name)
		}
	}
	if CategorySequence.Arity() != 1 || CategoryMapping.Arity() != 2 || CategoryTuple.Arity() != -1 {
		t.Error("unexpected arities")
	}
}

func TestReturnsNothing(t *testing.T) {
	for _, tt := range []struct {
		returns *TypeShape
		want    bool
	}{
		{nil, true},
		{Primitive("None"), true},
		{Primitive("int"), false},
		{Generic("None", Primitive("int")), false},
	} {
		fn := &Function{Name: "f", Returns: tt.returns}
		if got := fn.ReturnsNothing(); got != tt.want {
			t.Errorf("ReturnsNothing(%v) = %v", tt.returns, got)
		}
	}
}

func validModule() *Module {
	return &Module{Name: "geometry", Functions: []*Function{
		{Name: "f", Params: []*Parameter{{Name: "xs", Type: Generic("list", Primitive("int")), Position: 0}}, Returns: Primitive("int")},
		{Name: "g", Params: []*Parameter{}, Returns: Primitive("None")},
	}}
}

func TestValidate(t *testing.T) {
	if err := Validate(validModule()); err != nil {
		t.Fatalf("valid module rejected: %v", err)
	}
	if err := Validate(&Module{Name: "empty", Functions: []*Function{}}); err != nil {
		t.Errorf("empty module rejected: %v", err)
	}
	// Unknown generics are the resolver's concern, not a structural problem.
	m := validModule()
	m.Functions[0].Params[0].Type = Generic("Custom", Primitive("int"))
	if err := Validate(m); err != nil {
		t.Errorf("unknown generic rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Module)
		want   string
	}{
		{"no name", func(m *Module) { m.Name = "" }, "module name is empty"},
		{"absent list", func(m *Module) { m.Functions = nil }, "signature list is absent"},
		{"nil function", func(m *Module) { m.Functions[1] = nil }, "functions[1] is nil"},
		{"nameless function", func(m *Module) { m.Functions[1].Name = "" }, "functions[1]: name is empty"},
		{"nil return", func(m *Module) { m.Functions[0].Returns = nil }, "f: return shape is nil"},
		{"nil param", func(m *Module) { m.Functions[0].Params[0] = nil }, "f: params[0] is nil"},
		{"bad position", func(m *Module) { m.Functions[0].Params[0].Position = 3 }, `param "xs" has position 3, want 0`},
		{"nil shape", func(m *Module) { m.Functions[0].Params[0].Type = nil }, `param "xs": shape is nil`},
		{"empty shape name", func(m *Module) { m.Functions[0].Params[0].Type = Generic("list", Primitive("")) }, "shape name is empty"},
		{"nil arg", func(m *Module) { m.Functions[0].Params[0].Type = Generic("list", nil) }, "list has a nil type argument"},
		{"argless generic", func(m *Module) { m.Functions[0].Params[0].Type = Generic("list") }, "generic list has no type arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validModule()
			tt.mutate(m)
			err := Validate(m)
			var malformed *MalformedInputError
			if !errors.As(err, &malformed) {
				t.Fatalf("Validate = %v; want *MalformedInputError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("nil module accepted")
	}
}

func TestValidate_DepthLimit(t *testing.T) {
	s := Primitive("int")
	for i := 0; i < maxDepth+2; i++ {
		s = Generic("list", s)
	}
	m := &Module{Name: "deep", Functions: []*Function{{Name: "f", Params: []*Parameter{{Name: "x", Type: s}}, Returns: Primitive("None")}}}
	if err := Validate(m); err == nil || !strings.Contains(err.Error(), "nesting exceeds limit") {
		t.Errorf("Validate = %v", err)
	}
}

func TestUnsupportedShapeError(t *testing.T) {
	inner := Generic("Custom", Primitive("int"))
	err := &UnsupportedShapeError{Shape: inner, Within: Generic("list", inner)}
	if got := err.Error(); got != "unsupported shape Custom in list[Custom[int]]" {
		t.Errorf("Error() = %q", got)
	}
	err = &UnsupportedShapeError{Shape: inner, Within: inner, Reason: "bad"}
	if got := err.Detail(); got != "Custom: bad" {
		t.Errorf("Detail() = %q", got)
	}
}

package pyparse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/pybind/internal/diagnostics"
)

func TestParse_Signatures(t *testing.T) {
	src := `"""Module docstring mentioning def fake(x): pass."""
import typing
from collections.abc import Sequence

CONSTANT = 3

@decorator(arg=1)
def f(xs: list[int]) -> int:
    return sum(xs)

async def g(m: typing.Dict[str, typing.List[int]], flag: bool = True,
            name="x, y") -> None:
    def inner(y: set[str]) -> None:
        pass

class Widget:
    def method(self, a: list[str]) -> None:
        pass

def h(a, b: 'Sequence[float]' = (1, 2), /) -> dict[str, tuple[int, str]]: ...
def k(): pass
`
	mod, diags := Parse("sample", "sample.py", src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}

	tests := []struct {
		name    string
		line    int
		params  []string
		returns string
	}{
		{"f", 8, []string{"xs: list[int]"}, "int"},
		{"g", 11, []string{"m: Dict[str, List[int]]", "flag: bool", "name: Any"}, "None"},
		{"h", 20, []string{"a: Any", "b: Sequence[float]"}, "dict[str, tuple[int, str]]"},
		{"k", 21, nil, "None"},
	}
	if len(mod.Functions) != len(tests) {
		t.Fatalf("expected %d functions, got %d", len(tests), len(mod.Functions))
	}
	for i, tt := range tests {
		fn := mod.Functions[i]
		if fn.Name != tt.name {
			t.Errorf("function %d: name = %q, want %q", i, fn.Name, tt.name)
			continue
		}
		if fn.Line != tt.line {
			t.Errorf("%s: line = %d, want %d", fn.Name, fn.Line, tt.line)
		}
		if len(fn.Params) != len(tt.params) {
			t.Errorf("%s: %d params, want %d", fn.Name, len(fn.Params), len(tt.params))
			continue
		}
		for j, p := range fn.Params {
			if got := p.Name + ": " + p.Type.String(); got != tt.params[j] {
				t.Errorf("%s param %d = %q, want %q", fn.Name, j, got, tt.params[j])
			}
			if p.Position != j {
				t.Errorf("%s param %d position = %d", fn.Name, j, p.Position)
			}
		}
		if got := fn.Returns.String(); got != tt.returns {
			t.Errorf("%s returns %q, want %q", fn.Name, got, tt.returns)
		}
	}
}

func TestParse_EmptyModule(t *testing.T) {
	mod, diags := Parse("empty", "", "# nothing here\n\nX = 1\n")
	if mod.Functions == nil {
		t.Error("Functions must be non-nil for an empty module")
	}
	if len(mod.Functions) != 0 || len(diags) != 0 {
		t.Errorf("got %d functions, %d diagnostics", len(mod.Functions), len(diags))
	}
}

func TestParse_RejectedSignatures(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"varargs", "def bad(*args: int) -> None: ...\n"},
		{"kwargs", "def bad(**kwargs) -> None: ...\n"},
		{"keyword only", "def bad(a: int, *, b: int) -> None: ...\n"},
		{"duplicate parameter", "def bad(a, a): ...\n"},
		{"broken annotation", "def bad(a: list[]) -> None: ...\n"},
		{"bad string annotation", "def bad(a: 'list[') -> None: ...\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := tt.src + "def good(x: int) -> int: ...\n"
			mod, diags := Parse("m", "m.py", src)
			if len(diags) != 1 {
				t.Fatalf("expected 1 diagnostic, got %v", diags)
			}
			d := diags[0]
			if d.Code != diagnostics.ParseError || d.Function != "bad" || d.Line != 1 {
				t.Errorf("diagnostic = %+v", d)
			}
			if d.Severity != diagnostics.SeverityError {
				t.Errorf("severity = %v, want error", d.Severity)
			}
			if len(mod.Functions) == 0 || mod.Functions[len(mod.Functions)-1].Name != "good" {
				t.Errorf("following function was not parsed: %v", mod.Functions)
			}
		})
	}
}

func TestParse_UnterminatedParameterList(t *testing.T) {
	// An unclosed bracket swallows the rest of the file, as in Python.
	mod, diags := Parse("m", "m.py", "def bad(a: list[int]\ndef good(x: int) -> int: ...\n")
	if len(diags) != 1 || diags[0].Function != "bad" {
		t.Fatalf("diagnostics = %v", diags)
	}
	if len(mod.Functions) != 0 {
		t.Errorf("expected no functions, got %d", len(mod.Functions))
	}
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"int", "int"},
		{"typing.List[int]", "List[int]"},
		{"collections.abc.Mapping[str, bytes]", "Mapping[str, bytes]"},
		{"dict[str, list[int]]", "dict[str, list[int]]"},
		{"int | None", "Union[int, None]"},
		{"list[int | str]", "list[Union[int, str]]"},
		{"tuple[int, ...]", "tuple[int, ...]"},
		{"Callable[[int, str], bool]", "Callable[ParamList[int, str], bool]"},
		{"Literal['a', -1]", "Literal['a', -1]"},
		{"'Custom[int]'", "Custom[int]"},
		{"list['Node']", "list[Node]"},
		{"(int)", "int"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := ParseAnnotation(tt.src)
			if err != nil {
				t.Fatalf("ParseAnnotation(%q): %v", tt.src, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAnnotation(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestParseAnnotation_Errors(t *testing.T) {
	for _, src := range []string{"", "list[", "list[]", "a.", "int int", "dict[str,, int]"} {
		if _, err := ParseAnnotation(src); err == nil {
			t.Errorf("ParseAnnotation(%q) should fail", src)
		}
	}
}

func TestParseAnnotation_NestingLimit(t *testing.T) {
	nest := func(n int, inner string) string {
		return strings.Repeat("list[", n) + inner + strings.Repeat("]", n)
	}
	if _, err := ParseAnnotation(nest(100, "int")); err != nil {
		t.Errorf("100 levels: %v", err)
	}
	if _, err := ParseAnnotation(nest(200, "int")); err == nil {
		t.Error("200 levels should exceed the limit")
	}
	// Quoted forward references share the limit with the enclosing annotation.
	if _, err := ParseAnnotation(nest(100, "'"+nest(100, "int")+"'")); err == nil {
		t.Error("quoting must not reset the nesting limit")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "geometry.py")
	if err := os.WriteFile(path, []byte("def area(w: float, h: float) -> float: ...\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	mod, diags, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if mod.Name != "geometry" || mod.Path != path {
		t.Errorf("module = %q (%s)", mod.Name, mod.Path)
	}
	if len(diags) != 0 || len(mod.Functions) != 1 {
		t.Errorf("got %d functions, %v", len(mod.Functions), diags)
	}

	if _, _, err := ParseFile(filepath.Join(dir, "missing.py")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

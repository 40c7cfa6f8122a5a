package pipeline

import (
	"context"
	"go/parser"
	"go/token"
	"testing"

	"github.com/funvibe/pybind/internal/emit"
)

// FuzzPipeline runs the whole chain on arbitrary Python source. Whatever
// gets bound, the generated file must be valid Go.
func FuzzPipeline(f *testing.F) {
	f.Add(geometrySource)
	f.Add("def ctx(ctx: int, pyrt: str, type: bool) -> dict[int, set[float]]: ...\n")
	f.Add("def _(x): ...\ndef __(y): ...\ndef f2d(a: tuple[int, str], b: frozenset[bytes]) -> None: ...\n")
	f.Add("def f(x: list[1], y: 'int', z: Literal['a']) -> Iterator[complex]: ...\n")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4096 {
			return
		}
		ctx := Default(emit.Options{}).Run(NewPipelineContext(context.Background(), "fuzz.py", src))
		if ctx.Err != nil {
			return
		}
		if _, err := parser.ParseFile(token.NewFileSet(), "fuzz.pybind.go", ctx.Output, parser.AllErrors); err != nil {
			t.Fatalf("generated source does not parse: %v\ninput:\n%s\noutput:\n%s", err, src, ctx.Output)
		}
	})
}

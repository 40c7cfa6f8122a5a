package pyparse

import (
	"testing"

	"github.com/funvibe/pybind/internal/shape"
)

// FuzzParse feeds arbitrary source to the signature parser. Whatever the
// input, the parser must terminate without panicking and only return
// structurally valid signatures.
func FuzzParse(f *testing.F) {
	f.Add("def f(xs: list[int]) -> int: ...\n")
	f.Add("async def g(m: Dict[str, List[int]], *, k: int = 1) -> None:\n    pass\n")
	f.Add("@decorator\ndef h(c: 'Custom[int]' = lambda x: (x, [1, 2])) -> tuple[int, ...]: ...\n")
	f.Add("class C:\n    def method(self): ...\ndef top[T](x: T | None) -> Callable[[int], str]: ...\n")
	f.Add("def broken(x: list[\n")
	f.Add("s = '''def fake(): ...'''\ndef real(b: bytes = b\"\\x00\") -> bool: ...\n")

	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 4096 {
			return
		}
		mod, _ := Parse("fuzz", "fuzz.py", src)
		if mod == nil || mod.Functions == nil {
			t.Fatal("Parse must always return a module with a non-nil function list")
		}
		if err := shape.Validate(mod); err != nil {
			t.Fatalf("parser produced malformed signatures: %v\nsource:\n%s", err, src)
		}
	})
}

func FuzzParseAnnotation(f *testing.F) {
	for _, seed := range []string{
		"int", "list[int]", "dict[str, list[int]]", "typing.Optional[int]",
		"'list[int]'", "int | None", "Literal['a', 1]", "Callable[[int, str], None]",
		"tuple[()]", "list[]", "[[[[", "((int))",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, src string) {
		if len(src) > 1024 {
			return
		}
		s, err := ParseAnnotation(src)
		if err == nil && s == nil {
			t.Fatal("nil shape without an error")
		}
	})
}

package shape

import "fmt"

// maxDepth bounds shape nesting. Python annotations cannot self-reference,
// so anything deeper comes from a broken producer.
const maxDepth = 256

// Validate checks the structural contract of a module's signatures.
// It does not look at whether shapes are supported; that is the resolver's job.
func Validate(m *Module) error {
	if m == nil {
		return &MalformedInputError{Module: "", Problems: []string{"module is nil"}}
	}
	var problems []string
	addf := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if m.Name == "" {
		addf("module name is empty")
	}
	if m.Functions == nil {
		addf("signature list is absent")
	}

	for i, fn := range m.Functions {
		if fn == nil {
			addf("functions[%d] is nil", i)
			continue
		}
		if fn.Name == "" {
			addf("functions[%d]: name is empty", i)
		}
		if fn.Returns == nil {
			addf("%s: return shape is nil", fnLabel(fn, i))
		} else if p := checkShape(fn.Returns, 0); p != "" {
			addf("%s: return %s", fnLabel(fn, i), p)
		}
		for j, p := range fn.Params {
			if p == nil {
				addf("%s: params[%d] is nil", fnLabel(fn, i), j)
				continue
			}
			if p.Name == "" {
				addf("%s: params[%d]: name is empty", fnLabel(fn, i), j)
			}
			if p.Position != j {
				addf("%s: param %q has position %d, want %d", fnLabel(fn, i), p.Name, p.Position, j)
			}
			if p.Type == nil {
				addf("%s: param %q: shape is nil", fnLabel(fn, i), p.Name)
			} else if msg := checkShape(p.Type, 0); msg != "" {
				addf("%s: param %q: %s", fnLabel(fn, i), p.Name, msg)
			}
		}
	}

	if len(problems) > 0 {
		return &MalformedInputError{Module: m.Name, Problems: problems}
	}
	return nil
}

func fnLabel(fn *Function, i int) string {
	if fn.Name == "" {
		return fmt.Sprintf("functions[%d]", i)
	}
	return fn.Name
}

func checkShape(s *TypeShape, depth int) string {
	if depth > maxDepth {
		return "shape nesting exceeds limit"
	}
	if s.Name == "" {
		return "shape name is empty"
	}
	if s.IsGeneric() && len(s.Args) == 0 && IsRecognizedGeneric(s.Name) {
		return fmt.Sprintf("generic %s has no type arguments", s.Name)
	}
	for _, a := range s.Args {
		if a == nil {
			return fmt.Sprintf("%s has a nil type argument", s.Name)
		}
		if msg := checkShape(a, depth+1); msg != "" {
			return msg
		}
	}
	return ""
}

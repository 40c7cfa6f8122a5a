package emit

import (
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/dave/jennifer/jen"

	"github.com/funvibe/pybind/internal/naming"
	"github.com/funvibe/pybind/internal/resolve"
)

// renderInterface renders the capability interface: one method per bound
// function, in source order.
func renderInterface(u *BindingUnit) string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "// %s exposes the functions of the Python module %q.\n", u.TypeName, u.Module)
	if len(u.Functions) == 0 {
		fmt.Fprintf(&buf, "type %s interface{}\n", u.TypeName)
		return buf.String()
	}
	fmt.Fprintf(&buf, "type %s interface {\n", u.TypeName)
	for i, fn := range u.Functions {
		if i > 0 {
			buf.WriteString("\n")
		}
		fmt.Fprintf(&buf, "\t// %s calls %s.\n", fn.GoName, pythonSignature(fn))
		fmt.Fprintf(&buf, "\t%s\n", methodSignature(fn))
	}
	buf.WriteString("}\n")
	return buf.String()
}

// renderAdapter renders the constructor, the adapter type and one
// pass-through method per bound function.
func renderAdapter(u *BindingUnit) string {
	adapter := adapterName(u.TypeName)
	var buf strings.Builder

	fmt.Fprintf(&buf, "// New%s binds the Python module %q imported from env.\n", u.TypeName, u.Module)
	fmt.Fprintf(&buf, "func New%s(env %s.Environment) (%s, error) {\n", u.TypeName, u.RuntimeAlias, u.TypeName)
	if len(u.Registrations) > 0 {
		fmt.Fprintf(&buf, "\t%s()\n", registerFuncName(u.TypeName))
	}
	fmt.Fprintf(&buf, "\tmod, err := env.Import(%s)\n", strconv.Quote(u.Module))
	buf.WriteString("\tif err != nil {\n")
	buf.WriteString("\t\treturn nil, err\n")
	buf.WriteString("\t}\n")
	fmt.Fprintf(&buf, "\treturn &%s{module: mod}, nil\n", adapter)
	buf.WriteString("}\n\n")

	fmt.Fprintf(&buf, "type %s struct {\n", adapter)
	fmt.Fprintf(&buf, "\tmodule %s.Module\n", u.RuntimeAlias)
	buf.WriteString("}\n")

	for _, fn := range u.Functions {
		buf.WriteString("\n")
		fmt.Fprintf(&buf, "func (a *%s) %s {\n", adapter, methodSignature(fn))
		args := []string{"ctx", "a.module", strconv.Quote(fn.Python)}
		for _, p := range fn.Params {
			args = append(args, p.GoName)
		}
		if fn.GoReturn == "" {
			fmt.Fprintf(&buf, "\treturn %s.CallVoid(%s)\n", u.RuntimeAlias, strings.Join(args, ", "))
		} else {
			fmt.Fprintf(&buf, "\treturn %s.Call[%s](%s)\n", u.RuntimeAlias, fn.GoReturn, strings.Join(args, ", "))
		}
		buf.WriteString("}\n")
	}
	return buf.String()
}

// renderRegistration renders the once-guarded block that installs every
// encoder, then every decoder, before the first binding is created. A module
// that needs no converters gets no block.
func renderRegistration(u *BindingUnit) (string, error) {
	if len(u.Registrations) == 0 {
		return "", nil
	}
	once := onceName(u.TypeName)
	register := registerFuncName(u.TypeName)

	calls := make([]jen.Code, 0, len(u.Converters.Registrations()))
	for _, reg := range u.Converters.Registrations() {
		calls = append(calls, registrationCode(u.RuntimeAlias, reg))
	}

	decl := jen.Var().Id(once).Id("sync").Dot("Once")
	fn := jen.Func().Id(register).Params().Block(
		jen.Id(once).Dot("Do").Call(jen.Func().Params().Block(calls...)),
	)

	var buf strings.Builder
	for i, stmt := range []*jen.Statement{decl, fn} {
		if i > 0 {
			buf.WriteString("\n")
			fmt.Fprintf(&buf, "// %s installs the converters %s needs.\n", register, u.TypeName)
		}
		if err := stmt.Render(&buf); err != nil {
			return "", fmt.Errorf("rendering registration for %s: %w", u.TypeName, err)
		}
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

// registrationCode renders e.g. pyrt.RegisterEncoder(pyrt.ListConverter[int64]{}).
func registrationCode(alias string, reg resolve.Registration) jen.Code {
	fn := "RegisterEncoder"
	if reg.Direction == resolve.Decoder {
		fn = "RegisterDecoder"
	}
	conv := jen.Id(alias).Dot(reg.Converter.Name())
	if len(reg.Converter.TypeArgs) > 0 {
		args := make([]jen.Code, len(reg.Converter.TypeArgs))
		for i, t := range reg.Converter.TypeArgs {
			args[i] = jen.Id(t)
		}
		conv = conv.Types(args...)
	}
	return jen.Id(alias).Dot(fn).Call(conv.Values())
}

// PackageNames lists the package-level identifiers a binding for typeName
// declares, so modules sharing an output package can be checked for clashes.
func PackageNames(typeName string) []string {
	return []string{
		typeName,
		"New" + typeName,
		adapterName(typeName),
		registerFuncName(typeName),
		onceName(typeName),
	}
}

func onceName(typeName string) string {
	return naming.Unexported(typeName) + "ConvertersOnce"
}

func adapterName(typeName string) string {
	return naming.Unexported(typeName) + "Adapter"
}

func registerFuncName(typeName string) string {
	return "register" + typeName + "Converters"
}

// methodSignature renders "Name(ctx context.Context, x int64) (T, error)".
func methodSignature(fn BoundFunction) string {
	params := []string{"ctx context.Context"}
	for _, p := range fn.Params {
		params = append(params, p.GoName+" "+p.GoType)
	}
	result := "error"
	if fn.GoReturn != "" {
		result = "(" + fn.GoReturn + ", error)"
	}
	return fmt.Sprintf("%s(%s) %s", fn.GoName, strings.Join(params, ", "), result)
}

// pythonSignature renders the original def for doc comments.
func pythonSignature(fn BoundFunction) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Python + ": " + p.Shape.String()
	}
	ret := "None"
	if fn.Returns != nil {
		ret = fn.Returns.String()
	}
	return fmt.Sprintf("%s(%s) -> %s", fn.Python, strings.Join(params, ", "), ret)
}

// Source renders the complete Go file for the unit.
func (u *BindingUnit) Source() (string, error) {
	tmpl, err := template.New("binding").Parse(bindingFileTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	source := u.File
	if source == "" {
		source = u.Module + ".py"
	}
	var sections []string
	for _, sec := range []string{u.Interface, u.Adapter, u.Registration} {
		if sec != "" {
			sections = append(sections, sec)
		}
	}
	data := struct {
		Package       string
		Source        string
		RuntimeAlias  string
		RuntimeImport string
		NeedsSync     bool
		Sections      []string
	}{
		Package:       u.Namespace,
		Source:        source,
		RuntimeAlias:  u.RuntimeAlias,
		RuntimeImport: u.RuntimeImport,
		NeedsSync:     u.Registration != "",
		Sections:      sections,
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// Templates

const bindingFileTemplate = `// Code generated by pybind from {{.Source}}. DO NOT EDIT.

package {{.Package}}

import (
	"context"
{{- if .NeedsSync}}
	"sync"
{{- end}}

	{{.RuntimeAlias}} "{{.RuntimeImport}}"
)

// Suppress unused import warnings
var _ = context.Background
{{- range .Sections}}

{{.}}
{{- end}}
`

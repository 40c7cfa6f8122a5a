// Package diagnostics defines the messages a generation pass reports.
package diagnostics

import (
	"fmt"
	"strings"
)

// Code is a stable diagnostic identifier that tooling can match on.
type Code string

const (
	UnsupportedShape   Code = "PYB001" // unsupported parameter shape
	Generated          Code = "PYB002" // binding generated
	DuplicateFunction  Code = "PYB003" // duplicate function name
	MalformedInput     Code = "PYB004" // malformed signature input
	ReturnNeedsDecoder Code = "PYB005" // return shape needs a decoder that is not registered
	ParseError         Code = "PYB006" // Python signature parse error
	UnsupportedReturn  Code = "PYB007" // unsupported return shape
)

// Severity orders diagnostics by how much attention they need.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalText lets severities appear as words in YAML manifests.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the textual form produced by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	case "info":
		*s = SeverityInfo
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// severities fixes the severity of every code.
var severities = map[Code]Severity{
	UnsupportedShape:   SeverityError,
	Generated:          SeverityInfo,
	DuplicateFunction:  SeverityError,
	MalformedInput:     SeverityError,
	ReturnNeedsDecoder: SeverityWarning,
	ParseError:         SeverityError,
	UnsupportedReturn:  SeverityError,
}

// SeverityOf returns the severity attached to a code.
func SeverityOf(c Code) Severity {
	return severities[c]
}

// Diagnostic is one message produced while generating a module.
type Diagnostic struct {
	Code     Code     `yaml:"code"`
	Severity Severity `yaml:"severity"`

	// Module is the Python module name.
	Module string `yaml:"module,omitempty"`

	// File is the source path, when known.
	File string `yaml:"file,omitempty"`

	// Line is the 1-based source line, 0 when unknown.
	Line int `yaml:"line,omitempty"`

	// Function names the function the diagnostic is about, if any.
	Function string `yaml:"function,omitempty"`

	// Shape names the offending shape for shape diagnostics.
	Shape string `yaml:"shape,omitempty"`

	Message string `yaml:"message"`
}

// New creates a diagnostic with the severity of its code.
func New(code Code, module, function, format string, args ...any) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: SeverityOf(code),
		Module:   module,
		Function: function,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsError reports whether the diagnostic should fail a build.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// String formats the diagnostic the way compilers do:
// "file:line: error PYB001: message".
func (d Diagnostic) String() string {
	var b strings.Builder
	switch {
	case d.File != "" && d.Line > 0:
		fmt.Fprintf(&b, "%s:%d: ", d.File, d.Line)
	case d.File != "":
		fmt.Fprintf(&b, "%s: ", d.File)
	case d.Module != "":
		fmt.Fprintf(&b, "%s: ", d.Module)
	}
	fmt.Fprintf(&b, "%s %s: %s", d.Severity, d.Code, d.Message)
	return b.String()
}

// HasErrors reports whether any diagnostic in ds is an error.
func HasErrors(ds []Diagnostic) bool {
	for _, d := range ds {
		if d.IsError() {
			return true
		}
	}
	return false
}

// Count returns the number of diagnostics with the given severity.
func Count(ds []Diagnostic, sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Package manifest records, per generation pass, which bindings and
// converters were produced for each module.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/emit"
	"github.com/funvibe/pybind/internal/resolve"
)

// Manifest is the YAML document written next to the generated bindings.
type Manifest struct {
	PassID  string   `yaml:"pass_id"`
	Package string   `yaml:"package"`
	Runtime string   `yaml:"runtime"`
	Modules []Module `yaml:"modules"`
}

// Module describes the bindings of one Python module.
type Module struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source,omitempty"`
	Output   string `yaml:"output,omitempty"`
	TypeName string `yaml:"type_name,omitempty"`

	Functions []Function `yaml:"functions"`

	// Encoders and Decoders list converter identities in registration order.
	Encoders []string `yaml:"encoders"`
	Decoders []string `yaml:"decoders"`

	Diagnostics []diagnostics.Diagnostic `yaml:"diagnostics,omitempty"`
}

// Function is one bound function.
type Function struct {
	Python string `yaml:"python"`
	Go     string `yaml:"go"`
	Line   int    `yaml:"line,omitempty"`
}

// FromUnit summarizes a binding unit. source and output are recorded as
// given, so callers decide whether paths are relative.
func FromUnit(u *emit.BindingUnit, source, output string) Module {
	m := Module{
		Name:        u.Module,
		Source:      source,
		Output:      output,
		TypeName:    u.TypeName,
		Functions:   []Function{},
		Encoders:    []string{},
		Decoders:    []string{},
		Diagnostics: u.Diagnostics,
	}
	for _, fn := range u.Functions {
		m.Functions = append(m.Functions, Function{Python: fn.Python, Go: fn.GoName, Line: fn.Line})
	}
	if u.Converters != nil {
		m.Encoders = identities(u.Converters.Encoders)
		m.Decoders = identities(u.Converters.Decoders)
	}
	return m
}

func identities(cs []resolve.Converter) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Identity()
	}
	return out
}

// New creates an empty manifest.
func New(passID, pkg, runtime string) *Manifest {
	return &Manifest{PassID: passID, Package: pkg, Runtime: runtime, Modules: []Module{}}
}

// Add appends a module entry.
func (m *Manifest) Add(mod Module) {
	m.Modules = append(m.Modules, mod)
}

// Marshal renders the manifest with modules sorted by name, so the
// document does not depend on worker completion order.
func (m *Manifest) Marshal() ([]byte, error) {
	sort.SliceStable(m.Modules, func(i, j int) bool { return m.Modules[i].Name < m.Modules[j].Name })
	return encode(m)
}

// Write marshals the manifest to path.
func (m *Manifest) Write(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating manifest dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// Read loads a manifest written by Write.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &m, nil
}

// EncodeModule serializes one module entry for the cache.
func EncodeModule(mod Module) ([]byte, error) {
	return encode(mod)
}

// DecodeModule restores an entry serialized by EncodeModule.
func DecodeModule(data []byte) (Module, error) {
	var mod Module
	if err := yaml.Unmarshal(data, &mod); err != nil {
		return Module{}, fmt.Errorf("decoding manifest entry: %w", err)
	}
	return mod, nil
}

func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

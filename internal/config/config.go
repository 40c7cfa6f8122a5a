// Package config loads pybind.yaml, the project file that tells the
// generator which Python modules to bind and where to put the result.
package config

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/pybind/internal/naming"
)

// Config represents the top-level pybind.yaml configuration.
type Config struct {
	// Package is the Go package name of generated files.
	Package string `yaml:"package,omitempty"`

	// Runtime is the import path of the runtime facade generated code calls.
	Runtime string `yaml:"runtime,omitempty"`

	// Out is the output directory, relative to the config file.
	Out string `yaml:"out,omitempty"`

	// Sources are glob patterns of Python files, relative to the config file.
	Sources []string `yaml:"sources,omitempty"`

	// ResolveReturns adds return shapes to converter resolution.
	ResolveReturns bool `yaml:"resolve_returns,omitempty"`

	// Workers bounds how many modules are generated in parallel.
	// Zero selects the default.
	Workers int `yaml:"workers,omitempty"`

	// Cache is the sqlite cache path. Set it to "off" to disable caching.
	Cache string `yaml:"cache,omitempty"`

	// Manifest is the converter manifest path. Set it to "off" to skip it.
	Manifest string `yaml:"manifest,omitempty"`

	// Modules holds per-module overrides.
	Modules []ModuleSpec `yaml:"modules,omitempty"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// ModuleSpec overrides generation for one Python file.
type ModuleSpec struct {
	// File is the Python source path, relative to the config file.
	File string `yaml:"file"`

	// TypeName overrides the derived Go interface name.
	TypeName string `yaml:"type_name,omitempty"`

	// Exclude lists Python functions that are never bound.
	Exclude []string `yaml:"exclude,omitempty"`
}

// Default returns the configuration used when no pybind.yaml exists.
func Default(dir string) *Config {
	cfg := &Config{Dir: dir}
	cfg.setDefaults()
	return cfg
}

// LoadConfig reads and parses a pybind.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg, err := ParseConfig(data, path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	cfg.Dir = abs
	return cfg, nil
}

// ParseConfig parses pybind.yaml content from bytes.
// The path argument is used only for error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

// FindConfig searches for pybind.yaml starting from dir and walking up
// to parent directories.
// Returns the path to the config file and nil error if found,
// or empty string and nil error if not found.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return "", nil
		}
		dir = parent
	}
}

// validate checks the configuration for semantic errors.
func (c *Config) validate(path string) error {
	if c.Package != "" && !naming.IsIdentifier(c.Package) {
		return fmt.Errorf("%s: package %q is not a valid Go identifier", path, c.Package)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%s: workers must not be negative, got %d", path, c.Workers)
	}
	for i, pattern := range c.Sources {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%s: sources[%d]: invalid pattern %q: %w", path, i, pattern, err)
		}
	}

	seenFiles := make(map[string]int)
	seenTypes := make(map[string]int)
	for i, m := range c.Modules {
		if m.File == "" {
			return fmt.Errorf("%s: modules[%d]: file is required", path, i)
		}
		file := filepath.Clean(m.File)
		if j, ok := seenFiles[file]; ok {
			return fmt.Errorf("%s: modules[%d]: file %q already configured by modules[%d]", path, i, m.File, j)
		}
		seenFiles[file] = i

		if m.TypeName != "" {
			if !naming.IsIdentifier(m.TypeName) || !naming.IsExported(m.TypeName) {
				return fmt.Errorf("%s: modules[%d] (%s): type_name %q must be an exported Go identifier", path, i, m.File, m.TypeName)
			}
			if j, ok := seenTypes[m.TypeName]; ok {
				return fmt.Errorf("%s: modules[%d] (%s): type_name %q already used by modules[%d]", path, i, m.File, m.TypeName, j)
			}
			seenTypes[m.TypeName] = i
		}
		for j, name := range m.Exclude {
			if name == "" {
				return fmt.Errorf("%s: modules[%d].exclude[%d] (%s): empty function name", path, i, j, m.File)
			}
		}
	}
	return nil
}

// setDefaults fills in default values for optional fields.
func (c *Config) setDefaults() {
	if c.Package == "" {
		c.Package = DefaultPackage
	}
	if c.Runtime == "" {
		c.Runtime = DefaultRuntime
	}
	if c.Out == "" {
		c.Out = DefaultOut
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.Cache == "" {
		c.Cache = DefaultCache
	}
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
}

// Path resolves p against the config directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// OutDir returns the resolved output directory.
func (c *Config) OutDir() string { return c.Path(c.Out) }

// CachePath returns the resolved cache path, or "" when caching is off.
func (c *Config) CachePath() string {
	if c.Cache == Off {
		return ""
	}
	return c.Path(c.Cache)
}

// ManifestPath returns the resolved manifest path, or "" when it is off.
func (c *Config) ManifestPath() string {
	if c.Manifest == Off {
		return ""
	}
	return c.Path(c.Manifest)
}

// ModuleFor returns the overrides for the Python file at path, if any.
func (c *Config) ModuleFor(path string) (ModuleSpec, bool) {
	for _, m := range c.Modules {
		if samePath(c.Path(m.File), path) {
			return m, true
		}
	}
	return ModuleSpec{}, false
}

func samePath(a, b string) bool {
	a, errA := filepath.Abs(a)
	b, errB := filepath.Abs(b)
	return errA == nil && errB == nil && a == b
}

// SourceFiles expands the source globs and module files into a sorted,
// de-duplicated list of Python files. Globs may use {a,b} alternatives.
func (c *Config) SourceFiles() ([]string, error) {
	var files []string
	for _, source := range c.Sources {
		for _, pattern := range expandBraces(source) {
			matches, err := filepath.Glob(c.Path(pattern))
			if err != nil {
				return nil, fmt.Errorf("expanding %q: %w", source, err)
			}
			for _, m := range matches {
				if strings.HasSuffix(m, SourceExt) {
					files = append(files, m)
				}
			}
		}
	}
	for _, m := range c.Modules {
		files = append(files, c.Path(m.File))
	}
	for i, f := range files {
		files[i] = filepath.Clean(f)
	}
	sort.Strings(files)
	return slices.Compact(files), nil
}

// Fingerprint hashes every setting that changes generated output, so cache
// entries written under a different configuration are never reused.
func (c *Config) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "package=%s\nruntime=%s\nreturns=%t\n", c.Package, c.Runtime, c.ResolveReturns)
	mods := slices.Clone(c.Modules)
	sort.Slice(mods, func(i, j int) bool { return mods[i].File < mods[j].File })
	for _, m := range mods {
		excl := slices.Clone(m.Exclude)
		sort.Strings(excl)
		fmt.Fprintf(h, "module=%s type=%s exclude=%s\n", filepath.Clean(m.File), m.TypeName, strings.Join(excl, ","))
	}
	return hex.EncodeToString(h.Sum(nil))
}

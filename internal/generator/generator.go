// Package generator runs the binding pipeline over every configured Python
// module and writes the results.
package generator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/funvibe/pybind/internal/cache"
	"github.com/funvibe/pybind/internal/config"
	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/emit"
	"github.com/funvibe/pybind/internal/logger"
	"github.com/funvibe/pybind/internal/manifest"
	"github.com/funvibe/pybind/internal/naming"
	"github.com/funvibe/pybind/internal/pipeline"
)

// Generator turns Python modules into Go binding files.
type Generator struct {
	// config is the parsed pybind.yaml (or the defaults).
	config *config.Config

	// workers bounds parallel module generation.
	workers int

	// outDir is where binding files are written.
	outDir string

	// cache, when set, skips modules whose output is up to date.
	cache *cache.Cache

	// dryRun renders everything but writes nothing.
	dryRun bool

	// passID identifies this generation pass in the cache and manifest.
	passID string
}

// Option configures a Generator.
type Option func(*Generator)

// WithWorkers sets how many modules are generated in parallel.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithOutDir overrides the configured output directory.
func WithOutDir(dir string) Option {
	return func(g *Generator) {
		if dir != "" {
			g.outDir = dir
		}
	}
}

// WithCache enables the incremental generation cache.
func WithCache(c *cache.Cache) Option {
	return func(g *Generator) { g.cache = c }
}

// WithDryRun renders bindings and the manifest without writing files.
func WithDryRun(v bool) Option {
	return func(g *Generator) { g.dryRun = v }
}

// WithPassID sets the pass identifier instead of a random one.
func WithPassID(id string) Option {
	return func(g *Generator) { g.passID = id }
}

// New creates a Generator for cfg.
func New(cfg *config.Config, opts ...Option) *Generator {
	g := &Generator{
		config:  cfg,
		workers: cfg.Workers,
		outDir:  cfg.OutDir(),
		passID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.workers <= 0 {
		g.workers = config.DefaultWorkers
	}
	return g
}

// PassID returns the identifier of the generation pass.
func (g *Generator) PassID() string {
	return g.passID
}

// Status is the outcome for one module.
type Status int

const (
	StatusGenerated Status = iota
	StatusCached
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusCached:
		return "cached"
	case StatusFailed:
		return "failed"
	default:
		return "generated"
	}
}

// ModuleResult is the outcome of generating one module.
type ModuleResult struct {
	Module   string
	Source   string
	Output   string
	TypeName string
	Status   Status

	Diagnostics []diagnostics.Diagnostic

	// Unit is the rendered binding; nil for cache hits and failures.
	Unit *emit.BindingUnit

	// Code is the formatted Go source; nil for cache hits and failures.
	Code []byte

	Manifest manifest.Module

	// Err is set when the module could not be generated at all.
	Err error
}

// Report summarizes a generation pass.
type Report struct {
	PassID string

	// Modules are sorted by module name.
	Modules []ModuleResult

	Manifest     *manifest.Manifest
	ManifestPath string
}

// Diagnostics returns every module's diagnostics in module order.
func (r *Report) Diagnostics() []diagnostics.Diagnostic {
	var out []diagnostics.Diagnostic
	for _, m := range r.Modules {
		out = append(out, m.Diagnostics...)
	}
	return out
}

// HasErrors reports whether any module failed or produced an error diagnostic.
func (r *Report) HasErrors() bool {
	for _, m := range r.Modules {
		if m.Err != nil || diagnostics.HasErrors(m.Diagnostics) {
			return true
		}
	}
	return false
}

// CacheHits returns how many modules were reused from the cache.
func (r *Report) CacheHits() int {
	n := 0
	for _, m := range r.Modules {
		if m.Status == StatusCached {
			n++
		}
	}
	return n
}

// Written returns the paths of files written in this pass.
func (r *Report) Written() []string {
	var out []string
	for _, m := range r.Modules {
		if m.Status == StatusGenerated && m.Output != "" {
			out = append(out, m.Output)
		}
	}
	return out
}

type job struct {
	path     string
	module   string
	typeName string
	exclude  []string
}

// Run generates bindings for files, or for the configured sources when
// files is empty. Per-function problems are reported as diagnostics; an
// error is returned only when the pass itself cannot proceed.
func (g *Generator) Run(ctx context.Context, files []string) (*Report, error) {
	if len(files) == 0 {
		var err error
		if files, err = g.config.SourceFiles(); err != nil {
			return nil, err
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no Python sources to bind")
	}

	jobs, err := g.plan(files)
	if err != nil {
		return nil, err
	}

	log := logger.Logger().With(zap.String("pass", g.passID))
	log.Info("generating bindings", zap.Int("modules", len(jobs)), zap.Int("workers", g.workers))

	results := make([]ModuleResult, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, j := range jobs {
		eg.Go(func() error {
			res, err := g.runModule(egCtx, j)
			results[i] = res
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Module < results[j].Module })

	report := &Report{
		PassID:   g.passID,
		Modules:  results,
		Manifest: manifest.New(g.passID, g.config.Package, g.config.Runtime),
	}
	for _, res := range results {
		report.Manifest.Add(res.Manifest)
	}
	if path := g.config.ManifestPath(); path != "" {
		report.ManifestPath = path
		if !g.dryRun {
			if err := report.Manifest.Write(path); err != nil {
				return report, err
			}
		}
	}

	log.Info("generation finished",
		zap.Int("modules", len(results)),
		zap.Int("cached", report.CacheHits()),
		zap.Bool("errors", report.HasErrors()))
	return report, nil
}

// plan derives module and type names and rejects collisions that would make
// two modules write the same file or declare the same package-level name.
func (g *Generator) plan(files []string) ([]job, error) {
	byModule := make(map[string]string)
	byType := make(map[string]string)
	declared := make(map[string]string)
	jobs := make([]job, 0, len(files))

	for _, path := range files {
		j := job{path: path, module: naming.ModuleName(path)}
		if spec, ok := g.config.ModuleFor(path); ok {
			j.typeName, j.exclude = spec.TypeName, spec.Exclude
		}
		if other, ok := byModule[j.module]; ok {
			return nil, fmt.Errorf("%s and %s both define module %q", other, path, j.module)
		}
		byModule[j.module] = path

		typeName := j.typeName
		if typeName == "" {
			typeName = naming.Pascal(j.module)
		}
		if other, ok := byType[typeName]; ok {
			return nil, fmt.Errorf("%s and %s both bind to Go type %s; set type_name in %s", other, path, typeName, config.FileNames[0])
		}
		byType[typeName] = path
		for _, name := range emit.PackageNames(typeName) {
			if other, ok := declared[name]; ok {
				return nil, fmt.Errorf("%s and %s both declare %s in package %s; set type_name in %s", other, path, name, g.config.Package, config.FileNames[0])
			}
			declared[name] = path
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// runModule generates one module. The returned error aborts the whole pass
// and is reserved for failures outside the module itself (cancellation,
// unwritable output).
func (g *Generator) runModule(ctx context.Context, j job) (ModuleResult, error) {
	log := logger.Logger().With(zap.String("module", j.module))
	output := filepath.Join(g.outDir, j.module+config.GeneratedSuffix)
	res := ModuleResult{Module: j.module, Source: j.path, Output: output, TypeName: j.typeName}

	source, err := os.ReadFile(j.path)
	if err != nil {
		res.Status, res.Err = StatusFailed, fmt.Errorf("reading %s: %w", j.path, err)
		res.Manifest = manifest.Module{Name: j.module, Source: g.rel(j.path)}
		log.Warn("cannot read source", zap.Error(err))
		return res, nil
	}

	fingerprint := cache.Key(source, g.config.Fingerprint())
	if g.cache != nil && !g.dryRun {
		entry, ok, err := g.cache.Lookup(ctx, j.module, fingerprint, output)
		if err != nil {
			log.Warn("cache lookup failed", zap.Error(err))
		}
		if ok {
			if mod, err := manifest.DecodeModule(entry.Manifest); err == nil {
				res.Status = StatusCached
				res.Manifest = mod
				res.TypeName = mod.TypeName
				res.Diagnostics = mod.Diagnostics
				log.Debug("cache hit", zap.String("output", output))
				return res, nil
			}
		}
	}

	pctx := pipeline.NewPipelineContext(ctx, j.path, string(source))
	pctx.ModuleName = j.module
	pctx.TypeName = j.typeName
	pctx.Exclude = j.exclude
	pctx.OutputName = filepath.Base(output)
	pctx = pipeline.Default(emit.Options{
		Package:        g.config.Package,
		RuntimeImport:  g.config.Runtime,
		IncludeReturns: g.config.ResolveReturns,
	}).Run(pctx)

	res.Diagnostics = pctx.Diagnostics
	if pctx.Unit != nil {
		res.Unit = pctx.Unit
		res.TypeName = pctx.Unit.TypeName
	}
	if pctx.Err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, ctxErr
		}
		res.Status, res.Err = StatusFailed, pctx.Err
		res.Manifest = manifest.Module{Name: j.module, Source: g.rel(j.path), Diagnostics: res.Diagnostics}
		log.Warn("module failed", zap.Error(pctx.Err))
		return res, nil
	}

	res.Code = pctx.Output
	res.Status = StatusGenerated
	res.Manifest = manifest.FromUnit(pctx.Unit, g.rel(j.path), g.rel(output))
	res.Manifest.Diagnostics = res.Diagnostics
	if g.dryRun {
		return res, nil
	}

	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return res, fmt.Errorf("creating output dir: %w", err)
	}
	if err := os.WriteFile(output, pctx.Output, 0o644); err != nil {
		return res, fmt.Errorf("writing %s: %w", output, err)
	}
	log.Info("wrote bindings",
		zap.String("output", output),
		zap.Int("functions", len(pctx.Unit.Functions)),
		zap.Int("converters", len(pctx.Unit.Registrations)))

	if g.cache != nil {
		data, err := manifest.EncodeModule(res.Manifest)
		if err == nil {
			err = g.cache.Store(ctx, cache.Entry{
				Module:      j.module,
				Fingerprint: fingerprint,
				OutputPath:  output,
				OutputHash:  cache.HashOutput(pctx.Output),
				Manifest:    data,
				PassID:      g.passID,
			})
		}
		if err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}
	return res, nil
}

// rel makes path relative to the config directory for the manifest.
func (g *Generator) rel(path string) string {
	if g.config.Dir == "" {
		return filepath.ToSlash(path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	if r, err := filepath.Rel(g.config.Dir, abs); err == nil {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}

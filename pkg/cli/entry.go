// Package cli implements the pybind command line.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/funvibe/pybind/internal/cache"
	"github.com/funvibe/pybind/internal/config"
	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/generator"
	"github.com/funvibe/pybind/internal/logger"
)

const usage = `pybind generates typed Go bindings for Python modules.

Usage:
  pybind gen [--config file] [--out dir] [--workers n] [--no-cache] [--dry-run] [--verbose] [files...]
  pybind check [--config file] [--verbose] [files...]
  pybind manifest [--config file] [files...]
  pybind cache clean [--config file]
  pybind version
  pybind help

Without files, the sources listed in pybind.yaml are bound. When no
pybind.yaml is found, defaults are used relative to the working directory.
`

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// invocation is one run of the command line.
type invocation struct {
	ctx    context.Context
	args   []string
	stdout io.Writer
	stderr io.Writer
	out    palette
	errOut palette
	code   int
}

// Run executes the command named by os.Args and exits with its status.
func Run() {
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(os.Stderr, "Internal error: %v\n", r)
			fmt.Fprintln(os.Stderr, "This is a bug. Please report it.")
			os.Exit(exitError)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Main runs the command line with explicit arguments and streams and returns
// the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	inv := &invocation{
		ctx:    ctx,
		args:   args,
		stdout: stdout,
		stderr: stderr,
		out:    newPalette(stdout),
		errOut: newPalette(stderr),
	}
	defer logger.SetLogger(nil)

	for _, handle := range []func() bool{
		inv.handleVersion,
		inv.handleHelp,
		inv.handleGen,
		inv.handleCheck,
		inv.handleManifest,
		inv.handleCache,
	} {
		if handle() {
			return inv.code
		}
	}

	if len(args) > 0 {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
	}
	fmt.Fprint(stderr, usage)
	return exitUsage
}

func (inv *invocation) command() string {
	if len(inv.args) == 0 {
		return ""
	}
	return inv.args[0]
}

func (inv *invocation) handleVersion() bool {
	switch inv.command() {
	case "version", "-version", "--version":
		fmt.Fprintln(inv.stdout, "pybind "+config.Version)
		return true
	}
	return false
}

func (inv *invocation) handleHelp() bool {
	switch inv.command() {
	case "help", "-help", "--help", "-h":
		fmt.Fprint(inv.stdout, usage)
		return true
	}
	return false
}

// options are the flags shared by the generating commands.
type options struct {
	config  string
	out     string
	workers int
	noCache bool
	dryRun  bool
	verbose bool
	files   []string
}

func (inv *invocation) parseFlags(name string, full bool) (*options, bool) {
	opts := &options{}
	fs := flag.NewFlagSet("pybind "+name, flag.ContinueOnError)
	fs.SetOutput(inv.stderr)
	fs.StringVar(&opts.config, "config", "", "path to pybind.yaml")
	fs.BoolVar(&opts.verbose, "verbose", false, "log every generation step")
	fs.BoolVar(&opts.verbose, "v", false, "shorthand for --verbose")
	if full {
		fs.StringVar(&opts.out, "out", "", "output directory, overriding pybind.yaml")
		fs.IntVar(&opts.workers, "workers", 0, "modules generated in parallel")
		fs.BoolVar(&opts.noCache, "no-cache", false, "regenerate every module")
		fs.BoolVar(&opts.dryRun, "dry-run", false, "render bindings without writing files")
	}
	if err := fs.Parse(inv.args[1:]); err != nil {
		inv.code = exitUsage
		if errors.Is(err, flag.ErrHelp) {
			inv.code = exitOK
		}
		return nil, false
	}
	opts.files = fs.Args()
	return opts, true
}

// setup installs the logger and loads the configuration.
func (inv *invocation) setup(opts *options) (*config.Config, bool) {
	log, err := logger.New(opts.verbose)
	if err != nil {
		inv.fail(fmt.Errorf("creating logger: %w", err))
		return nil, false
	}
	if !opts.verbose {
		log = log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	logger.SetLogger(log)

	cfg, err := loadConfig(opts.config)
	if err != nil {
		inv.fail(err)
		return nil, false
	}
	return cfg, true
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadConfig(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	found, err := config.FindConfig(wd)
	if err != nil {
		return nil, err
	}
	if found == "" {
		return config.Default(wd), nil
	}
	return config.LoadConfig(found)
}

func (inv *invocation) fail(err error) {
	fmt.Fprintln(inv.stderr, inv.errOut.err("error: ")+err.Error())
	inv.code = exitError
}

func (inv *invocation) handleGen() bool {
	if inv.command() != "gen" {
		return false
	}
	opts, ok := inv.parseFlags("gen", true)
	if !ok {
		return true
	}
	cfg, ok := inv.setup(opts)
	if !ok {
		return true
	}

	genOpts := []generator.Option{
		generator.WithOutDir(opts.out),
		generator.WithWorkers(opts.workers),
		generator.WithDryRun(opts.dryRun),
	}
	if path := cfg.CachePath(); path != "" && !opts.noCache && !opts.dryRun {
		c, err := cache.Open(inv.ctx, path)
		if err != nil {
			inv.fail(err)
			return true
		}
		defer c.Close()
		genOpts = append(genOpts, generator.WithCache(c))
	}

	report, err := generator.New(cfg, genOpts...).Run(inv.ctx, opts.files)
	if err != nil {
		inv.fail(err)
		return true
	}

	for _, m := range report.Modules {
		inv.printModule(m)
	}
	inv.printDiagnostics(report.Diagnostics(), opts.verbose)
	inv.printSummary(report)
	if report.HasErrors() {
		inv.code = exitError
	}
	return true
}

func (inv *invocation) printModule(m generator.ModuleResult) {
	var status string
	switch m.Status {
	case generator.StatusFailed:
		status = inv.out.err(fmt.Sprintf("%-9s", m.Status))
	case generator.StatusCached:
		status = inv.out.dim(fmt.Sprintf("%-9s", m.Status))
	default:
		status = inv.out.ok(fmt.Sprintf("%-9s", m.Status))
	}
	target := m.Manifest.Output
	if target == "" {
		target = "-"
	}
	fmt.Fprintf(inv.stdout, "%s %s -> %s (%s, %d functions)\n",
		status, m.Module, target, m.TypeName, len(m.Manifest.Functions))
	if m.Err != nil {
		fmt.Fprintf(inv.stdout, "          %s\n", inv.out.err(m.Err.Error()))
	}
}

// printDiagnostics writes warnings and errors to stderr; informational
// diagnostics are shown only when verbose.
func (inv *invocation) printDiagnostics(ds []diagnostics.Diagnostic, verbose bool) {
	for _, d := range ds {
		if d.Severity == diagnostics.SeverityInfo && !verbose {
			continue
		}
		fmt.Fprintln(inv.stderr, inv.errOut.severity(d.Severity)(d.String()))
	}
}

func (inv *invocation) printSummary(r *generator.Report) {
	ds := r.Diagnostics()
	line := fmt.Sprintf("%d modules, %d cached, %d errors, %d warnings",
		len(r.Modules), r.CacheHits(),
		diagnostics.Count(ds, diagnostics.SeverityError),
		diagnostics.Count(ds, diagnostics.SeverityWarning))
	if r.HasErrors() {
		line = inv.out.err(line)
	} else {
		line = inv.out.ok(line)
	}
	fmt.Fprintln(inv.stdout, line)
}

// handleCheck resolves the sources without writing anything and prints
// each binding with its converters.
func (inv *invocation) handleCheck() bool {
	if inv.command() != "check" {
		return false
	}
	opts, ok := inv.parseFlags("check", false)
	if !ok {
		return true
	}
	cfg, ok := inv.setup(opts)
	if !ok {
		return true
	}

	report, err := generator.New(cfg, generator.WithDryRun(true)).Run(inv.ctx, opts.files)
	if err != nil {
		inv.fail(err)
		return true
	}

	for _, res := range report.Modules {
		m := res.Manifest
		fmt.Fprintf(inv.stdout, "%s %s\n", inv.out.title(m.Name), res.TypeName)
		if res.Err != nil {
			fmt.Fprintf(inv.stdout, "  %s\n", inv.out.err(res.Err.Error()))
			continue
		}
		for _, fn := range m.Functions {
			fmt.Fprintf(inv.stdout, "  %s -> %s\n", fn.Python, fn.Go)
		}
		fmt.Fprintf(inv.stdout, "  %s %s\n", inv.out.dim("encoders:"), listOrNone(m.Encoders))
		fmt.Fprintf(inv.stdout, "  %s %s\n", inv.out.dim("decoders:"), listOrNone(m.Decoders))
	}
	inv.printDiagnostics(report.Diagnostics(), opts.verbose)
	if report.HasErrors() {
		inv.code = exitError
	}
	return true
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// handleManifest prints the manifest a gen run would write.
func (inv *invocation) handleManifest() bool {
	if inv.command() != "manifest" {
		return false
	}
	opts, ok := inv.parseFlags("manifest", false)
	if !ok {
		return true
	}
	cfg, ok := inv.setup(opts)
	if !ok {
		return true
	}

	report, err := generator.New(cfg, generator.WithDryRun(true)).Run(inv.ctx, opts.files)
	if err != nil {
		inv.fail(err)
		return true
	}
	data, err := report.Manifest.Marshal()
	if err != nil {
		inv.fail(err)
		return true
	}
	inv.stdout.Write(data)
	if report.HasErrors() {
		inv.code = exitError
	}
	return true
}

func (inv *invocation) handleCache() bool {
	if inv.command() != "cache" {
		return false
	}
	if len(inv.args) < 2 || inv.args[1] != "clean" {
		fmt.Fprintln(inv.stderr, "usage: pybind cache clean [--config file]")
		inv.code = exitUsage
		return true
	}
	inv.args = inv.args[1:]
	opts, ok := inv.parseFlags("cache clean", false)
	if !ok {
		return true
	}
	cfg, ok := inv.setup(opts)
	if !ok {
		return true
	}

	path := cfg.CachePath()
	if path == "" {
		fmt.Fprintln(inv.stdout, "cache is disabled")
		return true
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(inv.stdout, "no cache at %s\n", path)
		return true
	}
	c, err := cache.Open(inv.ctx, path)
	if err != nil {
		inv.fail(err)
		return true
	}
	defer c.Close()
	n, err := c.Len(inv.ctx)
	if err == nil {
		err = c.Clean(inv.ctx)
	}
	if err != nil {
		inv.fail(err)
		return true
	}
	fmt.Fprintf(inv.stdout, "removed %d cache entries from %s\n", n, path)
	return true
}

package pipeline

import (
	"context"

	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/emit"
	"github.com/funvibe/pybind/internal/shape"
)

// Processor is one stage of the per-module pipeline.
type Processor interface {
	Process(ctx *PipelineContext) *PipelineContext
}

// PipelineContext carries one Python module through the stages.
type PipelineContext struct {
	Context context.Context

	// FilePath and Source are the Python input.
	FilePath string
	Source   string

	// ModuleName overrides the module name derived from FilePath.
	ModuleName string

	// TypeName and Exclude are the per-module overrides.
	TypeName string
	Exclude  []string

	// OutputName is the file name reported for the generated source.
	OutputName string

	Module *shape.Module
	Unit   *emit.BindingUnit

	// Output is the formatted Go source, nil when nothing was generated.
	Output []byte

	Diagnostics []diagnostics.Diagnostic

	// Err is set when a stage failed in a way that stops generation for
	// this module (as opposed to per-function diagnostics).
	Err error
}

// NewPipelineContext creates a context for the Python source at path.
func NewPipelineContext(ctx context.Context, path, source string) *PipelineContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &PipelineContext{Context: ctx, FilePath: path, Source: source}
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *PipelineContext) *PipelineContext {
	ctx := initialCtx
	for _, processor := range p.processors {
		if err := ctx.Context.Err(); err != nil {
			ctx.Err = err
			return ctx
		}
		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages;
		// each processor skips itself when its input is missing.
	}
	return ctx
}

// HasErrors reports whether the module produced error diagnostics or
// failed outright.
func (ctx *PipelineContext) HasErrors() bool {
	return ctx.Err != nil || diagnostics.HasErrors(ctx.Diagnostics)
}

package pipeline

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/tools/imports"

	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/emit"
	"github.com/funvibe/pybind/internal/logger"
	"github.com/funvibe/pybind/internal/naming"
	"github.com/funvibe/pybind/internal/pyparse"
	"github.com/funvibe/pybind/internal/shape"
)

// ParseProcessor reads the Python signatures of the source.
type ParseProcessor struct{}

func (ParseProcessor) Process(ctx *PipelineContext) *PipelineContext {
	name := ctx.ModuleName
	if name == "" {
		name = naming.ModuleName(ctx.FilePath)
	}
	mod, diags := pyparse.Parse(name, ctx.FilePath, ctx.Source)
	ctx.Module = mod
	ctx.Diagnostics = append(ctx.Diagnostics, diags...)
	logger.Logger().Debug("parsed module",
		zap.String("module", name),
		zap.Int("functions", len(mod.Functions)),
		zap.Int("diagnostics", len(diags)))
	return ctx
}

// EmitProcessor renders the binding unit for the parsed module.
type EmitProcessor struct {
	Options emit.Options
}

func (p EmitProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Module == nil {
		return ctx
	}
	opts := p.Options
	opts.Exclude = append(append([]string(nil), opts.Exclude...), ctx.Exclude...)

	unit, err := emit.New(opts).Emit(ctx.Module, ctx.TypeName)
	if unit != nil {
		ctx.Diagnostics = append(ctx.Diagnostics, unit.Diagnostics...)
	}
	if err != nil {
		var malformed *shape.MalformedInputError
		if errors.As(err, &malformed) {
			logger.Logger().Warn("malformed module", zap.String("module", ctx.Module.Name), zap.Error(err))
		}
		ctx.Err = err
		return ctx
	}
	ctx.Unit = unit
	logger.Logger().Debug("emitted bindings",
		zap.String("module", unit.Module),
		zap.Int("functions", len(unit.Functions)),
		zap.Int("converters", len(unit.Registrations)))
	return ctx
}

// FormatProcessor renders the final Go file and formats it.
type FormatProcessor struct{}

func (FormatProcessor) Process(ctx *PipelineContext) *PipelineContext {
	if ctx.Unit == nil || ctx.Err != nil {
		return ctx
	}
	src, err := ctx.Unit.Source()
	if err != nil {
		ctx.Err = err
		return ctx
	}
	name := ctx.OutputName
	if name == "" {
		name = ctx.Unit.Module + ".pybind.go"
	}
	out, err := imports.Process(name, []byte(src), &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		ctx.Err = fmt.Errorf("formatting %s: %w", name, err)
		return ctx
	}
	ctx.Output = out

	u := ctx.Unit
	d := diagnostics.New(diagnostics.Generated, u.Module, "",
		"generated %s: %d functions, %d encoders, %d decoders",
		u.TypeName, len(u.Functions), len(u.Converters.Encoders), len(u.Converters.Decoders))
	d.File = u.File
	ctx.Diagnostics = append(ctx.Diagnostics, d)
	return ctx
}

// Default returns the Parse, Emit and Format chain.
func Default(opts emit.Options) *Pipeline {
	return New(ParseProcessor{}, EmitProcessor{Options: opts}, FormatProcessor{})
}

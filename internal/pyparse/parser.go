// Package pyparse reads the top-level function signatures of a Python
// source file into the shape model.
//
// Only what binding needs is understood: def and async def headers at
// module level, their parameter names and annotations, and return
// annotations. Function bodies, classes, decorators, defaults and every
// other statement are skipped.
package pyparse

import (
	"fmt"
	"os"

	"github.com/funvibe/pybind/internal/diagnostics"
	"github.com/funvibe/pybind/internal/lexer"
	"github.com/funvibe/pybind/internal/naming"
	"github.com/funvibe/pybind/internal/shape"
)

// AnyName is the shape given to parameters without an annotation.
const AnyName = "Any"

// maxNesting bounds annotation nesting so hostile input cannot exhaust the stack.
const maxNesting = 128

// ParseFile reads path and parses its signatures. The module name is
// derived from the file name.
func ParseFile(path string) (*shape.Module, []diagnostics.Diagnostic, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	mod, diags := Parse(naming.ModuleName(path), path, string(src))
	return mod, diags, nil
}

// Parse extracts the module-level function signatures of src. Functions
// whose header cannot be read are left out and reported as PYB006.
// The returned module always has a non-nil function list.
func Parse(module, path, src string) (*shape.Module, []diagnostics.Diagnostic) {
	p := newParser(lexer.New(src))
	p.module, p.path = module, path
	mod := &shape.Module{Name: module, Path: path, Functions: []*shape.Function{}}

	for !p.curTokenIs(lexer.EOF) {
		if p.curTokenIs(lexer.NEWLINE) {
			p.nextToken()
			continue
		}
		if fn, ok := p.parseStatement(); ok {
			mod.Functions = append(mod.Functions, fn)
		}
		p.skipLine()
	}
	return mod, p.diags
}

type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	module    string
	path      string
	diags     []diagnostics.Diagnostic
}

func newParser(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t lexer.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) curIs(lexeme string) bool {
	return p.curToken.Is(lexeme)
}

func (p *Parser) peekIs(lexeme string) bool {
	return p.peekToken.Is(lexeme)
}

// skipLine advances past the current logical line, body included when it
// follows the colon on the same line.
func (p *Parser) skipLine() {
	for !p.curTokenIs(lexer.NEWLINE) && !p.curTokenIs(lexer.EOF) {
		p.nextToken()
	}
	if p.curTokenIs(lexer.NEWLINE) {
		p.nextToken()
	}
}

// parseStatement handles the first token of a logical line. Only
// unindented def headers produce a function.
func (p *Parser) parseStatement() (*shape.Function, bool) {
	if p.curToken.Column != 1 || p.curToken.Type != lexer.IDENT {
		return nil, false
	}
	if p.curIs("async") && p.peekIs("def") {
		p.nextToken()
	}
	if !p.curIs("def") {
		return nil, false
	}
	line := p.curToken.Line
	name := "<unknown>"
	if p.peekToken.Type == lexer.IDENT {
		name = p.peekToken.Lexeme
	}

	fn, err := p.parseDef()
	if err != nil {
		d := diagnostics.New(diagnostics.ParseError, p.module, name, "%s: %v", name, err)
		d.File, d.Line = p.path, line
		p.diags = append(p.diags, d)
		return nil, false
	}
	fn.Line = line
	return fn, true
}

// SignatureError describes why a def header could not be read.
type SignatureError struct {
	Line   int
	Column int
	Msg    string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("%s at %d:%d", e.Msg, e.Line, e.Column)
}

func (p *Parser) errorf(format string, args ...any) error {
	return &SignatureError{Line: p.curToken.Line, Column: p.curToken.Column, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) expect(lexeme string) error {
	if !p.curIs(lexeme) {
		return p.errorf("expected %q, found %s", lexeme, p.curToken)
	}
	p.nextToken()
	return nil
}

// parseDef parses "def name(params) [-> ann]:" with the current token on def.
func (p *Parser) parseDef() (*shape.Function, error) {
	p.nextToken()
	if !p.curTokenIs(lexer.IDENT) {
		return nil, p.errorf("expected function name, found %s", p.curToken)
	}
	fn := &shape.Function{Name: p.curToken.Lexeme, Params: []*shape.Parameter{}}
	p.nextToken()

	// PEP 695 type parameters: def f[T](x: T)
	if p.curIs("[") {
		if err := p.skipBalanced(); err != nil {
			return nil, err
		}
	}
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if err := p.parseParams(fn); err != nil {
		return nil, err
	}

	fn.Returns = shape.Primitive(shape.NoneName)
	if p.curIs("->") {
		p.nextToken()
		ret, err := p.parseAnnotation(0)
		if err != nil {
			return nil, err
		}
		fn.Returns = ret
	}
	if !p.curIs(":") {
		return nil, p.errorf("expected \":\" after signature, found %s", p.curToken)
	}
	return fn, nil
}

// parseParams reads the parameter list up to and including ")".
func (p *Parser) parseParams(fn *shape.Function) error {
	seen := make(map[string]bool)
	for !p.curIs(")") {
		switch {
		case p.curTokenIs(lexer.EOF), p.curTokenIs(lexer.NEWLINE):
			return p.errorf("unterminated parameter list")
		case p.curIs("**"):
			return p.errorf("variadic keyword parameter **%s is not supported", p.peekToken.Lexeme)
		case p.curIs("*"):
			if p.peekIs(",") || p.peekIs(")") {
				return p.errorf("keyword-only parameters are not supported")
			}
			return p.errorf("variadic parameter *%s is not supported", p.peekToken.Lexeme)
		case p.curIs("/"):
			// Positional-only marker; every bound parameter is positional anyway.
			p.nextToken()
		case p.curTokenIs(lexer.IDENT):
			param, err := p.parseParam(len(fn.Params))
			if err != nil {
				return err
			}
			if seen[param.Name] {
				return p.errorf("duplicate parameter %q", param.Name)
			}
			seen[param.Name] = true
			fn.Params = append(fn.Params, param)
		default:
			return p.errorf("unexpected %s in parameter list", p.curToken)
		}

		if p.curIs(",") {
			p.nextToken()
		} else if !p.curIs(")") {
			return p.errorf("expected \",\" or \")\", found %s", p.curToken)
		}
	}
	p.nextToken()
	return nil
}

func (p *Parser) parseParam(position int) (*shape.Parameter, error) {
	param := &shape.Parameter{Name: p.curToken.Lexeme, Position: position}
	p.nextToken()

	param.Type = shape.Primitive(AnyName)
	if p.curIs(":") {
		p.nextToken()
		ann, err := p.parseAnnotation(0)
		if err != nil {
			return nil, err
		}
		param.Type = ann
	}
	if p.curIs("=") {
		p.nextToken()
		if err := p.skipDefault(); err != nil {
			return nil, err
		}
	}
	return param, nil
}

// skipDefault skips a default value expression up to the next top-level
// "," or ")" of the parameter list.
func (p *Parser) skipDefault() error {
	depth := 0
	for {
		switch {
		case p.curTokenIs(lexer.EOF), p.curTokenIs(lexer.NEWLINE):
			return p.errorf("unterminated default value")
		case p.curTokenIs(lexer.ILLEGAL):
			return p.errorf("%s", p.curToken.Literal)
		case p.curIs("("), p.curIs("["), p.curIs("{"):
			depth++
		case p.curIs(")"), p.curIs("]"), p.curIs("}"):
			if depth == 0 {
				return nil
			}
			depth--
		case p.curIs(",") && depth == 0:
			return nil
		case p.curIs("lambda") && depth == 0:
			// A lambda's own parameters are comma separated; its body ends
			// the default like any other expression.
			for !p.curIs(":") {
				if p.curTokenIs(lexer.EOF) || p.curTokenIs(lexer.NEWLINE) {
					return p.errorf("unterminated lambda default")
				}
				p.nextToken()
			}
		}
		p.nextToken()
	}
}

// skipBalanced skips a bracketed group starting at the opening bracket.
func (p *Parser) skipBalanced() error {
	depth := 0
	for {
		switch {
		case p.curTokenIs(lexer.EOF), p.curTokenIs(lexer.NEWLINE):
			return p.errorf("unbalanced brackets")
		case p.curIs("("), p.curIs("["), p.curIs("{"):
			depth++
		case p.curIs(")"), p.curIs("]"), p.curIs("}"):
			depth--
			if depth == 0 {
				p.nextToken()
				return nil
			}
		}
		p.nextToken()
	}
}

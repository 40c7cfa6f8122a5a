package pyparse

import (
	"github.com/funvibe/pybind/internal/lexer"
	"github.com/funvibe/pybind/internal/shape"
)

// Annotation grammar:
//
//	union   = primary { "|" primary }
//	primary = name { "." name } [ "[" args "]" ]
//	        | string | number | "None" | "..." | "[" [ args ] "]" | "(" [ args ] ")"
//	args    = union { "," union } [ "," ]

// UnionName is the generic shape built from "X | Y".
const UnionName = "Union"

// ParamListName is the shape of a bracketed type list such as the first
// argument of Callable[[int, str], bool].
const ParamListName = "ParamList"

// literalNames take values, not types, as arguments.
var literalNames = map[string]bool{"Literal": true}

// ParseAnnotation parses a standalone annotation such as "dict[str, list[int]]".
func ParseAnnotation(src string) (*shape.TypeShape, error) {
	return parseAnnotationAt(src, 0)
}

// parseAnnotationAt parses a quoted annotation found depth levels deep, so
// forward references count towards the same nesting limit.
func parseAnnotationAt(src string, depth int) (*shape.TypeShape, error) {
	p := newParser(lexer.New(src))
	s, err := p.parseAnnotation(depth)
	if err != nil {
		return nil, err
	}
	if !p.curTokenIs(lexer.EOF) && !p.curTokenIs(lexer.NEWLINE) {
		return nil, p.errorf("unexpected %s after annotation", p.curToken)
	}
	return s, nil
}

func (p *Parser) parseAnnotation(depth int) (*shape.TypeShape, error) {
	if depth > maxNesting {
		return nil, p.errorf("annotation nested deeper than %d levels", maxNesting)
	}
	first, err := p.parsePrimary(depth)
	if err != nil {
		return nil, err
	}
	if !p.curIs("|") {
		return first, nil
	}
	members := []*shape.TypeShape{first}
	for p.curIs("|") {
		p.nextToken()
		next, err := p.parsePrimary(depth)
		if err != nil {
			return nil, err
		}
		members = append(members, next)
	}
	return shape.Generic(UnionName, members...), nil
}

func (p *Parser) parsePrimary(depth int) (*shape.TypeShape, error) {
	tok := p.curToken
	switch {
	case tok.Type == lexer.ILLEGAL:
		return nil, p.errorf("%s", tok.Literal)
	case tok.Type == lexer.STRING:
		p.nextToken()
		inner, err := parseAnnotationAt(tok.Literal, depth+1)
		if err != nil {
			return nil, &SignatureError{Line: tok.Line, Column: tok.Column, Msg: "invalid string annotation " + tok.Lexeme + ": " + err.Error()}
		}
		return inner, nil
	case tok.Type == lexer.NUMBER, tok.Is("..."):
		p.nextToken()
		return shape.Primitive(tok.Lexeme), nil
	case tok.Is("["):
		p.nextToken()
		args, err := p.parseArgs("]", depth+1, false)
		if err != nil {
			return nil, err
		}
		return shape.Generic(ParamListName, args...), nil
	case tok.Is("("):
		p.nextToken()
		args, err := p.parseArgs(")", depth+1, false)
		if err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return shape.Primitive("()"), nil
	case tok.Type == lexer.IDENT:
		return p.parseNamed(depth)
	}
	return nil, p.errorf("expected type annotation, found %s", tok)
}

// parseNamed reads a possibly dotted name and its optional subscript. Only
// the last segment of a dotted name is kept.
func (p *Parser) parseNamed(depth int) (*shape.TypeShape, error) {
	name := p.curToken.Lexeme
	p.nextToken()
	for p.curIs(".") {
		p.nextToken()
		if !p.curTokenIs(lexer.IDENT) {
			return nil, p.errorf("expected name after \".\", found %s", p.curToken)
		}
		name = p.curToken.Lexeme
		p.nextToken()
	}
	if !p.curIs("[") {
		return shape.Primitive(name), nil
	}
	p.nextToken()
	args, err := p.parseArgs("]", depth+1, literalNames[name])
	if err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return nil, p.errorf("empty subscript on %s", name)
	}
	return shape.Generic(name, args...), nil
}

// parseArgs reads a comma separated list up to and including the closing
// bracket. With literal set, arguments are kept as written values.
func (p *Parser) parseArgs(closing string, depth int, literal bool) ([]*shape.TypeShape, error) {
	var args []*shape.TypeShape
	for !p.curIs(closing) {
		var (
			arg *shape.TypeShape
			err error
		)
		if literal {
			arg, err = p.parseLiteralValue()
		} else {
			arg, err = p.parseAnnotation(depth)
		}
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.curIs(",") {
			p.nextToken()
			continue
		}
		if !p.curIs(closing) {
			return nil, p.errorf("expected \",\" or %q, found %s", closing, p.curToken)
		}
	}
	p.nextToken()
	return args, nil
}

// parseLiteralValue reads one Literal[...] argument: a string, number,
// name or negative number.
func (p *Parser) parseLiteralValue() (*shape.TypeShape, error) {
	tok := p.curToken
	switch {
	case tok.Type == lexer.STRING, tok.Type == lexer.NUMBER:
		p.nextToken()
		return shape.Primitive(tok.Lexeme), nil
	case tok.Is("-") && p.peekToken.Type == lexer.NUMBER:
		p.nextToken()
		num := p.curToken.Lexeme
		p.nextToken()
		return shape.Primitive("-" + num), nil
	case tok.Type == lexer.IDENT:
		return p.parseNamed(0)
	}
	return nil, p.errorf("expected literal value, found %s", tok)
}

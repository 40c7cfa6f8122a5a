// Package lexer tokenizes Python source far enough to read function
// signatures: names, numbers, strings, operators and logical line ends.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input        string
	position     int  // current position in input (points to current char)
	readPosition int  // current reading position in input (after current char)
	ch           rune // current char under examination
	line         int  // current line number
	column       int  // current column number
	depth        int  // open (, [ and { count
}

func New(input string) *Lexer {
	input = strings.TrimPrefix(input, "\uFEFF")
	l := &Lexer{input: input, line: 1, column: 0}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.column = 0
	}

	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		r, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
		l.ch = r
		l.position = l.readPosition
		l.readPosition += w
		l.column++
		return
	}

	l.position = l.readPosition
	l.readPosition++
	l.column++
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

func (l *Lexer) peekChar2() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	_, w := utf8.DecodeRuneInString(l.input[l.readPosition:])
	if l.readPosition+w >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition+w:])
	return r
}

// Depth returns the current bracket nesting depth.
func (l *Lexer) Depth() int {
	return l.depth
}

func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	line, col := l.line, l.column
	switch {
	case l.ch == 0:
		return Token{Type: EOF, Line: line, Column: col}
	case l.ch == '\n':
		l.readChar()
		return Token{Type: NEWLINE, Lexeme: "\n", Literal: "\n", Line: line, Column: col}
	case l.ch == '"' || l.ch == '\'':
		return l.readString("", line, col)
	case isLetter(l.ch):
		ident := l.readIdentifier()
		if (l.ch == '"' || l.ch == '\'') && isStringPrefix(ident) {
			return l.readString(ident, line, col)
		}
		return Token{Type: IDENT, Lexeme: ident, Literal: ident, Line: line, Column: col}
	case isDigit(l.ch) || (l.ch == '.' && isDigit(l.peekChar())):
		num := l.readNumber()
		return Token{Type: NUMBER, Lexeme: num, Literal: num, Line: line, Column: col}
	}

	op := l.readOperator()
	if op == "" {
		ch := l.ch
		l.readChar()
		return Token{Type: ILLEGAL, Lexeme: string(ch), Literal: "unexpected character " + string(ch), Line: line, Column: col}
	}
	switch op {
	case "(", "[", "{":
		l.depth++
	case ")", "]", "}":
		if l.depth > 0 {
			l.depth--
		}
	}
	return Token{Type: OP, Lexeme: op, Literal: op, Line: line, Column: col}
}

// operators lists multi-character operators, longest first.
var operators = []string{
	"**=", "//=", ">>=", "<<=", "...",
	"->", "**", "//", "==", "!=", "<=", ">=", "<<", ">>", ":=",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "@=",
}

func (l *Lexer) readOperator() string {
	rest := l.input[l.position:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			for range op {
				l.readChar()
			}
			return op
		}
	}
	if strings.ContainsRune("()[]{},:;.=+-*/%@&|^~<>!", l.ch) {
		op := string(l.ch)
		l.readChar()
		return op
	}
	return ""
}

// readString reads a single, double or triple quoted literal starting at the
// opening quote. Unterminated literals come back as ILLEGAL tokens.
func (l *Lexer) readString(prefix string, line, col int) Token {
	start := l.position - len(prefix)
	quote := l.ch
	triple := l.peekChar() == quote && l.peekChar2() == quote
	width := 1
	if triple {
		width = 3
	}
	for i := 0; i < width; i++ {
		l.readChar()
	}

	bodyStart := l.position
	for {
		switch {
		case l.ch == 0:
			return Token{Type: ILLEGAL, Lexeme: l.input[start:], Literal: "unterminated string literal", Line: line, Column: col}
		case l.ch == '\\':
			l.readChar()
			if l.ch != 0 {
				l.readChar()
			}
			continue
		case l.ch == '\n' && !triple:
			return Token{Type: ILLEGAL, Lexeme: l.input[start:l.position], Literal: "unterminated string literal", Line: line, Column: col}
		case l.ch == quote && (!triple || (l.peekChar() == quote && l.peekChar2() == quote)):
			body := l.input[bodyStart:l.position]
			for i := 0; i < width; i++ {
				l.readChar()
			}
			lexeme := l.input[start:l.position]
			if l.ch == 0 {
				lexeme = l.input[start:]
			}
			return Token{Type: STRING, Lexeme: lexeme, Literal: body, Line: line, Column: col}
		}
		l.readChar()
	}
}

func (l *Lexer) readIdentifier() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == 0 {
		return l.input[position:]
	}
	return l.input[position:l.position]
}

// readNumber consumes integer, float, imaginary and based literals loosely;
// signatures only ever need their text.
func (l *Lexer) readNumber() string {
	position := l.position
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '.' {
		if (l.ch == 'e' || l.ch == 'E') && (l.peekChar() == '+' || l.peekChar() == '-') {
			l.readChar()
		}
		l.readChar()
	}
	if l.ch == 0 {
		return l.input[position:]
	}
	return l.input[position:l.position]
}

func isStringPrefix(s string) bool {
	if len(s) > 2 {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if !strings.ContainsRune("rbuf", r) {
			return false
		}
	}
	return true
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// skipWhitespace skips blanks, comments, explicit line joins and, inside
// brackets, newlines.
func (l *Lexer) skipWhitespace() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\f' || (l.ch == '\n' && l.depth > 0) {
			l.readChar()
		}
		if l.ch == '#' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		if l.ch == '\\' && (l.peekChar() == '\n' || (l.peekChar() == '\r' && l.peekChar2() == '\n')) {
			l.readChar()
			if l.ch == '\r' {
				l.readChar()
			}
			l.readChar()
			continue
		}
		break
	}
}

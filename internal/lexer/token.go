package lexer

import "fmt"

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	NEWLINE // end of a logical line; never emitted inside brackets
	IDENT
	NUMBER
	STRING
	OP
)

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",
	NEWLINE: "NEWLINE",
	IDENT:   "IDENT",
	NUMBER:  "NUMBER",
	STRING:  "STRING",
	OP:      "OP",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a lexical token of Python source.
type Token struct {
	Type TokenType

	// Lexeme is the source text. For STRING it is the full literal
	// including prefix and quotes.
	Lexeme string

	// Literal is the string body for STRING tokens, the message for
	// ILLEGAL tokens and the lexeme otherwise.
	Literal string

	Line   int
	Column int
}

// Is reports whether the token is the operator or name lexeme.
func (t Token) Is(lexeme string) bool {
	return (t.Type == OP || t.Type == IDENT) && t.Lexeme == lexeme
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "end of file"
	case NEWLINE:
		return "end of line"
	}
	return fmt.Sprintf("%q", t.Lexeme)
}

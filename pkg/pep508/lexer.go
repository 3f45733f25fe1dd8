package pep508

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed requirement or marker.
type SyntaxError struct {
	Input string // Text being parsed
	Pos   int    // Byte offset of the offending token
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.Msg, e.Pos, e.Input)
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokString
	tokIdent
	tokOp
	tokAnd
	tokOr
	tokIn
	tokNot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return fmt.Sprintf("string %q", t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

var keywords = map[string]tokenKind{
	"and": tokAnd,
	"or":  tokOr,
	"in":  tokIn,
	"not": tokNot,
}

// operators is ordered longest first so "===" wins over "==".
var operators = []string{"===", "==", "!=", "~=", "<=", ">=", "<", ">"}

type lexer struct {
	src string
	pos int
}

func newLexer(s string) *lexer { return &lexer{src: s} }

func (l *lexer) next() (token, error) {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	c := l.src[l.pos]
	switch {
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "(", pos: start}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")", pos: start}, nil
	case c == '"' || c == '\'':
		end := strings.IndexByte(l.src[l.pos+1:], c)
		if end < 0 {
			return token{}, &SyntaxError{Input: l.src, Pos: start, Msg: "unterminated string"}
		}
		text := l.src[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return token{kind: tokString, text: text, pos: start}, nil
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		if kind, ok := keywords[text]; ok {
			return token{kind: kind, text: text, pos: start}, nil
		}
		return token{kind: tokIdent, text: text, pos: start}, nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}
	return token{}, &SyntaxError{Input: l.src, Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '.' || (c >= '0' && c <= '9')
}

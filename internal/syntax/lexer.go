package syntax

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tNumber
	tString
	tTemplate
	tOp
)

func (k tokenKind) String() string {
	switch k {
	case tEOF:
		return "end of input"
	case tIdent:
		return "identifier"
	case tNumber:
		return "number"
	case tString:
		return "string"
	case tTemplate:
		return "template"
	default:
		return "operator"
	}
}

// templateChunk is a raw piece of a backtick template: literal text, or
// the source of an interpolation together with where it starts.
type templateChunk struct {
	text   string
	interp bool
	loc    Location
}

type token struct {
	kind   tokenKind
	text   string // identifier name, literal text or operator
	prefix string // module prefix of a qualified identifier
	chunks []templateChunk
	loc    Location
	// spaceBefore records whether whitespace separated this token from
	// the previous one.
	spaceBefore bool
}

func (t token) is(op string) bool {
	return t.kind == tOp && t.text == op
}

func (t token) keyword(kw string) bool {
	return t.kind == tIdent && t.prefix == "" && t.text == kw
}

func (t token) String() string {
	switch t.kind {
	case tEOF:
		return "end of input"
	case tTemplate:
		return "template"
	}
	if t.prefix != "" {
		return fmt.Sprintf("%q", t.prefix+":"+t.text)
	}
	return fmt.Sprintf("%q", t.text)
}

// operators ordered longest first so that the scanner is greedy.
var operators = []string{
	"===", "!==",
	"->", "?.", "==", "!=", "<=", ">=", "&&", "||", "=>",
	"(", ")", "[", "]", "{", "}", ",", ";", ":", ".", "=",
	"<", ">", "+", "-", "*", "/", "%", "!", "?", "&", "|", "^", "~", "@",
}

type lexer struct {
	file string
	src  string
	pos  int
	line int
	col  int
}

func newLexer(file string, start Location, src string) *lexer {
	line, col := start.Line, start.Column
	if line <= 0 {
		line = 1
	}
	if col <= 0 {
		col = 1
	}
	return &lexer{file: file, src: src, line: line, col: col}
}

func (l *lexer) loc() Location {
	return Location{File: l.file, Line: l.line, Column: l.col}
}

func (l *lexer) errorf(loc Location, format string, args ...any) error {
	return &ParseError{Loc: loc, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) peekByte(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

// skipSpace consumes whitespace and line comments, reporting whether
// anything was skipped.
func (l *lexer) skipSpace() bool {
	skipped := false
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.advance(1)
			skipped = true
		case c == '/' && l.peekByte(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance(1)
			}
			skipped = true
		default:
			return skipped
		}
	}
	return skipped
}

func (l *lexer) tokens() ([]token, error) {
	var out []token
	for {
		space := l.skipSpace()
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tok.spaceBefore = space
		out = append(out, tok)
		if tok.kind == tEOF {
			return out, nil
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *lexer) runeAt(off int) rune {
	if l.pos+off >= len(l.src) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos+off:])
	return r
}

func (l *lexer) next() (token, error) {
	start := l.loc()
	if l.pos >= len(l.src) {
		return token{kind: tEOF, loc: start}, nil
	}
	c := l.src[l.pos]
	r := l.runeAt(0)

	switch {
	case isIdentStart(r) || (c == '\'' && isIdentStart(l.runeAt(1))):
		name := l.ident()
		// A qualified identifier is written without surrounding space:
		// "entities:Product".
		if l.peekByte(0) == ':' && (isIdentStart(l.runeAt(1)) || l.peekByte(1) == '\'') {
			l.advance(1)
			return token{kind: tIdent, prefix: name, text: l.ident(), loc: start}, nil
		}
		return token{kind: tIdent, text: name, loc: start}, nil
	case c >= '0' && c <= '9':
		return token{kind: tNumber, text: l.number(), loc: start}, nil
	case c == '"':
		s, err := l.stringLit()
		if err != nil {
			return token{}, err
		}
		return token{kind: tString, text: s, loc: start}, nil
	case c == '`':
		chunks, err := l.template()
		if err != nil {
			return token{}, err
		}
		return token{kind: tTemplate, chunks: chunks, loc: start}, nil
	}

	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.advance(len(op))
			return token{kind: tOp, text: op, loc: start}, nil
		}
	}
	return token{}, l.errorf(start, "unexpected character %q", r)
}

func (l *lexer) ident() string {
	begin := l.pos
	if l.peekByte(0) == '\'' {
		l.advance(1)
	}
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.advance(size)
	}
	return l.src[begin:l.pos]
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }

func (l *lexer) number() string {
	begin := l.pos
	if l.peekByte(0) == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
		l.advance(2)
		for isHexDigit(l.peekByte(0)) {
			l.advance(1)
		}
		return l.src[begin:l.pos]
	}
	for isDigit(l.peekByte(0)) {
		l.advance(1)
	}
	if l.peekByte(0) == '.' && isDigit(l.peekByte(1)) {
		l.advance(1)
		for isDigit(l.peekByte(0)) {
			l.advance(1)
		}
	}
	if e := l.peekByte(0); e == 'e' || e == 'E' {
		off := 1
		if s := l.peekByte(1); s == '+' || s == '-' {
			off = 2
		}
		if isDigit(l.peekByte(off)) {
			l.advance(off)
			for isDigit(l.peekByte(0)) {
				l.advance(1)
			}
		}
	}
	if s := l.peekByte(0); (s == 'd' || s == 'f' || s == 'D' || s == 'F') && !isIdentPart(l.runeAt(1)) {
		l.advance(1)
	}
	return l.src[begin:l.pos]
}

func (l *lexer) stringLit() (string, error) {
	start := l.loc()
	begin := l.pos
	l.advance(1)
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			l.advance(2)
		case '"':
			l.advance(1)
			return l.src[begin:l.pos], nil
		case '\n':
			return "", l.errorf(start, "unterminated string literal")
		default:
			l.advance(1)
		}
	}
	return "", l.errorf(start, "unterminated string literal")
}

// template scans a backtick template, splitting it into literal text and
// interpolation sources. Interpolations may contain nested braces,
// strings and templates.
func (l *lexer) template() ([]templateChunk, error) {
	start := l.loc()
	l.advance(1)
	var chunks []templateChunk
	var text strings.Builder
	textLoc := l.loc()
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '`':
			l.advance(1)
			if text.Len() > 0 {
				chunks = append(chunks, templateChunk{text: text.String(), loc: textLoc})
			}
			return chunks, nil
		case c == '$' && l.peekByte(1) == '{':
			if text.Len() > 0 {
				chunks = append(chunks, templateChunk{text: text.String(), loc: textLoc})
				text.Reset()
			}
			l.advance(2)
			interpLoc := l.loc()
			src, err := l.interpolation()
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, templateChunk{text: src, interp: true, loc: interpLoc})
			textLoc = l.loc()
		default:
			if text.Len() == 0 {
				textLoc = l.loc()
			}
			text.WriteByte(c)
			l.advance(1)
		}
	}
	return nil, l.errorf(start, "unterminated template")
}

// interpolation consumes the source of "${...}" up to and including the
// matching close brace and returns the enclosed source.
func (l *lexer) interpolation() (string, error) {
	start := l.loc()
	begin := l.pos
	depth := 0
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '{':
			depth++
			l.advance(1)
		case '}':
			if depth == 0 {
				src := l.src[begin:l.pos]
				l.advance(1)
				return src, nil
			}
			depth--
			l.advance(1)
		case '"':
			if _, err := l.stringLit(); err != nil {
				return "", err
			}
		case '`':
			if _, err := l.template(); err != nil {
				return "", err
			}
		default:
			l.advance(1)
		}
	}
	return "", l.errorf(start, "unterminated interpolation")
}

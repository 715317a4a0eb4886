package lang

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrSyntax marks a line the tokenizer or parser could not make sense of.
// It never escapes the package: such lines fall back to raw nodes.
var ErrSyntax = NewError("invalid syntax")

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokName
	tokInt
	tokFloat
	tokString
	tokOp
)

// token is a lexical unit of one logical line.
type token struct {
	kind tokenKind
	text string // source text; operator or identifier spelling
	str  string // decoded string value (raw body for f-strings)
	fstr bool   // f-string literal
	raw  bool   // r-prefixed literal
	pos  int    // byte offset in the logical line
}

// operators lists multi-character operators before their prefixes so that the
// longest match wins.
var operators = []string{
	"**=", "//=", ">>=", "<<=",
	"**", "//", "==", "!=", "<=", ">=", "+=", "-=", "*=", "/=", "%=",
	"&=", "|=", "^=", "->", "<<", ">>", ":=",
	"+", "-", "*", "/", "%", "<", ">", "=", "(", ")", "[", "]", "{", "}",
	",", ":", ".", ";", "@", "&", "|", "^", "~", "!",
}

// tokenize splits a logical line into tokens. Comments are dropped and the
// token list always ends with a tokEOF.
func tokenize(src string) ([]token, error) {
	lx := lexer{src: src}

	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}

		lx.toks = append(lx.toks, tok)

		if tok.kind == tokEOF {
			return lx.toks, nil
		}
	}
}

type lexer struct {
	src  string
	pos  int
	toks []token
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.src) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])

	return r
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off >= len(lx.src) {
		return 0
	}

	return lx.src[lx.pos+off]
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()

	start := lx.pos
	if start >= len(lx.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	r := lx.peek()

	switch {
	case isStringStart(lx.src[lx.pos:]):
		return lx.lexString()

	case isIdentifierStart(r):
		for lx.pos < len(lx.src) {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			if !isIdentifierContinue(r) {
				break
			}

			lx.pos += size
		}

		return token{kind: tokName, text: lx.src[start:lx.pos], pos: start}, nil

	case isDigit(r) || (r == '.' && isDigit(rune(lx.peekAt(1)))):
		return lx.lexNumber()
	}

	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.pos += len(op)

			return token{kind: tokOp, text: op, pos: start}, nil
		}
	}

	return token{}, ErrSyntax.With(
		slog.String("issue", "unexpected character"),
		slog.String("char", string(r)),
		slog.Int("column", start+1),
	)
}

// skipSpace skips whitespace, line continuations and a trailing comment.
func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch ch := lx.src[lx.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			lx.pos++

		case ch == '\\' && lx.peekAt(1) == '\n':
			lx.pos += 2

		case ch == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.pos++
			}

		default:
			return
		}
	}
}

func (lx *lexer) lexNumber() (token, error) {
	start := lx.pos
	src := lx.src

	if src[lx.pos] == '0' && lx.pos+1 < len(src) {
		base := 0

		switch src[lx.pos+1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}

		if base != 0 {
			lx.pos += 2
			for lx.pos < len(src) && (isHexDigit(src[lx.pos]) || src[lx.pos] == '_') {
				lx.pos++
			}

			text := src[start:lx.pos]
			if _, err := strconv.ParseInt(text, 0, 64); err != nil {
				return token{}, ErrSyntax.Wrap(err).
					With(slog.String("literal", text))
			}

			return token{kind: tokInt, text: text, pos: start}, nil
		}
	}

	kind := tokInt

	digits := func() {
		for lx.pos < len(src) && (isDigit(rune(src[lx.pos])) || src[lx.pos] == '_') {
			lx.pos++
		}
	}

	digits()

	if lx.pos < len(src) && src[lx.pos] == '.' {
		kind = tokFloat
		lx.pos++

		digits()
	}

	if lx.pos < len(src) && (src[lx.pos] == 'e' || src[lx.pos] == 'E') {
		save := lx.pos
		lx.pos++

		if lx.pos < len(src) && (src[lx.pos] == '+' || src[lx.pos] == '-') {
			lx.pos++
		}

		if lx.pos < len(src) && isDigit(rune(src[lx.pos])) {
			kind = tokFloat

			digits()
		} else {
			lx.pos = save
		}
	}

	return token{kind: kind, text: src[start:lx.pos], pos: start}, nil
}

// isStringStart reports whether s begins a string literal, including an
// optional r/b/u/f prefix.
func isStringStart(s string) bool {
	i := 0
	for i < len(s) && i < 2 && strings.ContainsRune("rRbBuUfF", rune(s[i])) {
		i++
	}

	return i < len(s) && (s[i] == '\'' || s[i] == '"')
}

func (lx *lexer) lexString() (token, error) {
	start := lx.pos

	var raw, fstr bool

	for lx.src[lx.pos] != '\'' && lx.src[lx.pos] != '"' {
		switch lx.src[lx.pos] {
		case 'r', 'R':
			raw = true
		case 'f', 'F':
			fstr = true
		}

		lx.pos++
	}

	quote := lx.src[lx.pos : lx.pos+1]
	if strings.HasPrefix(lx.src[lx.pos:], quote+quote+quote) {
		quote += quote + quote
	}

	lx.pos += len(quote)
	bodyStart := lx.pos

	for {
		if lx.pos >= len(lx.src) {
			return token{}, ErrSyntax.With(
				slog.String("issue", "unterminated string"),
				slog.Int("column", start+1),
			)
		}

		ch := lx.src[lx.pos]
		if ch == '\\' {
			lx.pos += 2

			continue
		}

		if len(quote) == 1 && ch == '\n' {
			return token{}, ErrSyntax.With(
				slog.String("issue", "unterminated string"),
				slog.Int("column", start+1),
			)
		}

		if strings.HasPrefix(lx.src[lx.pos:], quote) {
			break
		}

		lx.pos++
	}

	body := lx.src[bodyStart:lx.pos]
	lx.pos += len(quote)

	tok := token{
		kind: tokString,
		text: lx.src[start:lx.pos],
		fstr: fstr,
		raw:  raw,
		pos:  start,
	}

	if fstr || raw {
		tok.str = body
	} else {
		tok.str = unescape(body)
	}

	return tok, nil
}

// unescape decodes backslash escapes. Unknown escapes keep their backslash.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' || i+1 >= len(s) {
			b.WriteByte(ch)

			continue
		}

		i++

		switch esc := s[i]; esc {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '\\', '\'', '"':
			b.WriteByte(esc)
		case '\n':
			// line continuation inside a string
		case 'x', 'u', 'U':
			width := map[byte]int{'x': 2, 'u': 4, 'U': 8}[esc]
			if i+width < len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+1+width], 16, 32); err == nil {
					b.WriteRune(rune(n))

					i += width

					continue
				}
			}

			b.WriteByte('\\')
			b.WriteByte(esc)
		default:
			b.WriteByte('\\')
			b.WriteByte(esc)
		}
	}

	return b.String()
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') ||
		(ch >= 'a' && ch <= 'f') ||
		(ch >= 'A' && ch <= 'F')
}

// Character classification

func isIdentifierStart(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
	) || r == '_'
}

func isIdentifierContinue(r rune) bool {
	return unicode.In(r,
		unicode.L,  // Letter
		unicode.Nl, // Letter, Number
		unicode.Other_ID_Start,
		unicode.Mn, // Mark, Nonspacing
		unicode.Mc, // Mark, Spacing Combining
		unicode.Nd, // Number, Decimal Digit
		unicode.Pc, // Punctuation, Connector
		unicode.Other_ID_Continue,
	)
}

package lang

import (
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
)

// keywords cannot be used as identifiers in expressions.
var keywords = map[string]bool{
	"and": true, "as": true, "assert": true, "async": true, "await": true,
	"break": true, "class": true, "continue": true, "def": true, "del": true,
	"elif": true, "else": true, "except": true, "finally": true, "for": true,
	"from": true, "global": true, "if": true, "import": true, "in": true,
	"is": true, "lambda": true, "nonlocal": true, "not": true, "or": true,
	"pass": true, "raise": true, "return": true, "try": true, "while": true,
	"with": true, "yield": true, "None": true, "True": true, "False": true,
}

// Keywords returns the reserved words of the language in sorted order.
func Keywords() []string {
	kw := make([]string, 0, len(keywords))
	for k := range keywords {
		kw = append(kw, k)
	}

	slices.Sort(kw)

	return kw
}

var augOps = []string{
	"+=", "-=", "*=", "/=", "//=", "%=", "**=", "&=", "|=", "^=", "<<=", ">>=",
}

// logical is one logical line: a physical line, or several joined while a
// bracket or triple-quoted string is open.
type logical struct {
	text  string
	first int // index of its first physical line
}

// SplitLines splits source text into physical lines.
func SplitLines(src string) []string {
	return strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
}

// joinLogical groups physical lines into logical lines. A group that is
// still unbalanced at the end of input falls back to its first physical
// line alone.
func joinLogical(lines []string) []logical {
	out := make([]logical, 0, len(lines))

	for i := 0; i < len(lines); {
		text := lines[i]
		j := i

		for j+1 < len(lines) && needsMore(text) {
			j++
			text += "\n" + lines[j]
		}

		if j > i && needsMore(text) {
			out = append(out, logical{text: lines[i], first: i})
			i++

			continue
		}

		out = append(out, logical{text: text, first: i})
		i = j + 1
	}

	return out
}

// needsMore reports whether s ends inside a bracket, a triple-quoted string
// or after a backslash continuation.
func needsMore(s string) bool {
	depth := 0

	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '#':
			for i < len(s) && s[i] != '\n' {
				i++
			}

		case '\'', '"':
			q := string(c)
			if strings.HasPrefix(s[i:], q+q+q) {
				end := closingQuote(s, i+3, q+q+q)
				if end < 0 {
					return true
				}

				i = end + 2

				continue
			}

			for i++; i < len(s) && s[i] != c && s[i] != '\n'; i++ {
				if s[i] == '\\' {
					i++
				}
			}

		case '(', '[', '{':
			depth++

		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		}
	}

	return depth > 0 || strings.HasSuffix(strings.TrimRight(s, " \t"), `\`)
}

// closingQuote returns the index of quote in s at or after i, skipping
// escaped characters, or -1.
func closingQuote(s string, i int, quote string) int {
	for ; i < len(s); i++ {
		if s[i] == '\\' {
			i++

			continue
		}

		if strings.HasPrefix(s[i:], quote) {
			return i
		}
	}

	return -1
}

// Parse parses source text into a [Program]. It never fails: lines that do
// not parse become raw statements.
func Parse(src string) *Program {
	p := newParser(src)
	p.prog.Body = p.suite(0, len(p.lines))

	return p.prog
}

type parser struct {
	prog  *Program
	lines []logical
	texts []string
}

func newParser(src string) *parser {
	physical := SplitLines(src)
	lines := joinLogical(physical)

	texts := make([]string, len(lines))
	for i, ln := range lines {
		texts[i] = ln.text
	}

	return &parser{
		prog:  &Program{Source: src, Lines: physical},
		lines: lines,
		texts: texts,
	}
}

func (p *parser) add(st Stmt) int {
	p.prog.Stmts = append(p.prog.Stmts, st)

	return len(p.prog.Stmts) - 1
}

// suite parses the logical lines [lo, hi) as a sequence of statements.
func (p *parser) suite(lo, hi int) Suite {
	var s Suite

	for i := lo; i < hi; {
		if isBlank(p.texts[i]) {
			i++

			continue
		}

		var ids []int

		ids, i = p.statement(i, hi)
		s = append(s, ids...)
	}

	return s
}

// statement parses the statement starting at logical line i and returns
// the arena indices it produced and the next unconsumed line.
func (p *parser) statement(i, hi int) ([]int, int) {
	ln := p.lines[i]
	text := strings.TrimSpace(ln.text)
	indent := Indent(ln.text)

	switch leadingWord(text) {
	case "def", "if", "for", "while":
		id, next := p.compound(i, hi, text, indent)

		return []int{id}, next
	}

	return p.simple(text, ln.first+1, indent), i + 1
}

// leadingWord returns the identifier at the start of s.
func leadingWord(s string) string {
	end := 0
	for end < len(s) && (s[end] == '_' || isDigit(rune(s[end])) ||
		(s[end]|0x20 >= 'a' && s[end]|0x20 <= 'z')) {
		end++
	}

	return s[:end]
}

// compound parses a def, if, for or while statement with its suites.
func (p *parser) compound(i, hi int, text string, indent int) (int, int) {
	line := p.lines[i].first + 1
	id := p.add(Stmt{Kind: StmtRaw, Line: line, Indent: indent, Source: text})

	st, next, err := p.header(i, hi, text, indent)
	if err != nil {
		end := min(ResolveBlock(p.texts, i, indent), hi)

		// a raw header also swallows its continuation clauses
		for {
			j := p.skipBlank(end, hi)
			if j >= hi || Indent(p.texts[j]) != indent {
				return id, end
			}

			switch leadingWord(strings.TrimSpace(p.texts[j])) {
			case "elif", "else":
				end = min(ResolveBlock(p.texts, j, indent), hi)
			default:
				return id, end
			}
		}
	}

	st.Line, st.Indent, st.Source = line, indent, text
	p.prog.Stmts[id] = st

	return id, next
}

func (p *parser) header(i, hi int, text string, indent int) (Stmt, int, error) {
	toks, err := tokenize(text)
	if err != nil {
		return Stmt{}, 0, err
	}

	tp := &tokParser{src: text, toks: toks}
	kw := tp.next().text

	var st Stmt

	switch kw {
	case "def":
		st.Kind = StmtDef

		name := tp.next()
		if name.kind != tokName || keywords[name.text] {
			return st, 0, tp.errorf("expected function name")
		}

		st.Name = name.text

		if err := tp.expectOp("("); err != nil {
			return st, 0, err
		}

		if st.Params, err = tp.params(")", true); err != nil {
			return st, 0, err
		}

		if err := tp.expectOp(")"); err != nil {
			return st, 0, err
		}

		if tp.acceptOp("->") {
			if _, err := tp.test(); err != nil {
				return st, 0, err
			}
		}

	case "if":
		st.Kind = StmtIf

		cond, err := tp.test()
		if err != nil {
			return st, 0, err
		}

		body, next, err := p.block(i, hi, indent, tp)
		if err != nil {
			return st, 0, err
		}

		st.Branches = []Branch{{Cond: cond, Body: body}}
		next = p.elifChain(&st, next, hi, indent)

		return st, next, nil

	case "for":
		st.Kind = StmtFor

		target, err := tp.targetList()
		if err != nil {
			return st, 0, err
		}

		if !tp.acceptKw("in") {
			return st, 0, tp.errorf("expected 'in'")
		}

		st.Targets = []Expr{target}
		if st.Value, err = tp.exprList(true); err != nil {
			return st, 0, err
		}

	case "while":
		st.Kind = StmtWhile
		if st.Value, err = tp.test(); err != nil {
			return st, 0, err
		}
	}

	body, next, err := p.block(i, hi, indent, tp)
	if err != nil {
		return st, 0, err
	}

	st.Body = body

	if st.Kind == StmtFor || st.Kind == StmtWhile {
		if els, after, ok := p.clause(next, hi, indent, "else"); ok {
			st.Else, next = els, after
		}
	}

	return st, next, nil
}

// elifChain attaches the elif and else clauses that follow an if suite at
// the same indentation.
func (p *parser) elifChain(st *Stmt, next, hi, indent int) int {
	for {
		j := p.skipBlank(next, hi)
		if j >= hi || Indent(p.texts[j]) != indent {
			return next
		}

		text := strings.TrimSpace(p.texts[j])

		switch leadingWord(text) {
		case "elif":
			toks, err := tokenize(text)
			if err != nil {
				return next
			}

			tp := &tokParser{src: text, toks: toks}
			tp.next()

			cond, err := tp.test()
			if err != nil {
				return next
			}

			body, after, err := p.block(j, hi, indent, tp)
			if err != nil {
				return next
			}

			st.Branches = append(st.Branches, Branch{Cond: cond, Body: body})
			next = after

		case "else":
			if els, after, ok := p.clause(next, hi, indent, "else"); ok {
				st.Else = els

				return after
			}

			return next

		default:
			return next
		}
	}
}

// clause parses a "KEYWORD:" continuation clause at logical line i.
func (p *parser) clause(i, hi, indent int, kw string) (Suite, int, bool) {
	j := p.skipBlank(i, hi)
	if j >= hi || Indent(p.texts[j]) != indent {
		return nil, i, false
	}

	text := strings.TrimSpace(p.texts[j])
	if leadingWord(text) != kw {
		return nil, i, false
	}

	toks, err := tokenize(text)
	if err != nil {
		return nil, i, false
	}

	tp := &tokParser{src: text, toks: toks}
	tp.next()

	body, next, err := p.block(j, hi, indent, tp)
	if err != nil {
		return nil, i, false
	}

	return body, next, true
}

func (p *parser) skipBlank(i, hi int) int {
	for i < hi && isBlank(p.texts[i]) {
		i++
	}

	return i
}

// block consumes the ':' that ends a header and parses the suite that
// follows: the rest of the line when present, otherwise the indented block
// found by ResolveBlock.
func (p *parser) block(i, hi, indent int, tp *tokParser) (Suite, int, error) {
	colon := tp.peek()
	if !tp.acceptOp(":") {
		return nil, 0, tp.errorf("expected ':'")
	}

	rest := strings.TrimSpace(tp.src[colon.pos+1:])
	if rest != "" && rest[0] != '#' {
		return p.simple(rest, p.lines[i].first+1, indent+1), i + 1, nil
	}

	end := min(ResolveBlock(p.texts, i, indent), hi)

	return p.suite(i+1, end), end, nil
}

// simple parses one or more ';'-separated simple statements.
func (p *parser) simple(text string, line, indent int) []int {
	toks, err := tokenize(text)
	if err != nil {
		return []int{p.add(fallback(text, line, indent))}
	}

	var ids []int

	start := 0

	for k := 0; k < len(toks); k++ {
		t := toks[k]
		if t.kind != tokEOF && (t.kind != tokOp || t.text != ";") {
			continue
		}

		chunk := append(slices.Clone(toks[start:k]), token{kind: tokEOF, pos: t.pos})
		start = k + 1

		if len(chunk) == 1 {
			continue
		}

		src := strings.TrimSpace(text[chunk[0].pos:t.pos])
		tp := &tokParser{src: text, toks: chunk}

		st, err := tp.simpleStmt()
		if err != nil {
			st = fallback(src, line, indent)
		}

		st.Line, st.Indent, st.Source = line, indent, src
		ids = append(ids, p.add(st))
	}

	return ids
}

// fallback interprets text that failed to parse. A top-level "=" still
// makes an assignment whose right side may be raw text, and a call shape
// still makes a call with raw arguments. Anything else is a raw no-op.
func fallback(text string, line, indent int) Stmt {
	st := Stmt{Kind: StmtRaw, Line: line, Indent: indent, Source: text}

	if lhs, op, rhs, ok := splitAssign(text); ok {
		if target, err := parseTarget(lhs); err == nil {
			st.Targets = []Expr{target}
			st.Value = parseExprText(rhs)
			st.Kind = StmtAssign

			if op != "" {
				st.Kind, st.Op = StmtAugAssign, op
			}

			return st
		}
	}

	if call, ok := rawCall(text); ok {
		st.Kind, st.Value = StmtExpr, call
	}

	return st
}

// splitAssign finds the first top-level assignment operator in text.
func splitAssign(text string) (lhs, op, rhs string, ok bool) {
	depth := 0

	var quote byte

	for i := 0; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth != 0 {
				continue
			}

			if i+1 < len(text) && text[i+1] == '=' {
				i++

				continue
			}

			j := i
			for j > 0 && strings.IndexByte("+-*/%&|^<>!", text[j-1]) >= 0 {
				j--
			}

			op = text[j:i]
			if op == "!" || op == "<" || op == ">" {
				continue
			}

			return strings.TrimSpace(text[:j]), op, strings.TrimSpace(text[i+1:]), true
		}
	}

	return "", "", "", false
}

// splitTopLevel splits s on sep where it is outside brackets and strings.
func splitTopLevel(s string, sep byte) []string {
	var parts []string

	depth, start := 0, 0

	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch {
		case c == '\'' || c == '"':
			quote = c
		case strings.IndexByte("([{", c) >= 0:
			depth++
		case strings.IndexByte(")]}", c) >= 0:
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}

	return append(parts, s[start:])
}

// matchClose returns the index of the bracket closing the one at s[open],
// or -1.
func matchClose(s string, open int) int {
	depth := 0

	var quote byte

	for i := open; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth--; depth == 0 {
				return i
			}
		}
	}

	return -1
}

// rawCall recognizes NAME(...) and NAME.NAME(...) shapes whose arguments
// did not parse.
func rawCall(text string) (*Call, bool) {
	open := strings.IndexByte(text, '(')
	if open <= 0 || !strings.HasSuffix(text, ")") {
		return nil, false
	}

	fn, err := parseExpr(strings.TrimSpace(text[:open]))
	if err != nil {
		return nil, false
	}

	switch fn.(type) {
	case *Name, *Attr:
	default:
		return nil, false
	}

	if matchClose(text, open) != len(text)-1 {
		return nil, false
	}

	inner := text[open+1 : len(text)-1]

	call := &Call{Fn: fn}

	for _, arg := range splitTopLevel(inner, ',') {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}

		if name := leadingWord(arg); name != "" && !keywords[name] {
			if rest := strings.TrimSpace(arg[len(name):]); strings.HasPrefix(rest, "=") &&
				!strings.HasPrefix(rest, "==") {
				call.Args = append(call.Args, Arg{
					Name:  name,
					Value: parseExprText(rest[1:]),
				})

				continue
			}
		}

		call.Args = append(call.Args, Arg{Value: parseExprText(arg)})
	}

	return call, true
}

// parseExpr parses text as a single expression list.
func parseExpr(text string) (Expr, error) {
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	tp := &tokParser{src: text, toks: toks}

	e, err := tp.exprList(true)
	if err != nil {
		return nil, err
	}

	if !tp.atEnd() {
		return nil, tp.errorf("unexpected token")
	}

	return e, nil
}

// parseExprText parses text as an expression, falling back to a [Raw] node.
func parseExprText(text string) Expr {
	e, err := parseExpr(text)
	if err != nil {
		return &Raw{Text: strings.TrimSpace(text)}
	}

	return e
}

// parseTarget parses text as an assignment target list.
func parseTarget(text string) (Expr, error) {
	e, err := parseExpr(text)
	if err != nil {
		return nil, err
	}

	return e, checkTarget(e)
}

func checkTarget(e Expr) error {
	switch t := e.(type) {
	case *Name, *Index, *Attr:
		return nil
	case *Starred:
		return checkTarget(t.X)
	case *TupleExpr:
		for _, el := range t.Elts {
			if err := checkTarget(el); err != nil {
				return err
			}
		}

		return nil
	case *ListExpr:
		for _, el := range t.Elts {
			if err := checkTarget(el); err != nil {
				return err
			}
		}

		return nil
	}

	return ErrSyntax.With(slog.String("issue", "cannot assign to expression"))
}

// tokParser is a recursive-descent parser over the tokens of one logical
// line.
type tokParser struct {
	src  string
	toks []token
	pos  int
}

func (tp *tokParser) peek() token { return tp.toks[tp.pos] }

func (tp *tokParser) peekN(n int) token {
	if tp.pos+n >= len(tp.toks) {
		return tp.toks[len(tp.toks)-1]
	}

	return tp.toks[tp.pos+n]
}

func (tp *tokParser) next() token {
	t := tp.toks[tp.pos]
	if t.kind != tokEOF {
		tp.pos++
	}

	return t
}

func (tp *tokParser) atEnd() bool { return tp.peek().kind == tokEOF }

func (tp *tokParser) isOp(s string) bool {
	t := tp.peek()

	return t.kind == tokOp && t.text == s
}

func (tp *tokParser) isKw(s string) bool {
	t := tp.peek()

	return t.kind == tokName && t.text == s
}

func (tp *tokParser) acceptOp(s string) bool {
	if tp.isOp(s) {
		tp.next()

		return true
	}

	return false
}

func (tp *tokParser) acceptKw(s string) bool {
	if tp.isKw(s) {
		tp.next()

		return true
	}

	return false
}

func (tp *tokParser) expectOp(s string) error {
	if !tp.acceptOp(s) {
		return tp.errorf("expected '" + s + "'")
	}

	return nil
}

func (tp *tokParser) errorf(issue string) error {
	t := tp.peek()

	return ErrSyntax.With(
		slog.String("issue", issue),
		slog.Int("column", t.pos+1),
		slog.String("near", t.text),
	)
}

// simpleStmt parses a simple statement filling the whole token list.
func (tp *tokParser) simpleStmt() (Stmt, error) {
	var st Stmt

	t := tp.peek()
	if t.kind == tokName {
		switch t.text {
		case "pass", "break", "continue":
			tp.next()

			st.Kind = map[string]StmtKind{
				"pass": StmtPass, "break": StmtBreak, "continue": StmtContinue,
			}[t.text]

			return st, tp.end()

		case "return":
			tp.next()

			st.Kind = StmtReturn
			if !tp.atEnd() {
				v, err := tp.exprList(true)
				if err != nil {
					return st, err
				}

				st.Value = v
			}

			return st, tp.end()

		case "del":
			tp.next()

			st.Kind = StmtDel

			targets, err := tp.exprList(false)
			if err != nil {
				return st, err
			}

			if err := checkTarget(targets); err != nil {
				return st, err
			}

			if tup, ok := targets.(*TupleExpr); ok {
				st.Targets = tup.Elts
			} else {
				st.Targets = []Expr{targets}
			}

			return st, tp.end()

		case "global", "nonlocal":
			for !tp.atEnd() {
				tp.next()
			}

			st.Kind = StmtPass

			return st, nil
		}
	}

	first, err := tp.exprList(true)
	if err != nil {
		return st, err
	}

	switch op := tp.peek(); {
	case tp.isOp("="):
		exprs := []Expr{first}

		for tp.acceptOp("=") {
			v, err := tp.exprList(true)
			if err != nil {
				return st, err
			}

			exprs = append(exprs, v)
		}

		for _, target := range exprs[:len(exprs)-1] {
			if err := checkTarget(target); err != nil {
				return st, err
			}
		}

		st.Kind = StmtAssign
		st.Targets = exprs[:len(exprs)-1]
		st.Value = exprs[len(exprs)-1]

	case op.kind == tokOp && slices.Contains(augOps, op.text):
		switch first.(type) {
		case *Name, *Index, *Attr:
		default:
			return st, tp.errorf("illegal target for augmented assignment")
		}

		tp.next()

		v, err := tp.exprList(true)
		if err != nil {
			return st, err
		}

		st.Kind = StmtAugAssign
		st.Targets = []Expr{first}
		st.Op = strings.TrimSuffix(op.text, "=")
		st.Value = v

	case tp.isOp(":"):
		// annotated assignment; the annotation is not evaluated
		tp.next()

		if _, err := tp.test(); err != nil {
			return st, err
		}

		if err := checkTarget(first); err != nil {
			return st, err
		}

		st.Kind = StmtPass

		if tp.acceptOp("=") {
			v, err := tp.exprList(true)
			if err != nil {
				return st, err
			}

			st.Kind = StmtAssign
			st.Targets = []Expr{first}
			st.Value = v
		}

	default:
		st.Kind = StmtExpr
		st.Value = first
	}

	return st, tp.end()
}

func (tp *tokParser) end() error {
	if !tp.atEnd() {
		return tp.errorf("unexpected token")
	}

	return nil
}

// endOfList reports whether the next token closes a comma list, which
// allows a trailing comma.
func (tp *tokParser) endOfList() bool {
	t := tp.peek()
	if t.kind == tokEOF {
		return true
	}

	if t.kind == tokName {
		return t.text == "in"
	}

	if t.kind != tokOp {
		return false
	}

	switch t.text {
	case ")", "]", "}", "=", ":", ";":
		return true
	}

	return slices.Contains(augOps, t.text)
}

// exprList parses a comma-separated expression list. More than one element,
// or a trailing comma, makes a tuple.
func (tp *tokParser) exprList(allowStar bool) (Expr, error) {
	first, err := tp.starOrTest(allowStar)
	if err != nil {
		return nil, err
	}

	if !tp.isOp(",") {
		return first, nil
	}

	elts := []Expr{first}

	for tp.acceptOp(",") {
		if tp.endOfList() {
			break
		}

		e, err := tp.starOrTest(allowStar)
		if err != nil {
			return nil, err
		}

		elts = append(elts, e)
	}

	return &TupleExpr{Elts: elts}, nil
}

func (tp *tokParser) starOrTest(allowStar bool) (Expr, error) {
	if allowStar && tp.acceptOp("*") {
		x, err := tp.bitOr()
		if err != nil {
			return nil, err
		}

		return &Starred{X: x}, nil
	}

	return tp.test()
}

// targetList parses loop targets: primaries separated by commas.
func (tp *tokParser) targetList() (Expr, error) {
	one := func() (Expr, error) {
		if tp.acceptOp("*") {
			x, err := tp.postfix()
			if err != nil {
				return nil, err
			}

			return &Starred{X: x}, nil
		}

		return tp.postfix()
	}

	first, err := one()
	if err != nil {
		return nil, err
	}

	if !tp.isOp(",") {
		return first, checkTarget(first)
	}

	elts := []Expr{first}

	for tp.acceptOp(",") {
		if tp.endOfList() {
			break
		}

		e, err := one()
		if err != nil {
			return nil, err
		}

		elts = append(elts, e)
	}

	t := &TupleExpr{Elts: elts}

	return t, checkTarget(t)
}

func (tp *tokParser) test() (Expr, error) {
	if tp.isKw("lambda") {
		return tp.lambda()
	}

	x, err := tp.orTest()
	if err != nil {
		return nil, err
	}

	if !tp.acceptKw("if") {
		return x, nil
	}

	cond, err := tp.orTest()
	if err != nil {
		return nil, err
	}

	if !tp.acceptKw("else") {
		return nil, tp.errorf("expected 'else'")
	}

	els, err := tp.test()
	if err != nil {
		return nil, err
	}

	return &IfExp{Cond: cond, Then: x, Else: els}, nil
}

func (tp *tokParser) lambda() (Expr, error) {
	tp.next()

	params, err := tp.params(":", false)
	if err != nil {
		return nil, err
	}

	if err := tp.expectOp(":"); err != nil {
		return nil, err
	}

	body, err := tp.test()
	if err != nil {
		return nil, err
	}

	return &Lambda{Params: params, Body: body}, nil
}

// params parses a parameter list up to (not including) closer.
func (tp *tokParser) params(closer string, annotations bool) ([]Param, error) {
	var params []Param

	for !tp.isOp(closer) && !tp.atEnd() {
		var prm Param

		switch {
		case tp.acceptOp("**"):
			prm.Star = 2
		case tp.acceptOp("*"):
			prm.Star = 1
		case tp.acceptOp("/"):
			if !tp.acceptOp(",") {
				return params, nil
			}

			continue
		}

		name := tp.peek()

		switch {
		case name.kind == tokName && !keywords[name.text]:
			tp.next()

			prm.Name = name.text

		case prm.Star == 1:
			// bare '*' separates keyword-only parameters
			if !tp.acceptOp(",") {
				return params, nil
			}

			continue

		default:
			return nil, tp.errorf("expected parameter name")
		}

		if annotations && tp.acceptOp(":") {
			if _, err := tp.test(); err != nil {
				return nil, err
			}
		}

		if tp.acceptOp("=") {
			d, err := tp.test()
			if err != nil {
				return nil, err
			}

			prm.Default = d
		}

		params = append(params, prm)

		if !tp.acceptOp(",") {
			break
		}
	}

	return params, nil
}

func (tp *tokParser) orTest() (Expr, error) {
	l, err := tp.andTest()
	if err != nil {
		return nil, err
	}

	for tp.acceptKw("or") {
		r, err := tp.andTest()
		if err != nil {
			return nil, err
		}

		l = &BoolOp{Op: "or", L: l, R: r}
	}

	return l, nil
}

func (tp *tokParser) andTest() (Expr, error) {
	l, err := tp.notTest()
	if err != nil {
		return nil, err
	}

	for tp.acceptKw("and") {
		r, err := tp.notTest()
		if err != nil {
			return nil, err
		}

		l = &BoolOp{Op: "and", L: l, R: r}
	}

	return l, nil
}

func (tp *tokParser) notTest() (Expr, error) {
	if tp.acceptKw("not") {
		x, err := tp.notTest()
		if err != nil {
			return nil, err
		}

		return &Unary{Op: "not", X: x}, nil
	}

	return tp.comparison()
}

func (tp *tokParser) comparison() (Expr, error) {
	first, err := tp.bitOr()
	if err != nil {
		return nil, err
	}

	cmp := &Compare{First: first}

	for {
		t := tp.peek()

		var op string

		switch {
		case t.kind == tokOp && slices.Contains(
			[]string{"<", ">", "==", ">=", "<=", "!="}, t.text):
			op = t.text

			tp.next()

		case tp.isKw("in"):
			op = "in"

			tp.next()

		case tp.isKw("not") && tp.peekN(1).kind == tokName && tp.peekN(1).text == "in":
			op = "not in"

			tp.next()
			tp.next()

		case tp.isKw("is"):
			tp.next()

			op = "is"
			if tp.acceptKw("not") {
				op = "is not"
			}
		}

		if op == "" {
			break
		}

		r, err := tp.bitOr()
		if err != nil {
			return nil, err
		}

		cmp.Ops = append(cmp.Ops, op)
		cmp.Rest = append(cmp.Rest, r)
	}

	if len(cmp.Ops) == 0 {
		return first, nil
	}

	return cmp, nil
}

// binary parses a left-associative chain of the given operators.
func (tp *tokParser) binary(ops []string, operand func() (Expr, error)) (Expr, error) {
	l, err := operand()
	if err != nil {
		return nil, err
	}

	for {
		t := tp.peek()
		if t.kind != tokOp || !slices.Contains(ops, t.text) {
			return l, nil
		}

		tp.next()

		r, err := operand()
		if err != nil {
			return nil, err
		}

		l = &BinOp{Op: t.text, L: l, R: r}
	}
}

func (tp *tokParser) bitOr() (Expr, error) {
	return tp.binary([]string{"|"}, tp.bitXor)
}

func (tp *tokParser) bitXor() (Expr, error) {
	return tp.binary([]string{"^"}, tp.bitAnd)
}

func (tp *tokParser) bitAnd() (Expr, error) {
	return tp.binary([]string{"&"}, tp.shift)
}

func (tp *tokParser) shift() (Expr, error) {
	return tp.binary([]string{"<<", ">>"}, tp.arith)
}

func (tp *tokParser) arith() (Expr, error) {
	return tp.binary([]string{"+", "-"}, tp.term)
}

func (tp *tokParser) term() (Expr, error) {
	return tp.binary([]string{"*", "/", "//", "%", "@"}, tp.factor)
}

func (tp *tokParser) factor() (Expr, error) {
	t := tp.peek()
	if t.kind == tokOp && (t.text == "-" || t.text == "+" || t.text == "~") {
		tp.next()

		lit, start := tp.peek(), tp.pos

		x, err := tp.factor()
		if err != nil {
			return nil, err
		}

		if c, ok := x.(*Const); ok && t.text == "-" {
			switch v := c.Value.(type) {
			case int64:
				if v != math.MinInt64 {
					return &Const{Value: -v}, nil
				}
			case float64:
				// -9223372036854775808 only fits once negated
				if lit.kind == tokInt && tp.pos == start+1 {
					if n, ok := parseNegInt(lit.text); ok {
						return &Const{Value: n}, nil
					}
				}

				return &Const{Value: -v}, nil
			}
		}

		return &Unary{Op: t.text, X: x}, nil
	}

	return tp.power()
}

func (tp *tokParser) power() (Expr, error) {
	x, err := tp.postfix()
	if err != nil {
		return nil, err
	}

	if !tp.acceptOp("**") {
		return x, nil
	}

	r, err := tp.factor()
	if err != nil {
		return nil, err
	}

	return &BinOp{Op: "**", L: x, R: r}, nil
}

// postfix parses an atom followed by call, subscript and attribute
// trailers.
func (tp *tokParser) postfix() (Expr, error) {
	x, err := tp.atom()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case tp.acceptOp("("):
			args, err := tp.args()
			if err != nil {
				return nil, err
			}

			x = &Call{Fn: x, Args: args}

		case tp.acceptOp("["):
			key, err := tp.subscript()
			if err != nil {
				return nil, err
			}

			if err := tp.expectOp("]"); err != nil {
				return nil, err
			}

			x = &Index{X: x, Key: key}

		case tp.acceptOp("."):
			name := tp.next()
			if name.kind != tokName {
				return nil, tp.errorf("expected attribute name")
			}

			x = &Attr{X: x, Name: name.text}

		default:
			return x, nil
		}
	}
}

func (tp *tokParser) args() ([]Arg, error) {
	var args []Arg

	for !tp.isOp(")") {
		var arg Arg

		switch {
		case tp.acceptOp("**"):
			arg.Star = 2
		case tp.acceptOp("*"):
			arg.Star = 1
		case tp.peek().kind == tokName && tp.peekN(1).kind == tokOp &&
			tp.peekN(1).text == "=":
			arg.Name = tp.next().text

			tp.next()
		}

		v, err := tp.test()
		if err != nil {
			return nil, err
		}

		if arg.Name == "" && arg.Star == 0 && tp.isKw("for") {
			if v, err = tp.comprehension(CompGen, v, nil); err != nil {
				return nil, err
			}
		}

		arg.Value = v
		args = append(args, arg)

		if !tp.acceptOp(",") {
			break
		}
	}

	return args, tp.expectOp(")")
}

func (tp *tokParser) subscript() (Expr, error) {
	first, err := tp.sliceItem()
	if err != nil {
		return nil, err
	}

	if !tp.isOp(",") {
		return first, nil
	}

	elts := []Expr{first}

	for tp.acceptOp(",") {
		if tp.isOp("]") {
			break
		}

		e, err := tp.sliceItem()
		if err != nil {
			return nil, err
		}

		elts = append(elts, e)
	}

	return &TupleExpr{Elts: elts}, nil
}

func (tp *tokParser) sliceItem() (Expr, error) {
	var lo, hi, step Expr

	var err error

	if !tp.isOp(":") {
		if lo, err = tp.test(); err != nil {
			return nil, err
		}

		if !tp.isOp(":") {
			return lo, nil
		}
	}

	tp.next()

	bound := func() bool { return tp.isOp(":") || tp.isOp("]") || tp.isOp(",") }

	if !bound() {
		if hi, err = tp.test(); err != nil {
			return nil, err
		}
	}

	if tp.acceptOp(":") && !bound() {
		if step, err = tp.test(); err != nil {
			return nil, err
		}
	}

	return &SliceExpr{Lo: lo, Hi: hi, Step: step}, nil
}

func (tp *tokParser) atom() (Expr, error) {
	t := tp.next()

	switch t.kind {
	case tokInt:
		return parseInt(t.text), nil

	case tokFloat:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t.text, "_", ""), 64)
		if err != nil {
			return nil, ErrSyntax.Wrap(err).With(slog.String("literal", t.text))
		}

		return &Const{Value: f}, nil

	case tokString:
		return tp.stringLit(t)

	case tokName:
		switch t.text {
		case "None":
			return &Const{Value: nil}, nil
		case "True":
			return &Const{Value: true}, nil
		case "False":
			return &Const{Value: false}, nil
		}

		if keywords[t.text] {
			tp.pos--

			return nil, tp.errorf("unexpected keyword")
		}

		return &Name{ID: t.text}, nil

	case tokOp:
		switch t.text {
		case "(":
			return tp.paren()
		case "[":
			return tp.list()
		case "{":
			return tp.brace()
		}
	}

	if t.kind != tokEOF {
		tp.pos--
	}

	return nil, tp.errorf("unexpected token")
}

// parseInt parses an integer literal; values too large for int64 become
// floats.
func parseInt(text string) *Const {
	clean := strings.ReplaceAll(text, "_", "")

	base := 10
	if len(clean) > 1 && clean[0] == '0' && strings.ContainsRune("xXoObB", rune(clean[1])) {
		base = 0
	}

	n, err := strconv.ParseInt(clean, base, 64)
	if err != nil {
		f, _ := strconv.ParseFloat(clean, 64)

		return &Const{Value: f}
	}

	return &Const{Value: n}
}

// parseNegInt parses the negation of an integer literal.
func parseNegInt(text string) (int64, bool) {
	clean := strings.ReplaceAll(text, "_", "")

	base := 10
	if len(clean) > 1 && clean[0] == '0' && strings.ContainsRune("xXoObB", rune(clean[1])) {
		base = 0
	}

	n, err := strconv.ParseInt("-"+clean, base, 64)

	return n, err == nil
}

// stringLit joins adjacent string literals, producing an f-string node
// when any of them is formatted.
func (tp *tokParser) stringLit(first token) (Expr, error) {
	toks := []token{first}
	for tp.peek().kind == tokString {
		toks = append(toks, tp.next())
	}

	formatted := slices.ContainsFunc(toks, func(t token) bool { return t.fstr })
	if !formatted {
		var b strings.Builder
		for _, t := range toks {
			b.WriteString(t.str)
		}

		return &Const{Value: b.String()}, nil
	}

	var parts []FPart

	for _, t := range toks {
		if !t.fstr {
			parts = append(parts, FPart{Lit: t.str})

			continue
		}

		fp, err := parseFString(t.str, t.raw)
		if err != nil {
			return nil, err
		}

		parts = append(parts, fp...)
	}

	return &FString{Parts: parts}, nil
}

func (tp *tokParser) paren() (Expr, error) {
	if tp.acceptOp(")") {
		return &TupleExpr{}, nil
	}

	first, err := tp.starOrTest(true)
	if err != nil {
		return nil, err
	}

	if tp.isKw("for") {
		comp, err := tp.comprehension(CompGen, first, nil)
		if err != nil {
			return nil, err
		}

		return comp, tp.expectOp(")")
	}

	if !tp.isOp(",") {
		return first, tp.expectOp(")")
	}

	elts, err := tp.elements(first, ")")
	if err != nil {
		return nil, err
	}

	return &TupleExpr{Elts: elts}, nil
}

func (tp *tokParser) list() (Expr, error) {
	if tp.acceptOp("]") {
		return &ListExpr{}, nil
	}

	first, err := tp.starOrTest(true)
	if err != nil {
		return nil, err
	}

	if tp.isKw("for") {
		comp, err := tp.comprehension(CompList, first, nil)
		if err != nil {
			return nil, err
		}

		return comp, tp.expectOp("]")
	}

	elts, err := tp.elements(first, "]")
	if err != nil {
		return nil, err
	}

	return &ListExpr{Elts: elts}, nil
}

// elements parses the remaining comma-separated elements of a display after
// first, through the closing token.
func (tp *tokParser) elements(first Expr, closer string) ([]Expr, error) {
	elts := []Expr{first}

	for tp.acceptOp(",") {
		if tp.isOp(closer) {
			break
		}

		e, err := tp.starOrTest(true)
		if err != nil {
			return nil, err
		}

		elts = append(elts, e)
	}

	return elts, tp.expectOp(closer)
}

func (tp *tokParser) brace() (Expr, error) {
	if tp.acceptOp("}") {
		return &DictExpr{}, nil
	}

	if tp.isOp("**") {
		return tp.dict(nil, nil)
	}

	first, err := tp.starOrTest(true)
	if err != nil {
		return nil, err
	}

	if tp.acceptOp(":") {
		val, err := tp.test()
		if err != nil {
			return nil, err
		}

		if tp.isKw("for") {
			comp, err := tp.comprehension(CompDict, first, val)
			if err != nil {
				return nil, err
			}

			return comp, tp.expectOp("}")
		}

		return tp.dict(first, val)
	}

	if tp.isKw("for") {
		comp, err := tp.comprehension(CompSet, first, nil)
		if err != nil {
			return nil, err
		}

		return comp, tp.expectOp("}")
	}

	elts, err := tp.elements(first, "}")
	if err != nil {
		return nil, err
	}

	return &SetExpr{Elts: elts}, nil
}

// dict parses the rest of a dict display whose first entry, if already
// parsed, is key: val.
func (tp *tokParser) dict(key, val Expr) (Expr, error) {
	d := &DictExpr{}

	if val != nil {
		d.Keys = append(d.Keys, key)
		d.Values = append(d.Values, val)

		if !tp.acceptOp(",") {
			return d, tp.expectOp("}")
		}
	}

	for !tp.isOp("}") {
		if tp.acceptOp("**") {
			m, err := tp.bitOr()
			if err != nil {
				return nil, err
			}

			d.Keys = append(d.Keys, nil)
			d.Values = append(d.Values, m)
		} else {
			k, err := tp.test()
			if err != nil {
				return nil, err
			}

			if err := tp.expectOp(":"); err != nil {
				return nil, err
			}

			v, err := tp.test()
			if err != nil {
				return nil, err
			}

			d.Keys = append(d.Keys, k)
			d.Values = append(d.Values, v)
		}

		if !tp.acceptOp(",") {
			break
		}
	}

	return d, tp.expectOp("}")
}

func (tp *tokParser) comprehension(kind CompKind, elt, val Expr) (Expr, error) {
	comp := &Comp{Kind: kind, Elt: elt, Val: val}

	for tp.acceptKw("for") {
		target, err := tp.targetList()
		if err != nil {
			return nil, err
		}

		if !tp.acceptKw("in") {
			return nil, tp.errorf("expected 'in'")
		}

		iter, err := tp.orTest()
		if err != nil {
			return nil, err
		}

		clause := CompFor{Target: target, Iter: iter}

		for tp.acceptKw("if") {
			cond, err := tp.orTest()
			if err != nil {
				return nil, err
			}

			clause.Ifs = append(clause.Ifs, cond)
		}

		comp.Clauses = append(comp.Clauses, clause)
	}

	return comp, nil
}

// parseFString splits an f-string body into literal and replacement-field
// parts. Field expressions that do not parse become raw text.
func parseFString(body string, raw bool) ([]FPart, error) {
	var (
		parts []FPart
		lit   strings.Builder
	)

	flush := func() {
		if lit.Len() == 0 {
			return
		}

		s := lit.String()
		if !raw {
			s = unescape(s)
		}

		parts = append(parts, FPart{Lit: s})
		lit.Reset()
	}

	for i := 0; i < len(body); {
		c := body[i]

		switch {
		case c == '{' && strings.HasPrefix(body[i:], "{{"):
			lit.WriteByte('{')

			i += 2

		case c == '}' && strings.HasPrefix(body[i:], "}}"):
			lit.WriteByte('}')

			i += 2

		case c == '{':
			f, ok := scanField(body, i+1)
			if !ok {
				return nil, ErrSyntax.With(
					slog.String("issue", "unterminated replacement field"),
					slog.String("fstring", body),
				)
			}

			flush()

			text := body[i+1 : f.exprEnd]
			part := FPart{Conv: f.conv}

			// self-documenting "{expr=}"
			if trimmed := strings.TrimRight(text, " "); strings.HasSuffix(trimmed, "=") &&
				!strings.HasSuffix(trimmed, "==") && strings.IndexByte("!<>", lastByte(trimmed[:len(trimmed)-1])) < 0 {
				parts = append(parts, FPart{Lit: text})
				text = trimmed[:len(trimmed)-1]

				if part.Conv == 0 && f.specStart < 0 {
					part.Conv = 'r'
				}
			}

			part.Expr = parseExprText(text)

			if f.specStart >= 0 {
				spec, err := parseFString(body[f.specStart:f.close], raw)
				if err != nil {
					return nil, err
				}

				part.Spec = &FString{Parts: spec}
			}

			parts = append(parts, part)
			i = f.close + 1

		default:
			lit.WriteByte(c)

			i++
		}
	}

	flush()

	return parts, nil
}

func lastByte(s string) byte {
	if s == "" {
		return 0
	}

	return s[len(s)-1]
}

// field locates the pieces of one f-string replacement field.
type field struct {
	exprEnd   int  // end of the expression text
	specStart int  // start of the format spec, or -1
	close     int  // index of the closing brace
	conv      byte // conversion character, or 0
}

// scanField scans the replacement field whose expression starts at i.
func scanField(s string, i int) (field, bool) {
	f := field{exprEnd: -1, specStart: -1}
	depth := 0

	var quote byte

	for ; i < len(s); i++ {
		c := s[i]

		if quote != 0 {
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}

			continue
		}

		switch c {
		case '\'', '"':
			quote = c

		case '(', '[', '{':
			depth++

		case ')', ']':
			depth--

		case '}':
			if depth > 0 {
				depth--

				continue
			}

			if f.exprEnd < 0 {
				f.exprEnd = i
			}

			f.close = i

			return f, true

		case '!':
			if depth == 0 && f.exprEnd < 0 && i+1 < len(s) && s[i+1] != '=' {
				f.exprEnd = i
				f.conv = s[i+1]
				i++
			}

		case ':':
			if depth != 0 {
				continue
			}

			if f.exprEnd < 0 {
				f.exprEnd = i
			}

			f.specStart = i + 1

			nest := 0

			for j := i + 1; j < len(s); j++ {
				switch s[j] {
				case '{':
					nest++
				case '}':
					if nest == 0 {
						f.close = j

						return f, true
					}

					nest--
				}
			}

			return f, false
		}
	}

	return f, false
}

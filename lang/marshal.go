package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
)

// MarshalJSON implements json.Marshaler for Program.
func (p *Program) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

// ToMap converts the program to native Go maps and slices, with
// expressions rendered back to source form.
func (p *Program) ToMap() map[string]any {
	return map[string]any{
		"lines":      len(p.Lines),
		"statements": p.suiteMap(p.Body),
	}
}

func (p *Program) suiteMap(s Suite) []any {
	out := make([]any, 0, len(s))
	for _, i := range s {
		out = append(out, p.stmtMap(p.Stmt(i)))
	}

	return out
}

func (p *Program) stmtMap(st *Stmt) map[string]any {
	m := map[string]any{
		"kind": st.Kind.String(),
		"line": st.Line,
	}

	if len(st.Targets) > 0 {
		targets := make([]any, len(st.Targets))
		for i, t := range st.Targets {
			targets[i] = Unparse(t)
		}

		m["targets"] = targets
	}

	if st.Op != "" {
		m["op"] = st.Op + "="
	}

	if st.Value != nil {
		m["value"] = Unparse(st.Value)
	}

	if st.Kind == StmtDef {
		m["name"] = st.Name
		m["params"] = paramList(st.Params)
	}

	if st.Kind == StmtRaw {
		m["source"] = st.Source
	}

	if len(st.Branches) > 0 {
		branches := make([]any, len(st.Branches))
		for i, br := range st.Branches {
			branches[i] = map[string]any{
				"cond": Unparse(br.Cond),
				"body": p.suiteMap(br.Body),
			}
		}

		m["branches"] = branches
	}

	if len(st.Body) > 0 {
		m["body"] = p.suiteMap(st.Body)
	}

	if len(st.Else) > 0 {
		m["else"] = p.suiteMap(st.Else)
	}

	return m
}

// FormatJSON writes the program as JSON to the writer.
func (p *Program) FormatJSON(_ context.Context, w io.Writer, indent int) error {
	var (
		jsonData []byte
		err      error
	)

	if indent > 0 {
		jsonData, err = json.MarshalIndent(p, "", strings.Repeat(" ", indent))
	} else {
		jsonData, err = json.Marshal(p)
	}

	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(jsonData))

	return err
}

// FormatYAML writes the program as YAML to the writer.
func (p *Program) FormatYAML(ctx context.Context, w io.Writer, indent int) error {
	var opts []yaml.EncodeOption
	if indent > 0 {
		opts = append(opts, yaml.Indent(indent))
	} else {
		opts = append(opts, yaml.Flow(true))
	}

	yamlData, err := yaml.MarshalContext(ctx, p.ToMap(), opts...)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, string(yamlData))

	return err
}

// FormatTree writes an indented outline of the statement arena.
func (p *Program) FormatTree(w io.Writer) error {
	return p.tree(w, p.Body, 0)
}

func (p *Program) tree(w io.Writer, s Suite, depth int) error {
	prefix := strings.Repeat("  ", depth)

	for _, i := range s {
		st := p.Stmt(i)

		head := fmt.Sprintf("%s%s [%d]", prefix, st.Kind, st.Line)
		if s := p.summary(st); s != "" {
			head += " " + s
		}

		if _, err := fmt.Fprintln(w, head); err != nil {
			return err
		}

		for j, br := range st.Branches {
			label := "elif"
			if j == 0 {
				label = "if"
			}

			if _, err := fmt.Fprintf(w, "%s  %s %s:\n", prefix, label, Unparse(br.Cond)); err != nil {
				return err
			}

			if err := p.tree(w, br.Body, depth+2); err != nil {
				return err
			}
		}

		if err := p.tree(w, st.Body, depth+1); err != nil {
			return err
		}

		if len(st.Else) > 0 {
			if _, err := fmt.Fprintf(w, "%s  else:\n", prefix); err != nil {
				return err
			}

			if err := p.tree(w, st.Else, depth+2); err != nil {
				return err
			}
		}
	}

	return nil
}

// summary renders the header of a statement on one line.
func (p *Program) summary(st *Stmt) string {
	targets := make([]string, len(st.Targets))
	for i, t := range st.Targets {
		targets[i] = Unparse(t)
	}

	switch st.Kind {
	case StmtAssign:
		return strings.Join(targets, " = ") + " = " + Unparse(st.Value)
	case StmtAugAssign:
		return targets[0] + " " + st.Op + "= " + Unparse(st.Value)
	case StmtDef:
		return st.Name + "(" + strings.Join(paramList(st.Params), ", ") + ")"
	case StmtFor:
		return targets[0] + " in " + Unparse(st.Value)
	case StmtDel:
		return strings.Join(targets, ", ")
	case StmtRaw:
		return st.Source
	}

	if st.Value != nil {
		return Unparse(st.Value)
	}

	return ""
}

func paramList(params []Param) []string {
	out := make([]string, len(params))

	for i, prm := range params {
		s := strings.Repeat("*", prm.Star) + prm.Name
		if prm.Default != nil {
			s += "=" + Unparse(prm.Default)
		}

		out[i] = s
	}

	return out
}

// Unparse renders an expression back to source text.
func Unparse(e Expr) string {
	var b strings.Builder

	unparse(&b, e)

	return b.String()
}

func unparseList(b *strings.Builder, elts []Expr) {
	for i, x := range elts {
		if i > 0 {
			b.WriteString(", ")
		}

		unparse(b, x)
	}
}

func unparse(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
	case *Const:
		b.WriteString(Repr(x.Value))
	case *Name:
		b.WriteString(x.ID)
	case *Raw:
		b.WriteString(x.Text)
	case *FString:
		b.WriteString("f")
		b.WriteString(quote(fstringSource(x)))
	case *ListExpr:
		b.WriteByte('[')
		unparseList(b, x.Elts)
		b.WriteByte(']')
	case *TupleExpr:
		b.WriteByte('(')
		unparseList(b, x.Elts)

		if len(x.Elts) == 1 {
			b.WriteByte(',')
		}

		b.WriteByte(')')
	case *SetExpr:
		b.WriteByte('{')
		unparseList(b, x.Elts)
		b.WriteByte('}')
	case *DictExpr:
		b.WriteByte('{')

		for i, k := range x.Keys {
			if i > 0 {
				b.WriteString(", ")
			}

			if k == nil {
				b.WriteString("**")
			} else {
				unparse(b, k)
				b.WriteString(": ")
			}

			unparse(b, x.Values[i])
		}

		b.WriteByte('}')
	case *Comp:
		open, close := map[CompKind]string{
			CompList: "[", CompSet: "{", CompDict: "{", CompGen: "(",
		}[x.Kind], map[CompKind]string{
			CompList: "]", CompSet: "}", CompDict: "}", CompGen: ")",
		}[x.Kind]

		b.WriteString(open)
		unparse(b, x.Elt)

		if x.Kind == CompDict {
			b.WriteString(": ")
			unparse(b, x.Val)
		}

		for _, cl := range x.Clauses {
			b.WriteString(" for ")
			unparse(b, cl.Target)
			b.WriteString(" in ")
			unparse(b, cl.Iter)

			for _, c := range cl.Ifs {
				b.WriteString(" if ")
				unparse(b, c)
			}
		}

		b.WriteString(close)
	case *BinOp:
		b.WriteByte('(')
		unparse(b, x.L)
		b.WriteString(" " + x.Op + " ")
		unparse(b, x.R)
		b.WriteByte(')')
	case *Unary:
		b.WriteString(x.Op)

		if x.Op == "not" {
			b.WriteByte(' ')
		}

		unparse(b, x.X)
	case *BoolOp:
		b.WriteByte('(')
		unparse(b, x.L)
		b.WriteString(" " + x.Op + " ")
		unparse(b, x.R)
		b.WriteByte(')')
	case *Compare:
		unparse(b, x.First)

		for i, op := range x.Ops {
			b.WriteString(" " + op + " ")
			unparse(b, x.Rest[i])
		}
	case *IfExp:
		b.WriteByte('(')
		unparse(b, x.Then)
		b.WriteString(" if ")
		unparse(b, x.Cond)
		b.WriteString(" else ")
		unparse(b, x.Else)
		b.WriteByte(')')
	case *Call:
		unparse(b, x.Fn)
		b.WriteByte('(')

		for i, a := range x.Args {
			if i > 0 {
				b.WriteString(", ")
			}

			b.WriteString(strings.Repeat("*", a.Star))

			if a.Name != "" {
				b.WriteString(a.Name + "=")
			}

			unparse(b, a.Value)
		}

		b.WriteByte(')')
	case *Attr:
		unparse(b, x.X)
		b.WriteString("." + x.Name)
	case *Index:
		unparse(b, x.X)
		b.WriteByte('[')
		unparse(b, x.Key)
		b.WriteByte(']')
	case *SliceExpr:
		unparse(b, x.Lo)
		b.WriteByte(':')
		unparse(b, x.Hi)

		if x.Step != nil {
			b.WriteByte(':')
			unparse(b, x.Step)
		}
	case *Lambda:
		b.WriteString("(lambda")

		if len(x.Params) > 0 {
			b.WriteString(" " + strings.Join(paramList(x.Params), ", "))
		}

		b.WriteString(": ")
		unparse(b, x.Body)
		b.WriteByte(')')
	case *Starred:
		b.WriteByte('*')
		unparse(b, x.X)
	default:
		fmt.Fprintf(b, "%T", x)
	}
}

// fstringSource rebuilds the body of an f-string literal.
func fstringSource(f *FString) string {
	var b strings.Builder

	for _, p := range f.Parts {
		b.WriteString(strings.NewReplacer("{", "{{", "}", "}}").Replace(p.Lit))

		if p.Expr == nil {
			continue
		}

		b.WriteByte('{')
		b.WriteString(Unparse(p.Expr))

		if p.Conv != 0 {
			b.WriteByte('!')
			b.WriteByte(p.Conv)
		}

		if p.Spec != nil {
			b.WriteByte(':')
			b.WriteString(fstringSource(p.Spec))
		}

		b.WriteByte('}')
	}

	return b.String()
}

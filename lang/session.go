package lang

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"
)

// Output is the line buffer a run prints into. Text is appended to the
// last line while it is open; a newline closes it.
type Output struct {
	lines []string
	open  bool
}

// Write appends text, splitting it into lines at each newline. The last
// line stays open unless text ends with a newline.
func (o *Output) Write(text string) {
	if text == "" {
		return
	}

	parts := strings.Split(text, "\n")

	for i, part := range parts {
		if i == len(parts)-1 && i > 0 && part == "" {
			o.open = false

			return
		}

		if i == 0 && o.open {
			o.lines[len(o.lines)-1] += part
		} else {
			o.lines = append(o.lines, part)
		}

		o.open = true
	}
}

// Diagnostic appends msg as a line of its own.
func (o *Output) Diagnostic(msg string) {
	o.lines = append(o.lines, msg)
	o.open = false
}

// Lines returns a copy of the lines written so far.
func (o *Output) Lines() []string { return slices.Clone(o.lines) }

// Len returns the number of lines.
func (o *Output) Len() int { return len(o.lines) }

// Interpreter holds the bindings and functions of a session across
// successive [Interpreter.Exec] calls.
type Interpreter struct {
	in *interp
}

// NewInterpreter returns an interpreter with an empty global frame.
func NewInterpreter(opts ...Option) *Interpreter {
	return &Interpreter{in: newInterp(makeConfig(opts...))}
}

// Exec parses and runs src against the session state. It returns the lines
// printed by this call, including those printed before a failure.
func (it *Interpreter) Exec(ctx context.Context, src string) ([]string, error) {
	var prog *Program

	if it.in.cfg.cache {
		prog = ParseString(ctx, src, WithLogger(it.in.cfg.logger))
	} else {
		prog = Parse(src)
	}

	return it.ExecProgram(ctx, prog)
}

// ExecProgram runs a parsed program against the session state.
func (it *Interpreter) ExecProgram(ctx context.Context, prog *Program) ([]string, error) {
	in := it.in
	in.ctx = ctx
	in.out = &Output{}
	in.steps = 0

	start := time.Now()

	_, err := in.execSuite(prog, prog.Body, in.globals)

	attrs := []slog.Attr{
		slog.Int("statements", len(prog.Stmts)),
		slog.Int("lines", in.out.Len()),
		slog.Duration("elapsed", time.Since(start)),
	}

	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}

	in.cfg.logger.TraceContext(ctx, "run complete", attrs...)

	return in.out.Lines(), err
}

// Reset discards every binding and function.
func (it *Interpreter) Reset() {
	it.in.globals = NewEnv(nil)
	it.in.funcs = map[string]*Function{}
}

// Lookup returns the value bound to name in the global frame.
func (it *Interpreter) Lookup(name string) (Value, bool) {
	return it.in.globals.Lookup(name)
}

// Globals iterates over the global bindings in name order.
func (it *Interpreter) Globals() iter.Seq2[string, Value] {
	return it.in.globals.All()
}

// Functions returns the defined functions in name order.
func (it *Interpreter) Functions() []*Function {
	names := slices.Sorted(maps.Keys(it.in.funcs))

	fns := make([]*Function, len(names))
	for i, name := range names {
		fns[i] = it.in.funcs[name]
	}

	return fns
}

// Signature renders the parameter list of fn, as in "f(a, b=1, *rest)".
func (fn *Function) Signature() string {
	var b strings.Builder

	b.WriteString(fn.Name)
	b.WriteByte('(')

	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(strings.Repeat("*", p.Star))
		b.WriteString(p.Name)

		switch d := p.Default.(type) {
		case nil:
		case *Const:
			b.WriteString("=" + Repr(d.Value))
		default:
			b.WriteString("=...")
		}
	}

	b.WriteByte(')')

	return b.String()
}

// Run executes src in a fresh session and returns its output lines. On
// failure the lines printed before the failure are returned with the error.
func Run(ctx context.Context, src string, opts ...Option) ([]string, error) {
	return NewInterpreter(opts...).Exec(ctx, src)
}

// RunReader reads a program from r and runs it like [Run].
func RunReader(ctx context.Context, r io.Reader, opts ...Option) ([]string, error) {
	prog, err := ParseReader(ctx, r, opts...)
	if err != nil {
		return nil, err
	}

	return NewInterpreter(opts...).ExecProgram(ctx, prog)
}

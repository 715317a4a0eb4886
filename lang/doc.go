// Package lang implements the pyplay interpreter: a small Python-like teaching
// language executed line by line with captured output.
//
// # Running Programs
//
// [Run] executes a complete program and returns the ordered output lines:
//
//	lines, err := lang.Run(ctx, "print(1+2*3)")
//	// lines == []string{"7"}
//
// An [Interpreter] keeps global bindings and defined functions across calls
// to [Interpreter.Exec], which is how the interactive shell evaluates one
// input at a time:
//
//	in := lang.NewInterpreter(lang.WithMaxIterations(1000))
//	in.Exec(ctx, "def sq(x):\n    return x*x")
//	lines, _ := in.Exec(ctx, "print(sq(4))")
//
// # Parsing
//
// Source text is split into logical lines (physical lines joined while
// brackets or triple-quoted strings are open) and parsed once into a
// [Program]: an arena of [Stmt] nodes whose bodies are index ranges into the
// same arena. Suites are delimited by [ResolveBlock]: a body ends at the first
// following line, ignoring blank and comment lines, whose indentation is not
// deeper than its header.
//
// Parsing is permissive. A line that does not form a statement becomes a raw
// node that does nothing when executed, and an expression that cannot be
// parsed evaluates to its trimmed source text.
//
// Parsed programs are cached by source hash; see [ParseString],
// [ParseReader] and [ClearCache].
//
// # Values
//
// Guest values are Go values: nil (None), bool, int64, float64, string,
// [*List] (lists and tuples), [*Dict], [*Set], [*Range], [*Function] and
// [*Builtin]. [Unset] is what an unbound name evaluates to; it renders as
// None. [Repr] and [Str] render values the way the guest language prints
// them, and [FormatValue] applies a format-spec such as ".2f" or ">8".
//
// # Scoping
//
// By default ([ScopeCopy]) a function call runs in a shallow copy of the
// caller's bindings, so assignments inside the callee never reach the caller.
// [ScopeLexical] instead pushes a frame whose lookups fall back to the frame
// the function was defined in.
//
// # Limits
//
// Every while and for loop is bounded by the iteration cap
// ([WithMaxIterations], default [DefaultMaxIterations]). A loop that exceeds
// it stops, a single diagnostic line is appended to the output, and execution
// continues after the loop.
package lang

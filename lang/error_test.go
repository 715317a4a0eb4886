package lang_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		kind    error
		msg     string
		line    int
		partial []string
	}{
		{
			name:    "substring not found",
			src:     lines(`print("a")`, `print("abc".index("z"))`, `print("b")`),
			kind:    lang.ErrValue,
			msg:     "ValueError: substring not found",
			line:    2,
			partial: []string{"a"},
		},
		{
			name: "division by zero",
			src:  lines("x = 0", "y = 1 / x"),
			kind: lang.ErrZeroDivision,
			msg:  "ZeroDivisionError: division by zero",
			line: 2,
		},
		{
			name: "calling a non-callable",
			src:  lines("n = 5", "n()"),
			kind: lang.ErrType,
			msg:  "TypeError: 'int' object is not callable",
			line: 2,
		},
		{
			name: "comprehension over a non-iterable",
			src:  "print([x for x in 5])",
			kind: lang.ErrType,
			msg:  "TypeError: 'int' object is not iterable",
			line: 1,
		},
		{
			name: "mixed ordering",
			src:  `print(1 < "a")`,
			kind: lang.ErrType,
			line: 1,
		},
		{
			name:    "error inside function reports inner line",
			src:     lines("def f(d):", "    return d / 0", `print("start")`, "f(1)"),
			kind:    lang.ErrZeroDivision,
			line:    2,
			partial: []string{"start"},
		},
		{
			name: "set remove missing",
			src:  lines("s = {1}", "s.remove(2)"),
			kind: lang.ErrKey,
			line: 2,
		},
		{
			name: "format code mismatch",
			src:  lines(`s = "x"`, `print(f"{s:d}")`),
			kind: lang.ErrValue,
			msg:  "ValueError: Unknown format code 'd' for object of type 'str'",
			line: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := lang.Run(t.Context(), tt.src)
			if err == nil {
				t.Fatalf("Run() error = nil, want %v", tt.kind)
			}

			if !errors.Is(err, tt.kind) {
				t.Errorf("Run() error = %v, want kind %v", err, tt.kind)
			}

			if tt.msg != "" && err.Error() != tt.msg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.msg)
			}

			var ex *lang.Exception
			if !errors.As(err, &ex) {
				t.Fatalf("Run() error %T is not an *Exception", err)
			}

			if ex.Line != tt.line {
				t.Errorf("Line = %d, want %d", ex.Line, tt.line)
			}

			assertOutput(t, out, tt.partial)
		})
	}
}

func TestRunRecursionLimit(t *testing.T) {
	src := lines(
		"def down(n):",
		"    return down(n + 1)",
		"down(0)",
	)

	_, err := lang.Run(t.Context(), src, lang.WithMaxDepth(50))
	if !errors.Is(err, lang.ErrRecursion) {
		t.Fatalf("Run() error = %v, want RecursionError", err)
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	src := lines("while True:", "    x = 1")

	_, err := lang.Run(ctx, src, lang.WithMaxIterations(1<<30))
	if !errors.Is(err, lang.ErrCanceled) {
		t.Fatalf("Run() error = %v, want ErrCanceled", err)
	}

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want wrapped context.Canceled", err)
	}
}

func TestRunInputError(t *testing.T) {
	failed := errors.New("stdin closed")

	p := lang.PrompterFunc(func(context.Context, string) (string, error) {
		return "", failed
	})

	_, err := lang.Run(t.Context(), "x = input()", lang.WithPrompter(p))
	if !errors.Is(err, lang.ErrRead) {
		t.Errorf("Run() error = %v, want ErrRead", err)
	}

	if !errors.Is(err, failed) {
		t.Errorf("Run() error = %v, want wrapped cause", err)
	}
}

func TestExceptionIs(t *testing.T) {
	ex := &lang.Exception{Kind: "ValueError", Msg: "bad"}

	if !errors.Is(ex, lang.ErrValue) {
		t.Error("ValueError does not match ErrValue")
	}

	if errors.Is(ex, lang.ErrType) {
		t.Error("ValueError matches ErrType")
	}

	if errors.Is(lang.ErrValue, ex) {
		t.Error("sentinel matches an exception with a message")
	}
}

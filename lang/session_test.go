package lang_test

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestInterpreter(t *testing.T) {
	it := lang.NewInterpreter()
	ctx := t.Context()

	out, err := it.Exec(ctx, lines("x = 2", "def double(n, by=2):", "    return n * by"))
	if err != nil || len(out) != 0 {
		t.Fatalf("Exec() = %q, %v", out, err)
	}

	out, err = it.Exec(ctx, "print(double(x))")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	assertOutput(t, out, []string{"4"})

	if v, ok := it.Lookup("x"); !ok || v != int64(2) {
		t.Errorf("Lookup(x) = %v, %v", v, ok)
	}

	fns := it.Functions()
	if len(fns) != 1 || fns[0].Signature() != "double(n, by=2)" {
		t.Errorf("Functions() = %v", fns)
	}

	out, err = it.Exec(ctx, lines(`print("before")`, "y = 1 // 0"))
	if !errors.Is(err, lang.ErrZeroDivision) {
		t.Errorf("Exec() error = %v, want ZeroDivisionError", err)
	}

	assertOutput(t, out, []string{"before"})

	// a failed run keeps what it bound before failing
	if _, err := it.Exec(ctx, lines("z = 1", "z()")); !errors.Is(err, lang.ErrType) {
		t.Errorf("Exec() error = %v, want TypeError", err)
	}

	names := slices.Collect(maps.Keys(maps.Collect(it.Globals())))
	slices.Sort(names)

	if !slices.Equal(names, []string{"x", "z"}) {
		t.Errorf("Globals() = %q, want [x z]", names)
	}

	it.Reset()

	if _, ok := it.Lookup("x"); ok {
		t.Error("Lookup(x) found after Reset")
	}

	if len(it.Functions()) != 0 {
		t.Error("Functions() not empty after Reset")
	}

	out, err = it.Exec(ctx, "print(double)")
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	assertOutput(t, out, []string{"None"})
}

func TestInterpreterEcho(t *testing.T) {
	it := lang.NewInterpreter(lang.WithEcho(true))

	out, err := it.Exec(t.Context(), lines("xs = [1, 2]", "xs", "len(xs)", "xs.append(3)"))
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	assertOutput(t, out, []string{"[1, 2]", "2"})
}

func TestSignature(t *testing.T) {
	it := lang.NewInterpreter()

	src := lines(
		"def a(): pass",
		"def b(x, y='s', *rest, **opts): pass",
		"def c(n=len('ab')): pass",
	)

	if _, err := it.Exec(t.Context(), src); err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	var got []string
	for _, fn := range it.Functions() {
		got = append(got, fn.Signature())
	}

	want := []string{"a()", "b(x, y='s', *rest, **opts)", "c(n=...)"}
	if !slices.Equal(got, want) {
		t.Errorf("signatures = %q, want %q", got, want)
	}
}

func TestOutput(t *testing.T) {
	var o lang.Output

	o.Write("a")
	o.Write("b\nc")
	o.Write("")
	o.Diagnostic("!")
	o.Write("d\n")
	o.Write("\n")

	want := []string{"ab", "c", "!", "d", ""}
	if got := o.Lines(); !slices.Equal(got, want) {
		t.Errorf("Lines() = %q, want %q", got, want)
	}

	if o.Len() != len(want) {
		t.Errorf("Len() = %d", o.Len())
	}
}

func TestRunReader(t *testing.T) {
	out, err := lang.RunReader(t.Context(), strings.NewReader("print('from reader')"))
	if err != nil {
		t.Fatalf("RunReader() error = %v", err)
	}

	assertOutput(t, out, []string{"from reader"})
}

package lang_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestRepr(t *testing.T) {
	nested := lang.NewDict()
	_ = nested.Set("a", lang.NewList(int64(1), int64(2)))
	_ = nested.Set("b", nil)

	self := lang.NewList(int64(1))
	self.Items = append(self.Items, self)

	tests := []struct {
		name string
		v    lang.Value
		str  string
		repr string
	}{
		{"none", nil, "None", "None"},
		{"unset", lang.Unset, "None", "None"},
		{"true", true, "True", "True"},
		{"int", int64(-12), "-12", "-12"},
		{"float whole", 2.0, "2.0", "2.0"},
		{"float small", 1e-5, "1e-05", "1e-05"},
		{"float large", 1e16, "1e+16", "1e+16"},
		{"float inf", math.Inf(-1), "-inf", "-inf"},
		{"string", "it", "it", "'it'"},
		{"string with quote", "it's", "it's", `"it's"`},
		{"string with both quotes", `a'b"c`, `a'b"c`, `'a\'b"c'`},
		{"string escapes", "a\nb\\", "a\nb\\", `'a\nb\\'`},
		{"empty tuple", lang.NewTuple(), "()", "()"},
		{"single tuple", lang.NewTuple("x"), "('x',)", "('x',)"},
		{"nested mapping", nested, "{'a': [1, 2], 'b': None}", "{'a': [1, 2], 'b': None}"},
		{"empty dict", lang.NewDict(), "{}", "{}"},
		{"recursive list", self, "[1, [...]]", "[1, [...]]"},
		{"range", &lang.Range{Start: 0, Stop: 3, Step: 1}, "[0, 1, 2]", "[0, 1, 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lang.Str(tt.v); got != tt.str {
				t.Errorf("Str() = %q, want %q", got, tt.str)
			}

			if got := lang.Repr(tt.v); got != tt.repr {
				t.Errorf("Repr() = %q, want %q", got, tt.repr)
			}
		})
	}
}

// Rendering a value, running the rendering as source and rendering the
// result again yields the same text.
func TestReprRoundTrip(t *testing.T) {
	srcs := []string{
		"{'a': [1, 2], 'b': None}",
		"[1, 'two', 3.5, True, None, (1,), {'k': [{}]}]",
		`['it\'s', "q\"q", 'tab\tnew\nline']`,
		"{1: {2: {3: ()}}}",
	}

	for _, src := range srcs {
		first := run(t, "print(repr("+src+"))")
		if len(first) != 1 {
			t.Fatalf("repr(%s) printed %q", src, first)
		}

		second := run(t, "print(repr("+first[0]+"))")
		if len(second) != 1 || second[0] != first[0] {
			t.Errorf("repr not stable for %s: %q then %q", src, first[0], second)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    lang.Value
		spec string
		want string
	}{
		{3.14159, ".2f", "3.14"},
		{int64(42), "5d", "   42"},
		{int64(42), "<5", "42   "},
		{int64(42), "*^7", "**42***"},
		{int64(-42), "=+6", "-   42"},
		{int64(42), "+", "+42"},
		{int64(42), "06", "000042"},
		{int64(-7), "05d", "-0007"},
		{int64(1234567), ",", "1,234,567"},
		{int64(1234567), "_d", "1_234_567"},
		{1234.5, ",.2f", "1,234.50"},
		{int64(255), "x", "ff"},
		{int64(255), "#X", "0XFF"},
		{int64(5), "08b", "00000101"},
		{int64(65), "c", "A"},
		{0.125, ".1%", "12.5%"},
		{12345.678, ".3e", "1.235e+04"},
		{0.0001234, ".2g", "0.00012"},
		{2.5, "", "2.5"},
		{int64(3), ".2f", "3.00"},
		{"ab", ">4", "  ab"},
		{"ab", "4", "ab  "},
		{"abcdef", ".3", "abc"},
		{"abc", "-^7", "--abc--"},
		{"12", "5d", "   12"},
		{nil, ">6", "  None"},
		{true, "", "True"},
	}

	for _, tt := range tests {
		got, err := lang.FormatValue(tt.v, tt.spec)
		if err != nil {
			t.Errorf("FormatValue(%v, %q) error = %v", tt.v, tt.spec, err)

			continue
		}

		if got != tt.want {
			t.Errorf("FormatValue(%v, %q) = %q, want %q", tt.v, tt.spec, got, tt.want)
		}
	}
}

func TestFormatValueErrors(t *testing.T) {
	tests := []struct {
		v    lang.Value
		spec string
	}{
		{"abc", "d"},
		{1.5, "x"},
		{int64(1), "q"},
	}

	for _, tt := range tests {
		if _, err := lang.FormatValue(tt.v, tt.spec); !errors.Is(err, lang.ErrValue) {
			t.Errorf("FormatValue(%v, %q) error = %v, want ValueError", tt.v, tt.spec, err)
		}
	}
}

func TestStringFormatting(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"percent", `print("%s is %d years, %.1f%%" % ("Al", 30, 99.5))`, "Al is 30 years, 99.5%"},
		{"percent single", `print("[%5s]" % "ab")`, "[   ab]"},
		{"percent repr", `print("%r" % ("x",))`, "'x'"},
		{"percent mapping", `print("%(n)03d" % {"n": 7})`, "007"},
		{"format fields", `print("{} + {} = {total}".format(1, 2, total=3))`, "1 + 2 = 3"},
		{"format index", `print("{0}{1}{0}".format("a", "b"))`, "aba"},
		{"format spec", `print("{:>6.2f}|{name:^5}".format(3.14159, name="x"))`, "  3.14|  x  "},
		{"format item", `print("{0[1]} {d[k]}".format([5, 6], d={"k": "v"}))`, "6 v"},
		{"format braces", `print("{{}}{}".format(1))`, "{}1"},
		{"f-string conversions", lines(`x = "hi"`, `print(f"{x!r} {x} {{literal}}")`), "'hi' hi {literal}"},
		{"f-string nested spec", lines("w = 6", "p = 2", `print(f"{3.14159:{w}.{p}f}")`), "  3.14"},
		{"f-string expressions", lines("xs = [1, 2, 3]", `print(f"{len(xs)} items, sum {sum(xs) * 2}")`), "3 items, sum 12"},
		{"f-string alignment", lines("n = 42", `name = "Bob"`, `print(f"{name:>5}|{name:<5}|{n:5d}|{n:*^7}|{n:,}")`), "  Bob|Bob  |   42|**42***|42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertOutput(t, run(t, tt.src), []string{tt.want})
		})
	}
}

func TestStringFormattingErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind error
	}{
		{"too few arguments", `"%s %s" % ("a",)`, lang.ErrType},
		{"too many arguments", `"%s" % ("a", "b")`, lang.ErrType},
		{"missing positional field", `"{} {}".format(1)`, lang.ErrIndex},
		{"missing named field", `"{x}".format(y=1)`, lang.ErrKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := lang.Run(t.Context(), tt.src); !errors.Is(err, tt.kind) {
				t.Errorf("Run() error = %v, want %v", err, tt.kind)
			}
		})
	}
}

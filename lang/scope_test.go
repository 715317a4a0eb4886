package lang_test

import (
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestScope(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		copy    []string
		lexical []string
	}{
		{
			name: "parameter reassignment is local",
			src: lines(
				"x = 10",
				"def f(x):",
				"    x = 99",
				"    return x",
				"y = f(1)",
				"print(x, y)",
			),
			copy:    []string{"10 99"},
			lexical: []string{"10 99"},
		},
		{
			name: "outer name reassignment is local",
			src: lines(
				"count = 0",
				"def bump():",
				"    count = 5",
				"bump()",
				"print(count)",
			),
			copy:    []string{"0"},
			lexical: []string{"0"},
		},
		{
			name: "mutation through a shared list is visible",
			src: lines(
				"items = []",
				"def add(v):",
				"    items.append(v)",
				"add(1)",
				"add(2)",
				"print(items)",
			),
			copy:    []string{"[1, 2]"},
			lexical: []string{"[1, 2]"},
		},
		{
			name: "caller locals",
			src: lines(
				"def show():",
				"    return z",
				"def caller():",
				"    z = 7",
				"    return show()",
				"print(caller())",
			),
			copy:    []string{"7"},
			lexical: []string{"None"},
		},
		{
			name: "globals assigned after definition",
			src: lines(
				"def get():",
				"    return later",
				"later = 3",
				"print(get())",
			),
			copy:    []string{"3"},
			lexical: []string{"3"},
		},
		{
			name: "default evaluated at call",
			src: lines(
				"base = 1",
				"def f(n=base):",
				"    return n",
				"base = 2",
				"print(f())",
			),
			copy:    []string{"2"},
			lexical: []string{"2"},
		},
		{
			name: "lambda captures defining frame",
			src: lines(
				"def adder(n):",
				"    return lambda x: x + n",
				"add5 = adder(5)",
				"n = 100",
				"print(add5(1))",
			),
			copy:    []string{"6"},
			lexical: []string{"6"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Run("copy", func(t *testing.T) {
				assertOutput(t, run(t, tt.src), tt.copy)
			})

			t.Run("lexical", func(t *testing.T) {
				assertOutput(t, run(t, tt.src, lang.WithScope(lang.ScopeLexical)), tt.lexical)
			})
		})
	}
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		in   string
		want lang.Scope
	}{
		{"lexical", lang.ScopeLexical},
		{" Lexical ", lang.ScopeLexical},
		{"copy", lang.ScopeCopy},
		{"", lang.ScopeCopy},
		{"dynamic", lang.ScopeCopy},
	}

	for _, tt := range tests {
		if got := lang.ParseScope(tt.in); got != tt.want {
			t.Errorf("ParseScope(%q) = %v, want %v", tt.in, got, tt.want)
		}

		if got := lang.ParseScope(tt.want.String()); got != tt.want {
			t.Errorf("ParseScope(%v.String()) = %v", tt.want, got)
		}
	}
}

package lang_test

import (
	"strings"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestIndent(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"", 0},
		{"x = 1", 0},
		{"    x", 4},
		{"\tx", 1},
		{" \t x", 3},
		{"      ", 6},
	}

	for _, tt := range tests {
		if got := lang.Indent(tt.line); got != tt.want {
			t.Errorf("Indent(%q) = %d, want %d", tt.line, got, tt.want)
		}
	}
}

func TestResolveBlock(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		header int
		want   int
	}{
		{
			name: "body then dedent",
			src: "if x:\n" +
				"    a = 1\n" +
				"    b = 2\n" +
				"c = 3",
			header: 0,
			want:   3,
		},
		{
			name: "runs to end of input",
			src: "while x:\n" +
				"    a = 1\n" +
				"    b = 2",
			header: 0,
			want:   3,
		},
		{
			name: "blank and comment lines skipped",
			src: "for i in x:\n" +
				"\n" +
				"# outdented comment\n" +
				"    a = i\n" +
				"   \n" +
				"b = 1",
			header: 0,
			want:   5,
		},
		{
			name: "inconsistent body indentation accepted",
			src: "def f():\n" +
				"      a = 1\n" +
				"  b = 2\n" +
				"        c = 3\n" +
				"d = 4",
			header: 0,
			want:   4,
		},
		{
			name: "nested header",
			src: "if a:\n" +
				"    if b:\n" +
				"        x = 1\n" +
				"    y = 2\n" +
				"z = 3",
			header: 1,
			want:   3,
		},
		{
			name:   "empty body",
			src:    "if a:\nb = 1",
			header: 0,
			want:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := lang.SplitLines(tt.src)
			indent := lang.Indent(lines[tt.header])

			if got := lang.ResolveBlock(lines, tt.header, indent); got != tt.want {
				t.Errorf("ResolveBlock() = %d, want %d", got, tt.want)
			}
		})
	}
}

// The end of a block is always the first significant line at or left of the
// header, or the end of input.
func FuzzResolveBlock(f *testing.F) {
	f.Add("if x:\n  a\n\n# c\nb", 0)
	f.Add("  while y:\n    z\n  w", 0)
	f.Add("a\n b\n  c\n d\ne", 1)

	f.Fuzz(func(t *testing.T, src string, header int) {
		lines := strings.Split(src, "\n")
		if header < 0 || header >= len(lines) {
			return
		}

		indent := lang.Indent(lines[header])
		end := lang.ResolveBlock(lines, header, indent)

		if end <= header || end > len(lines) {
			t.Fatalf("end %d out of range (header %d, lines %d)", end, header, len(lines))
		}

		for i := header + 1; i < end; i++ {
			s := strings.TrimSpace(lines[i])
			if s == "" || s[0] == '#' {
				continue
			}

			if lang.Indent(lines[i]) <= indent {
				t.Fatalf("line %d (%q) inside block but not indented past %d", i, lines[i], indent)
			}
		}

		if end < len(lines) && lang.Indent(lines[end]) > indent {
			t.Fatalf("block ended at indented line %d (%q)", end, lines[end])
		}
	})
}

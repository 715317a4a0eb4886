package lang_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/pyplay/lang"
)

func TestParseStringCache(t *testing.T) {
	lang.ClearCache()
	t.Cleanup(lang.ClearCache)

	ctx := t.Context()

	a := lang.ParseString(ctx, "print(1)")
	b := lang.ParseString(ctx, "print(1)")
	c := lang.ParseString(ctx, "print(2)")

	if a != b {
		t.Error("identical source parsed twice")
	}

	if a == c {
		t.Error("different source shared a program")
	}

	lang.ClearCache()

	if d := lang.ParseString(ctx, "print(1)"); d == a {
		t.Error("program survived ClearCache")
	}
}

func TestParseReader(t *testing.T) {
	lang.ClearCache()
	t.Cleanup(lang.ClearCache)

	ctx := t.Context()

	a, err := lang.ParseReader(ctx, strings.NewReader("x = 1"))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if b := lang.ParseString(ctx, "x = 1"); a != b {
		t.Error("ParseReader did not share the cached program")
	}

	c, err := lang.ParseReader(ctx, strings.NewReader("x = 1"), lang.WithCache(false))
	if err != nil {
		t.Fatalf("ParseReader() error = %v", err)
	}

	if c == a {
		t.Error("uncached parse returned the cached program")
	}

	failed := errors.New("boom")

	if _, err := lang.ParseReader(ctx, iotest.ErrReader(failed)); !errors.Is(err, lang.ErrRead) || !errors.Is(err, failed) {
		t.Errorf("ParseReader() error = %v, want ErrRead wrapping cause", err)
	}
}

func TestFormatJSON(t *testing.T) {
	prog := lang.Parse(sample)

	var buf bytes.Buffer
	if err := prog.FormatJSON(t.Context(), &buf, 2); err != nil {
		t.Fatalf("FormatJSON() error = %v", err)
	}

	var doc struct {
		Lines      int `json:"lines"`
		Statements []struct {
			Kind   string `json:"kind"`
			Line   int    `json:"line"`
			Name   string `json:"name"`
			Params []string
			Body   []map[string]any `json:"body"`
		} `json:"statements"`
	}

	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}

	if doc.Lines != 9 || len(doc.Statements) != 3 {
		t.Fatalf("lines %d statements %d", doc.Lines, len(doc.Statements))
	}

	def := doc.Statements[0]
	if def.Kind != "def" || def.Name != "f" || strings.Join(def.Params, ",") != "a,b=1" {
		t.Errorf("def = %+v", def)
	}

	if len(def.Body) != 1 || def.Body[0]["value"] != "(a + (b * 2))" {
		t.Errorf("def body = %v", def.Body)
	}
}

func TestFormatYAML(t *testing.T) {
	prog := lang.Parse(sample)

	for _, indent := range []int{0, 2} {
		var buf bytes.Buffer
		if err := prog.FormatYAML(t.Context(), &buf, indent); err != nil {
			t.Fatalf("FormatYAML(%d) error = %v", indent, err)
		}

		var doc map[string]any
		if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("FormatYAML(%d) output is not YAML: %v\n%s", indent, err, buf.String())
		}

		stmts, ok := doc["statements"].([]any)
		if !ok || len(stmts) != 3 {
			t.Errorf("FormatYAML(%d) statements = %v", indent, doc["statements"])
		}
	}
}

func TestFormatTree(t *testing.T) {
	prog := lang.Parse(sample)

	var buf bytes.Buffer
	if err := prog.FormatTree(&buf); err != nil {
		t.Fatalf("FormatTree() error = %v", err)
	}

	want := lines(
		"def [1] f(a, b=1)",
		"  return [2] (a + (b * 2))",
		"for [4] i in range(3)",
		"  if [5]",
		"    if i:",
		"      expr [6] print(f(i))",
		"    else:",
		"      pass [8]",
		"augassign [9] x += 2",
	) + "\n"

	if got := buf.String(); got != want {
		t.Errorf("FormatTree() =\n%s\nwant\n%s", got, want)
	}
}

package cmd

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"
)

const fmtSample = "def f(a, b=1):\n    return a + b\nprint(f(2))\n"

func TestTree(t *testing.T) {
	ctx, out := testContext(t, nil)

	if err := (&Tree{Source: writeFile(t, "p.py", fmtSample)}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, want := range []string{"def [1] f(a, b=1)", "  return [2]", "expr [3] print(f(2))"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("tree output missing %q:\n%s", want, out.String())
		}
	}
}

func TestJSON(t *testing.T) {
	for _, indent := range []int{0, 4} {
		ctx, out := testContext(t, nil)

		if err := (&JSON{Indent: indent, Source: writeFile(t, "p.py", fmtSample)}).Run(ctx); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		var doc struct {
			Statements []map[string]any `json:"statements"`
		}

		if err := json.Unmarshal(out.Bytes(), &doc); err != nil {
			t.Fatalf("indent %d: output is not JSON: %v", indent, err)
		}

		if len(doc.Statements) != 2 {
			t.Errorf("indent %d: statements = %d, want 2", indent, len(doc.Statements))
		}

		if lines := strings.Count(strings.TrimSpace(out.String()), "\n"); (indent == 0) != (lines == 0) {
			t.Errorf("indent %d: output spans %d lines", indent, lines+1)
		}
	}
}

func TestYAML(t *testing.T) {
	ctx, out := testContext(t, nil)

	if err := (&YAML{Indent: 2, Source: writeFile(t, "p.py", fmtSample)}).Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(out.Bytes(), &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}

	if stmts, ok := doc["statements"].([]any); !ok || len(stmts) != 2 {
		t.Errorf("statements = %v", doc["statements"])
	}
}

func TestFmtMissingSource(t *testing.T) {
	ctx, _ := testContext(t, nil)

	if err := (&Tree{Source: "/nonexistent/prog.py"}).Run(ctx); !errors.Is(err, ErrReadSource) {
		t.Errorf("Run() error = %v, want ErrReadSource", err)
	}
}

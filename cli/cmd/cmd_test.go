package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
)

// testContext returns a context carrying a kong context whose output is
// captured in the returned buffer.
func testContext(t *testing.T, vars kong.Vars) (context.Context, *bytes.Buffer) {
	t.Helper()

	var (
		cli struct{}
		out bytes.Buffer
	)

	parser, err := kong.New(&cli, vars, kong.Writers(&out, &out))
	if err != nil {
		t.Fatal(err)
	}

	ktx, err := parser.Parse(nil)
	if err != nil {
		t.Fatal(err)
	}

	return WithContext(t.Context(), ktx), &out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestOpenSource(t *testing.T) {
	ctx := WithStdin(t.Context(), strings.NewReader("print(1)\n"))

	for _, path := range []string{"", stdinSource} {
		r, err := openSource(ctx, path)
		if err != nil {
			t.Fatalf("openSource(%q) error = %v", path, err)
		}

		data, _ := io.ReadAll(r)
		r.Close()

		if path == "" && string(data) != "print(1)\n" {
			t.Errorf("openSource(%q) read %q", path, data)
		}
	}

	file := writeFile(t, "prog.py", "x = 1\n")

	r, err := openSource(ctx, file)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if data, _ := io.ReadAll(r); string(data) != "x = 1\n" {
		t.Errorf("openSource(file) read %q", data)
	}

	_, err = openSource(ctx, filepath.Join(t.TempDir(), "missing.py"))
	if !errors.Is(err, ErrReadSource) {
		t.Errorf("openSource(missing) error = %v", err)
	}
}

func TestParseSource(t *testing.T) {
	file := writeFile(t, "prog.py", "for i in range(2):\n    print(i)\n")

	prog, err := parseSource(t.Context(), file)
	if err != nil {
		t.Fatalf("parseSource() error = %v", err)
	}

	if len(prog.Stmts) != 2 {
		t.Errorf("statements = %d, want 2", len(prog.Stmts))
	}
}

func TestUniquePaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	link := filepath.Join(dir, "link.yaml")

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	got, err := uniquePaths([]string{a, b, link, filepath.Join(dir, ".", "b.yaml")})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{a, b}; !slices.Equal(got, want) {
		t.Errorf("uniquePaths() = %q, want %q", got, want)
	}

	if _, err := uniquePaths([]string{filepath.Join(dir, "none")}); !errors.Is(err, ErrReadSource) {
		t.Errorf("uniquePaths(missing) error = %v", err)
	}
}

func TestLinePrompter(t *testing.T) {
	var echo bytes.Buffer

	p := newLinePrompter(strings.NewReader("ada\r\nlast"), &echo)

	for _, want := range []string{"ada", "last"} {
		got, err := p.Prompt(t.Context(), "> ")
		if err != nil || got != want {
			t.Errorf("Prompt() = %q, %v, want %q", got, err, want)
		}
	}

	if _, err := p.Prompt(t.Context(), ""); !errors.Is(err, io.EOF) {
		t.Errorf("Prompt() at end error = %v", err)
	}

	if echo.String() != "> > " {
		t.Errorf("echoed prompts = %q", echo.String())
	}
}

func TestErrorIs(t *testing.T) {
	err := ErrWriteConfig.With().Wrap(ErrFileExists)

	if !errors.Is(err, ErrWriteConfig) || !errors.Is(err, ErrFileExists) {
		t.Errorf("errors.Is failed for %v", err)
	}

	if errors.Is(err, ErrMarshal) {
		t.Error("matched an unrelated sentinel")
	}

	if got := err.Error(); got != "write configuration file: file exists (use --force to overwrite)" {
		t.Errorf("Error() = %q", got)
	}

	if !Reported(ErrProgram.Wrap(io.EOF)) || !Reported(ErrExercise) || Reported(ErrMarshal) {
		t.Error("Reported() mismatch")
	}
}

package exercise_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardnew/pyplay/exercise"
	"github.com/ardnew/pyplay/lang"
)

const file = `exercises:
  - name: even squares
    source: |
      print([x*x for x in range(5) if x%2==0])
    expect: ["[0, 4, 16]"]
    assert:
      - len(output) == 1
      - error == ""
      - name == "even squares"
  - name: greeting
    source: |
      who = input("name? ")
      print("hi " + who)
    input: [ada]
    expect: [hi ada]
  - name: raises
    source: |
      print("start")
      "abc".index("z")
    raises: substring not found
    assert:
      - lines == 1
      - output[0] == "start"
  - name: wrong
    source: print(2)
    expect: ["3"]
  - source: |
      while True:
          pass
    max_iterations: 10
    assert:
      - output[0] startsWith "⚠️"
`

func TestLoadAndGrade(t *testing.T) {
	f, err := exercise.Load(strings.NewReader(file))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(f.Exercises) != 5 {
		t.Fatalf("len(Exercises) = %d, want 5", len(f.Exercises))
	}

	if name := f.Exercises[4].Name; name != "exercise 5" {
		t.Errorf("default name = %q", name)
	}

	results := exercise.GradeAll(t.Context(), f.Exercises)

	want := map[string]bool{
		"even squares": true,
		"greeting":     true,
		"raises":       true,
		"wrong":        false,
		"exercise 5":   true,
	}

	for _, r := range results {
		if r.Passed() != want[r.Name] {
			t.Errorf("%s: Passed() = %v, failures %q, output %q", r.Name, r.Passed(), r.Failures, r.Output)
		}
	}

	if r := results[3]; len(r.Failures) != 1 || !strings.Contains(r.Failures[0], "want") {
		t.Errorf("wrong: failures = %q", r.Failures)
	}
}

func TestGradeFailures(t *testing.T) {
	tests := []struct {
		name string
		ex   exercise.Exercise
		want string
	}{
		{
			name: "unexpected error",
			ex:   exercise.Exercise{Name: "e", Source: "1 / 0"},
			want: "unexpected error: ZeroDivisionError",
		},
		{
			name: "missing error",
			ex:   exercise.Exercise{Name: "e", Source: "x = 1", Raises: "ValueError"},
			want: "expected error",
		},
		{
			name: "false assertion",
			ex:   exercise.Exercise{Name: "e", Source: "print(1)", Assert: []string{"lines == 2"}},
			want: "assert failed: lines == 2",
		},
		{
			name: "input exhausted",
			ex:   exercise.Exercise{Name: "e", Source: "input()"},
			want: "unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.ex.Grade(t.Context())
			if r.Passed() {
				t.Fatal("Passed() = true")
			}

			if !strings.Contains(strings.Join(r.Failures, "\n"), tt.want) {
				t.Errorf("failures = %q, want %q", r.Failures, tt.want)
			}
		})
	}
}

func TestGradeOptions(t *testing.T) {
	ex := exercise.Exercise{
		Name:   "scope",
		Source: "def f():\n    return z\ndef g():\n    z = 1\n    return f()\nprint(g())",
		Scope:  "lexical",
		Expect: []string{"None"},
	}

	if r := ex.Grade(t.Context(), lang.WithScope(lang.ScopeCopy)); !r.Passed() {
		t.Errorf("failures = %q", r.Failures)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"malformed", "exercises: [", exercise.ErrLoad},
		{"unknown field", "exercises:\n  - source: x\n    bogus: 1\n", exercise.ErrLoad},
		{"missing source", "exercises:\n  - name: empty\n", exercise.ErrLoad},
		{"bad assertion", "exercises:\n  - source: x\n    assert: [\"output +\"]\n", exercise.ErrAssert},
		{"non-bool assertion", "exercises:\n  - source: x\n    assert: [\"lines\"]\n", exercise.ErrAssert},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := exercise.Load(strings.NewReader(tt.src)); !errors.Is(err, tt.want) {
				t.Errorf("Load() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ex.yaml")
	if err := os.WriteFile(path, []byte(file), 0o600); err != nil {
		t.Fatal(err)
	}

	f, err := exercise.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if f.Path != path {
		t.Errorf("Path = %q", f.Path)
	}

	if _, err := exercise.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, exercise.ErrLoad) {
		t.Errorf("LoadFile(missing) error = %v", err)
	}
}

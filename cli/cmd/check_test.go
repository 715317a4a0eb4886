package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/pyplay/exercise"
)

const passing = `exercises:
  - name: squares
    source: |
      print([x*x for x in range(4)])
    expect: ["[0, 1, 4, 9]"]
  - name: greet
    source: print("hi " + input())
    input: [ada]
    expect: [hi ada]
`

const failing = `exercises:
  - name: off by one
    source: print(len("abc"))
    expect: ["4"]
`

func TestCheck(t *testing.T) {
	limits := Limits{MaxIterations: 1000, MaxDepth: 100, Scope: "copy"}

	t.Run("pass", func(t *testing.T) {
		ctx, out := testContext(t, nil)
		path := writeFile(t, "ok.yaml", passing)

		// the same file twice is graded once
		c := &Check{Limits: limits, Files: []string{path, path}}
		if err := c.Run(ctx); err != nil {
			t.Fatalf("Run() error = %v\n%s", err, out.String())
		}

		for _, want := range []string{"squares", "greet", "pass", "2/2 passed"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("fail", func(t *testing.T) {
		ctx, out := testContext(t, nil)

		c := &Check{Limits: limits, Files: []string{
			writeFile(t, "ok.yaml", passing),
			writeFile(t, "bad.yaml", failing),
		}}

		err := c.Run(ctx)
		if !errors.Is(err, ErrExercise) || !Reported(err) {
			t.Fatalf("Run() error = %v, want ErrExercise", err)
		}

		for _, want := range []string{"off by one", "FAIL", "2/3 passed"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		ctx, _ := testContext(t, nil)

		c := &Check{Limits: limits, Files: []string{writeFile(t, "bad.yaml", "exercises: [")}}
		if err := c.Run(ctx); !errors.Is(err, exercise.ErrLoad) {
			t.Errorf("Run() error = %v, want ErrLoad", err)
		}
	})
}

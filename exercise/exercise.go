package exercise

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/pyplay/lang"
)

// Errors returned while loading exercises.
var (
	ErrLoad   = lang.NewError("failed to load exercises")
	ErrAssert = lang.NewError("invalid assertion")
)

// Exercise is one graded program.
type Exercise struct {
	Name          string   `yaml:"name"`
	Source        string   `yaml:"source"`
	Input         []string `yaml:"input,omitempty"`
	Expect        []string `yaml:"expect,omitempty"`
	Raises        string   `yaml:"raises,omitempty"`
	Assert        []string `yaml:"assert,omitempty"`
	Scope         string   `yaml:"scope,omitempty"`
	MaxIterations int      `yaml:"max_iterations,omitempty"`

	checks []*vm.Program
}

// File is a parsed exercise file.
type File struct {
	Path      string      `yaml:"-"`
	Exercises []*Exercise `yaml:"exercises"`
}

// Env is the environment assertions are evaluated in.
type Env struct {
	Output []string `expr:"output"`
	Error  string   `expr:"error"`
	Lines  int      `expr:"lines"`
	Name   string   `expr:"name"`
}

// Load decodes an exercise file from r and compiles its assertions.
func Load(r io.Reader) (*File, error) {
	var f File

	dec := yaml.NewDecoder(r, yaml.DisallowUnknownField())
	if err := dec.Decode(&f); err != nil {
		return nil, ErrLoad.Wrap(err)
	}

	for i, ex := range f.Exercises {
		if ex == nil || strings.TrimSpace(ex.Source) == "" {
			return nil, ErrLoad.With(
				slog.Int("index", i),
				slog.String("issue", "missing source"),
			)
		}

		if ex.Name == "" {
			ex.Name = fmt.Sprintf("exercise %d", i+1)
		}

		if err := ex.compile(); err != nil {
			return nil, err
		}
	}

	return &f, nil
}

// LoadFile reads and decodes the exercise file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrLoad.Wrap(err).With(slog.String("path", path))
	}

	f, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, lang.WrapError(err).With(slog.String("path", path))
	}

	f.Path = path

	return f, nil
}

func (e *Exercise) compile() error {
	e.checks = make([]*vm.Program, 0, len(e.Assert))

	for _, src := range e.Assert {
		prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return ErrAssert.Wrap(err).With(
				slog.String("exercise", e.Name),
				slog.String("source", src),
			)
		}

		e.checks = append(e.checks, prog)
	}

	return nil
}

// Result is the outcome of grading one exercise.
type Result struct {
	Name     string
	Output   []string
	Err      error
	Failures []string
	Elapsed  time.Duration
}

// Passed reports whether every check held.
func (r Result) Passed() bool { return len(r.Failures) == 0 }

// answers replays a fixed list of input() answers.
type answers struct {
	mu    sync.Mutex
	lines []string
}

func (a *answers) Prompt(context.Context, string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.lines) == 0 {
		return "", io.EOF
	}

	line := a.lines[0]
	a.lines = a.lines[1:]

	return line, nil
}

// Grade runs the exercise and checks its result. Options are applied before
// the exercise's own scope and iteration cap.
func (e *Exercise) Grade(ctx context.Context, opts ...lang.Option) Result {
	if e.checks == nil && len(e.Assert) > 0 {
		if err := e.compile(); err != nil {
			return Result{Name: e.Name, Err: err, Failures: []string{err.Error()}}
		}
	}

	opts = append(slices.Clone(opts),
		lang.WithPrompter(&answers{lines: slices.Clone(e.Input)}),
	)

	if e.Scope != "" {
		opts = append(opts, lang.WithScope(lang.ParseScope(e.Scope)))
	}

	if e.MaxIterations > 0 {
		opts = append(opts, lang.WithMaxIterations(e.MaxIterations))
	}

	start := time.Now()
	out, err := lang.Run(ctx, e.Source, opts...)

	res := Result{
		Name:    e.Name,
		Output:  out,
		Err:     err,
		Elapsed: time.Since(start),
	}

	env := Env{Output: out, Lines: len(out), Name: e.Name}
	if err != nil {
		env.Error = err.Error()
	}

	switch {
	case e.Raises != "" && err == nil:
		res.Failures = append(res.Failures, fmt.Sprintf("expected error containing %q", e.Raises))
	case e.Raises != "" && !strings.Contains(env.Error, e.Raises):
		res.Failures = append(res.Failures, fmt.Sprintf("error %q does not contain %q", env.Error, e.Raises))
	case e.Raises == "" && err != nil:
		res.Failures = append(res.Failures, "unexpected error: "+env.Error)
	}

	if e.Expect != nil && !slices.Equal(out, e.Expect) {
		res.Failures = append(res.Failures, fmt.Sprintf("output %q, want %q", out, e.Expect))
	}

	for i, prog := range e.checks {
		v, err := vm.Run(prog, env)
		if err != nil {
			res.Failures = append(res.Failures, fmt.Sprintf("assert %q: %v", e.Assert[i], err))

			continue
		}

		if ok, _ := v.(bool); !ok {
			res.Failures = append(res.Failures, "assert failed: "+e.Assert[i])
		}
	}

	return res
}

// GradeAll grades the exercises concurrently and returns their results in
// input order.
func GradeAll(ctx context.Context, exercises []*Exercise, opts ...lang.Option) []Result {
	results := make([]Result, len(exercises))

	var wg sync.WaitGroup

	for i, ex := range exercises {
		wg.Go(func() {
			results[i] = ex.Grade(ctx, opts...)
		})
	}

	wg.Wait()

	return results
}

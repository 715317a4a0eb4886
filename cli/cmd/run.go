package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/pyplay/lang"
	"github.com/ardnew/pyplay/log"
)

const (
	noOutputMessage = "✅ Code executed (no output)"
	errorPrefix     = "❌ Error: "
)

// Run executes a program and prints its output.
type Run struct {
	Limits `embed:""`

	Input  string `help:"File whose lines answer input() calls (default: stdin)" short:"i" type:"existingfile"`
	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the run command.
func (r *Run) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	prog, err := parseSource(ctx, r.Source)
	if err != nil {
		return err
	}

	prompter, closeInput, err := r.prompter(ctx)
	if err != nil {
		return err
	}
	defer closeInput()

	start := time.Now()

	out, runErr := lang.NewInterpreter(
		append(r.options(), lang.WithPrompter(prompter))...,
	).ExecProgram(ctx, prog)

	log.DebugContext(ctx, "run finished",
		slog.String("source", r.Source),
		slog.Int("lines", len(out)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", runErr == nil),
	)

	if errors.Is(runErr, lang.ErrCanceled) {
		return runErr
	}

	render(stdout(ctx), out, runErr)

	if runErr != nil {
		return ErrProgram.Wrap(runErr).With(slog.String("source", r.Source))
	}

	return nil
}

// prompter selects where input() answers come from: the --input file, or
// standard input when the program itself was not read from it.
func (r *Run) prompter(ctx context.Context) (lang.Prompter, func(), error) {
	if r.Input != "" {
		f, err := os.Open(r.Input)
		if err != nil {
			return nil, nil, ErrReadSource.Wrap(err).With(slog.String("input", r.Input))
		}

		return newLinePrompter(f, nil), func() { f.Close() }, nil
	}

	if r.Source == stdinSource || r.Source == "" {
		return newLinePrompter(eofReader{}, nil), func() {}, nil
	}

	return newLinePrompter(stdin(ctx), stderr(ctx)), func() {}, nil
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }

// render prints the output lines of a run followed by its outcome.
func render(w io.Writer, lines []string, err error) {
	re := lipgloss.NewRenderer(w)

	for _, line := range lines {
		fmt.Fprintln(w, line)
	}

	switch {
	case err != nil:
		style := re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
		fmt.Fprintln(w, style.Render(errorPrefix+message(err)))

	case len(lines) == 0:
		style := re.NewStyle().Foreground(lipgloss.Color("2"))
		fmt.Fprintln(w, style.Render(noOutputMessage))
	}
}

// message is the user-facing text of a run failure.
func message(err error) string {
	var ex *lang.Exception
	if errors.As(err, &ex) {
		return ex.Error()
	}

	return err.Error()
}

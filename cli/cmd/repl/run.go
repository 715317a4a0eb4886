package repl

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/pyplay/lang"
)

// runCommand executes one block. It implements [tea.ExecCommand] so that a
// block calling input() can own the terminal while it runs.
type runCommand struct {
	ctx      context.Context
	it       *lang.Interpreter
	prompter *terminalPrompter
	src      string

	lines []string
	err   error

	stdin  io.Reader
	stdout io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *runCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *runCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr is a no-op; failures are reported after the run.
func (c *runCommand) SetStderr(io.Writer) {}

// Run executes the block. Its error is always nil; the outcome of the block
// is reported through [runCommand.done].
func (c *runCommand) Run() error {
	if c.stdin != nil {
		c.prompter.attach(c.stdin, c.stdout)
		defer c.prompter.detach()
	}

	c.lines, c.err = c.it.Exec(c.ctx, c.src)

	return nil
}

func (c *runCommand) done() tea.Msg {
	return runDoneMsg{src: c.src, lines: c.lines, err: c.err}
}

// startRun executes src off the update loop so that Ctrl+C can interrupt it.
func (m model) startRun(src string) (model, tea.Cmd) {
	ctx, cancel := context.WithCancelCause(m.ctxFunc())

	m.running, m.cancel = true, cancel

	if strings.Contains(src, "input(") {
		m.usesInput = true
	}

	run := &runCommand{ctx: ctx, it: m.it, prompter: m.prompter, src: src}

	if m.usesInput {
		return m, tea.Exec(run, func(error) tea.Msg {
			cancel(nil)

			return run.done()
		})
	}

	return m, func() tea.Msg {
		defer cancel(nil)

		_ = run.Run()

		return run.done()
	}
}

// finishRun prints the output of a completed block and records it in the
// transcript when it succeeded.
func (m model) finishRun(msg runDoneMsg) (model, tea.Cmd) {
	m.running, m.cancel = false, nil

	attrs := []slog.Attr{slog.Int("lines", len(msg.lines))}
	if msg.err != nil {
		attrs = append(attrs, slog.Any("error", msg.err))
	}

	m.logger.TraceContext(m.ctxFunc(), "repl eval result", attrs...)

	out := printLines(msg.lines)

	switch {
	case msg.err == nil:
		m.session.record(msg.src)

		return m, out

	case errors.Is(msg.err, lang.ErrCanceled):
		return m, tea.Sequence(out, tea.Println(hintStyle.Render("interrupted")))

	case errors.Is(msg.err, ErrNoTerminal):
		// the next block that runs will own the terminal
		m.usesInput = true

		return m, tea.Sequence(out, tea.Println(hintStyle.Render(ErrNoTerminal.Error())))
	}

	return m, tea.Sequence(out, tea.Println(errorStyle.Render("❌ Error: "+errorMessage(msg.err))))
}

// errorMessage returns the message of err without the wrapping added by the
// interpreter.
func errorMessage(err error) string {
	var exc *lang.Exception
	if errors.As(err, &exc) {
		return exc.Error()
	}

	return err.Error()
}

// printLines prints output lines above the input in one batch.
func printLines(lines []string) tea.Cmd {
	if len(lines) == 0 {
		return nil
	}

	return tea.Println(resultStyle.Render(strings.Join(lines, "\n")))
}

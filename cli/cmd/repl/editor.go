package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/ardnew/pyplay/lang"
	"github.com/ardnew/pyplay/log"
)

const defaultEditor = "vi"

// editCommand implements [tea.ExecCommand] for the edit-run-retry loop. It
// writes the session transcript to a temp file, opens the user's editor and
// runs the result in a fresh interpreter. When the run fails the user is
// asked to re-edit; declining returns [ErrEditDeclined] and leaves the
// session untouched.
type editCommand struct {
	ctxFunc   func() context.Context
	logger    log.Logger
	content   string
	newInterp func() *lang.Interpreter
	prompter  *terminalPrompter

	// set when the edited program ran
	it     *lang.Interpreter
	source string
	lines  []string

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit loop.
func (c *editCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp(os.TempDir(), "pyplay-repl-*.py")
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Close(); err != nil {
		return err
	}

	c.prompter.attach(c.stdin, c.stdout)
	defer c.prompter.detach()

	content := c.content

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		if err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath); err != nil {
			return err
		}

		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return err
		}

		// a cleared buffer cancels the edit
		if strings.TrimSpace(string(data)) == "" {
			return nil
		}

		it := c.newInterp()
		lines, runErr := it.Exec(ctx, string(data))

		c.logger.TraceContext(
			ctx,
			"editor run attempt",
			slog.Int("bytes", len(data)),
			slog.Bool("success", runErr == nil),
		)

		if runErr == nil {
			c.it, c.source, c.lines = it, string(data), lines

			return nil
		}

		for _, line := range lines {
			fmt.Fprintln(c.stdout, line)
		}

		fmt.Fprintf(c.stderr, "\n❌ Error: %s\n", runErr)
		fmt.Fprint(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "n", "no":
			return ErrEditDeclined
		}

		content = string(data)
	}
}

// runEditor opens the user's editor on path and waits for it to exit.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) error {
	editor := os.Getenv("VISUAL")
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}

	if editor == "" {
		editor = defaultEditor
	}

	// EDITOR may carry arguments, as in "code --wait"
	args := strings.Fields(editor)

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	return cmd.Run()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ardnew/pyplay/exercise"
	"github.com/ardnew/pyplay/log"
)

// Check grades the exercises in one or more exercise files.
type Check struct {
	Limits `embed:""`

	Files []string `arg:"" help:"Exercise YAML file(s)." name:"file" type:"existingfile"`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	paths, err := uniquePaths(c.Files)
	if err != nil {
		return err
	}

	var failed, total int

	w := stdout(ctx)

	for _, path := range paths {
		f, err := exercise.LoadFile(path)
		if err != nil {
			return err
		}

		results := exercise.GradeAll(ctx, f.Exercises, c.options()...)

		for _, r := range results {
			total++

			if !r.Passed() {
				failed++
			}

			log.DebugContext(ctx, "graded",
				slog.String("file", path),
				slog.String("exercise", r.Name),
				slog.Bool("passed", r.Passed()),
				slog.Duration("elapsed", r.Elapsed),
			)
		}

		renderResults(w, path, results)
	}

	fmt.Fprintf(w, "%d/%d passed\n", total-failed, total)

	if failed > 0 {
		return ErrExercise.With(slog.Int("failed", failed), slog.Int("total", total))
	}

	return nil
}

// renderResults prints one table per exercise file.
func renderResults(w io.Writer, path string, results []exercise.Result) {
	re := lipgloss.NewRenderer(w)

	var (
		header = re.NewStyle().Bold(true).Padding(0, 1)
		cell   = re.NewStyle().Padding(0, 1)
		pass   = cell.Foreground(lipgloss.Color("2"))
		fail   = cell.Foreground(lipgloss.Color("1"))
		dim    = cell.Foreground(lipgloss.Color("8"))
		border = re.NewStyle().Foreground(lipgloss.Color("8"))
	)

	rows := make([][]string, 0, len(results))

	for _, r := range results {
		status, detail := "pass", ""
		if !r.Passed() {
			status, detail = "FAIL", strings.Join(r.Failures, "; ")
		}

		rows = append(rows, []string{
			r.Name,
			status,
			r.Elapsed.Round(time.Microsecond).String(),
			detail,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(border).
		Headers("EXERCISE", "RESULT", "TIME", "DETAIL").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 1 && rows[row][1] == "pass":
				return pass
			case col == 1:
				return fail
			case col == 2:
				return dim
			default:
				return cell
			}
		})

	fmt.Fprintln(w, re.NewStyle().Bold(true).Render(path))
	fmt.Fprintln(w, t.Render())
}

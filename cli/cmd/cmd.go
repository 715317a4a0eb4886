package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/alecthomas/kong"

	"github.com/ardnew/pyplay/lang"
	"github.com/ardnew/pyplay/log"
)

type (
	contextKey struct{}
	stdinKey   struct{}
)

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

// WithStdin returns a new context.Context whose commands read "-" sources
// and input() answers from r instead of [os.Stdin].
func WithStdin(ctx context.Context, r io.Reader) context.Context {
	return context.WithValue(ctx, stdinKey{}, r)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// stdout returns the writer commands print results to.
func stdout(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stdout != nil {
		return ktx.Stdout
	}

	return os.Stdout
}

func stderr(ctx context.Context) io.Writer {
	if ktx := kongContextFrom(ctx); ktx != nil && ktx.Stderr != nil {
		return ktx.Stderr
	}

	return os.Stderr
}

func stdin(ctx context.Context) io.Reader {
	if r, ok := ctx.Value(stdinKey{}).(io.Reader); ok && r != nil {
		return r
	}

	return os.Stdin
}

// stdinSource is the source path that reads standard input.
const stdinSource = "-"

// Limits are the interpreter settings shared by the commands that run
// programs.
type Limits struct {
	MaxIterations int    `default:"50000" help:"Iterations a single loop may run before it is stopped."`
	MaxDepth      int    `default:"1000"  help:"Maximum function call depth."`
	Scope         string `default:"copy"  enum:"copy,lexical"                                            help:"Function scoping model (${enum})."`
}

func (l Limits) options() []lang.Option {
	return []lang.Option{
		lang.WithLogger(log.Default()),
		lang.WithMaxIterations(l.MaxIterations),
		lang.WithMaxDepth(l.MaxDepth),
		lang.WithScope(lang.ParseScope(l.Scope)),
	}
}

// openSource opens the program at path, or standard input for "-".
// Closing the result never closes standard input.
func openSource(ctx context.Context, path string) (io.ReadCloser, error) {
	if path == "" || path == stdinSource {
		return io.NopCloser(stdin(ctx)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadSource.Wrap(err).With(slog.String("path", path))
	}

	return f, nil
}

// parseSource reads and parses the program at path.
func parseSource(ctx context.Context, path string) (*lang.Program, error) {
	r, err := openSource(ctx, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	prog, err := lang.ParseReader(ctx, r, lang.WithLogger(log.Default()))
	if err != nil {
		return nil, ErrReadSource.Wrap(err).With(slog.String("path", path))
	}

	return prog, nil
}

// uniquePaths drops paths that name a file already listed, whether through
// a symlink or a different relative path. Paths that cannot be resolved are
// reported as errors.
func uniquePaths(paths []string) ([]string, error) {
	var (
		out  = make([]string, 0, len(paths))
		seen = make([]os.FileInfo, 0, len(paths))
	)

next:
	for _, path := range paths {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil, ErrReadSource.Wrap(err).With(slog.String("path", path))
		}

		info, err := os.Stat(resolved)
		if err != nil {
			return nil, ErrReadSource.Wrap(err).With(slog.String("path", path))
		}

		for _, prev := range seen {
			if os.SameFile(prev, info) {
				continue next
			}
		}

		seen = append(seen, info)
		out = append(out, path)
	}

	return out, nil
}

// linePrompter answers input() with successive lines of r. The prompt is
// echoed to w, which may be nil.
type linePrompter struct {
	mu sync.Mutex
	r  *bufio.Reader
	w  io.Writer
}

func newLinePrompter(r io.Reader, w io.Writer) *linePrompter {
	return &linePrompter{r: bufio.NewReader(r), w: w}
}

func (p *linePrompter) Prompt(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w != nil && prompt != "" {
		fmt.Fprint(p.w, prompt)
	}

	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

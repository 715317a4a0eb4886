package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ardnew/pyplay/lang"
)

const indentWidth = 4

// session collects submitted lines into executable blocks and remembers the
// blocks that ran without error.
type session struct {
	pending    []string
	transcript []string
}

// feed adds a submitted line. It returns the source to execute once a block
// is complete. A line ending in ':' starts a block that a blank line
// completes; a line leaving a bracket open continues until it closes.
func (s *session) feed(line string) (string, bool) {
	if len(s.pending) == 0 {
		if strings.TrimSpace(line) == "" {
			return "", false
		}

		if !needsMore(line) {
			return line, true
		}

		s.pending = []string{line}

		return "", false
	}

	if strings.TrimSpace(line) == "" && openBrackets(strings.Join(s.pending, "\n")) <= 0 {
		src := strings.Join(s.pending, "\n")
		s.pending = nil

		return src, true
	}

	s.pending = append(s.pending, line)

	// a bracketed expression without a block header ends when it closes
	src := strings.Join(s.pending, "\n")
	if !strings.HasSuffix(stripComment(s.pending[0]), ":") && openBrackets(src) <= 0 {
		s.pending = nil

		return src, true
	}

	return "", false
}

// continuing reports whether a block is being collected.
func (s *session) continuing() bool { return len(s.pending) > 0 }

// indent returns the indentation to pre-fill for the next continuation line.
func (s *session) indent() string {
	if len(s.pending) == 0 {
		return ""
	}

	last := s.pending[len(s.pending)-1]
	n := lang.Indent(last)

	if strings.HasSuffix(stripComment(last), ":") {
		n += indentWidth
	}

	return strings.Repeat(" ", n)
}

// discard drops a partially collected block.
func (s *session) discard() { s.pending = nil }

func (s *session) record(src string) { s.transcript = append(s.transcript, src) }

// source returns the transcript as one program.
func (s *session) source() string {
	if len(s.transcript) == 0 {
		return ""
	}

	return strings.Join(s.transcript, "\n") + "\n"
}

func (s *session) reset(src string) {
	s.pending = nil
	s.transcript = nil

	if strings.TrimSpace(src) != "" {
		s.transcript = []string{strings.TrimRight(src, "\n")}
	}
}

func needsMore(line string) bool {
	if strings.HasSuffix(stripComment(line), ":") {
		return true
	}

	return openBrackets(line) > 0
}

// openBrackets returns the bracket nesting left open at the end of src,
// ignoring brackets inside string literals and comments.
func openBrackets(src string) int {
	var (
		depth int
		quote rune
	)

	for i := 0; i < len(src); i++ {
		c := rune(src[i])

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			for i < len(src) && src[i] != '\n' {
				i++
			}
		case c == '(' || c == '[' || c == '{':
			depth++
		case c == ')' || c == ']' || c == '}':
			depth--
		}
	}

	return depth
}

// stripComment removes a trailing comment and surrounding space.
func stripComment(line string) string {
	var quote byte

	for i := 0; i < len(line); i++ {
		c := line[i]

		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '#':
			return strings.TrimSpace(line[:i])
		}
	}

	return strings.TrimSpace(line)
}

// terminalPrompter answers input() while the REPL has handed the terminal
// to a running block. Outside such a block it fails with [ErrNoTerminal].
type terminalPrompter struct {
	mu sync.Mutex
	r  *bufio.Reader
	w  io.Writer
}

func (p *terminalPrompter) attach(r io.Reader, w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.r, p.w = bufio.NewReader(r), w
}

func (p *terminalPrompter) detach() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.r, p.w = nil, nil
}

func (p *terminalPrompter) Prompt(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.r == nil {
		return "", ErrNoTerminal
	}

	if p.w != nil {
		fmt.Fprint(p.w, prompt)
	}

	line, err := p.r.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}

	return strings.TrimRight(line, "\r\n"), nil
}

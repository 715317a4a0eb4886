package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		err   error
		want  string
	}{
		{"output", []string{"a", "b"}, nil, "a\nb\n"},
		{"no output", nil, nil, noOutputMessage + "\n"},
		{
			"exception",
			[]string{"start"},
			lang.WrapError(&lang.Exception{Kind: "ValueError", Msg: "bad"}),
			"start\n" + errorPrefix + "ValueError: bad\n",
		},
		{"error without output", nil, errors.New("boom"), errorPrefix + "boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			render(&buf, tt.lines, tt.err)

			if got := buf.String(); got != tt.want {
				t.Errorf("render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunCommand(t *testing.T) {
	limits := Limits{MaxIterations: 100, MaxDepth: 50, Scope: "copy"}

	tests := []struct {
		name    string
		src     string
		input   string
		want    string
		wantErr error
	}{
		{
			name: "prints",
			src:  "for i in range(3):\n    print(i * i)\n",
			want: "0\n1\n4\n",
		},
		{
			name: "no output",
			src:  "x = 1\n",
			want: noOutputMessage + "\n",
		},
		{
			name:    "exception",
			src:     "print('before')\nprint(1 / 0)\n",
			want:    "before\n" + errorPrefix,
			wantErr: ErrProgram,
		},
		{
			name:  "input file",
			src:   "name = input('who? ')\nprint('hi ' + name)\n",
			input: "ada\n",
			want:  "hi ada\n",
		},
		{
			name: "loop cap",
			src:  "while True:\n    pass\nprint('after')\n",
			want: "⚠️ Infinite loop detected\nafter\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, out := testContext(t, nil)

			r := &Run{Limits: limits, Source: writeFile(t, "prog.py", tt.src)}
			if tt.input != "" {
				r.Input = writeFile(t, "input.txt", tt.input)
			}

			err := r.Run(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			if !strings.HasPrefix(out.String(), tt.want) {
				t.Errorf("output = %q, want prefix %q", out.String(), tt.want)
			}
		})
	}
}

func TestRunFromStdin(t *testing.T) {
	ctx, out := testContext(t, nil)
	ctx = WithStdin(ctx, strings.NewReader("print(input() or 'eof')\n"))

	r := &Run{Limits: Limits{MaxIterations: 10, MaxDepth: 10, Scope: "lexical"}, Source: stdinSource}

	// input() cannot share standard input with the program text
	if err := r.Run(ctx); !errors.Is(err, ErrProgram) {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(out.String(), errorPrefix) {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, _ := testContext(t, nil)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	r := &Run{
		Limits: Limits{MaxIterations: 1 << 30, MaxDepth: 10, Scope: "copy"},
		Source: writeFile(t, "spin.py", "while True:\n    pass\n"),
	}

	if err := r.Run(canceled); !errors.Is(err, lang.ErrCanceled) {
		t.Errorf("Run() error = %v, want ErrCanceled", err)
	}
}

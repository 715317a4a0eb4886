package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestPackageLogger(t *testing.T) {
	original := Default()
	t.Cleanup(func() {
		defaultMu.Lock()
		defaultLog = original
		defaultMu.Unlock()
	})

	var buf bytes.Buffer

	Config(WithOutput(&buf), WithLevel(LevelTrace), WithFormat(FormatJSON), WithPretty(false))

	tests := []struct {
		name  string
		fn    func(string, ...slog.Attr)
		level string
	}{
		{"Trace", Trace, "TRACE"},
		{"Debug", Debug, "DEBUG"},
		{"Info", Info, "INFO"},
		{"Warn", Warn, "WARN"},
		{"Error", Error, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn("message", slog.String("key", "value"))

			out := buf.String()
			for _, want := range []string{`"msg":"message"`, `"level":"` + tt.level + `"`, `"key":"value"`} {
				if !strings.Contains(out, want) {
					t.Errorf("output %s does not contain %s", out, want)
				}
			}
		})
	}

	buf.Reset()
	With(slog.String("component", "cli")).Info("x")

	if !strings.Contains(buf.String(), `"component":"cli"`) {
		t.Errorf("With() output = %s", buf.String())
	}

	if Default().Level() != LevelTrace {
		t.Errorf("Default().Level() = %v", Default().Level())
	}
}

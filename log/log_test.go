package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestMakeDefaults(t *testing.T) {
	l := Make(&bytes.Buffer{})

	if l.Level() != DefaultLevel {
		t.Errorf("Level() = %v, want %v", l.Level(), DefaultLevel)
	}

	if l.Format() != DefaultFormat {
		t.Errorf("Format() = %v, want %v", l.Format(), DefaultFormat)
	}

	if l.caller != DefaultCaller || l.pretty != DefaultPretty {
		t.Errorf("caller = %v, pretty = %v", l.caller, l.pretty)
	}
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		name   string
		log    func(Logger, string, ...slog.Attr)
		min    Level
		logged bool
	}{
		{"trace at trace", Logger.Trace, LevelTrace, true},
		{"trace at debug", Logger.Trace, LevelDebug, false},
		{"debug at debug", Logger.Debug, LevelDebug, true},
		{"debug at info", Logger.Debug, LevelInfo, false},
		{"info at warn", Logger.Info, LevelWarn, false},
		{"warn at warn", Logger.Warn, LevelWarn, true},
		{"warn at error", Logger.Warn, LevelError, false},
		{"error at debug", Logger.Error, LevelDebug, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, pretty := range []bool{false, true} {
				var buf bytes.Buffer

				tt.log(Make(&buf, WithLevel(tt.min), WithPretty(pretty)), "message")

				if got := buf.Len() > 0; got != tt.logged {
					t.Errorf("pretty=%v: logged = %v, want %v", pretty, got, tt.logged)
				}
			}
		})
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatJSON), WithPretty(false), WithLevel(LevelInfo))
	l.With(slog.String("component", "lang")).Info("run", slog.Int("lines", 3))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("json.Unmarshal() error = %v (%s)", err, buf.String())
	}

	for key, want := range map[string]any{
		"msg":       "run",
		"level":     "INFO",
		"component": "lang",
		"lines":     float64(3),
	} {
		if entry[key] != want {
			t.Errorf("%s = %v, want %v", key, entry[key], want)
		}
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithFormat(FormatText), WithPretty(false), WithLevel(LevelInfo))
	l.Info("hello", slog.String("key", "value"))

	if got := buf.String(); !strings.Contains(got, "msg=hello") || !strings.Contains(got, "key=value") {
		t.Errorf("output = %q", got)
	}
}

func TestCaller(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer

		Make(&buf, WithCaller(true), WithPretty(pretty), WithLevel(LevelInfo)).Info("here")

		if got := buf.String(); !strings.Contains(got, "log_test.go") {
			t.Errorf("pretty=%v: source missing: %q", pretty, got)
		}

		buf.Reset()
		Make(&buf, WithCaller(false), WithPretty(pretty), WithLevel(LevelInfo)).Info("here")

		if got := buf.String(); strings.Contains(got, "source") {
			t.Errorf("pretty=%v: unexpected source: %q", pretty, got)
		}
	}
}

func TestWrap(t *testing.T) {
	var buf bytes.Buffer

	base := Make(&buf, WithLevel(LevelError), WithPretty(false))
	base.Info("dropped")

	wrapped := base.Wrap(WithLevel(LevelDebug))
	wrapped.Debug("kept")

	if got := buf.String(); strings.Contains(got, "dropped") || !strings.Contains(got, "kept") {
		t.Errorf("output = %q", got)
	}

	if base.Level() != LevelError {
		t.Errorf("Wrap() modified the receiver: %v", base.Level())
	}
}

func TestZeroLogger(t *testing.T) {
	var l Logger

	l.Trace("x")
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", slog.String("k", "v"))

	if l.With(slog.String("k", "v")).Logger != nil {
		t.Error("With() on the zero Logger built a handler")
	}

	if l.Enabled(t.Context(), LevelError) {
		t.Error("zero Logger reports enabled")
	}

	if l.Level() != DefaultLevel || l.Format() != DefaultFormat {
		t.Errorf("Level() = %v, Format() = %v", l.Level(), l.Format())
	}
}

func TestContextMethods(t *testing.T) {
	var buf bytes.Buffer

	l := Make(&buf, WithLevel(LevelTrace), WithPretty(false))
	ctx := t.Context()

	l.TraceContext(ctx, "a")
	l.DebugContext(ctx, "b")
	l.InfoContext(ctx, "c")
	l.WarnContext(ctx, "d")
	l.ErrorContext(ctx, "e")

	if got := strings.Count(buf.String(), "\n"); got != 5 {
		t.Errorf("got %d lines, want 5: %q", got, buf.String())
	}
}

func TestConcurrentLogging(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer

		l := Make(&buf, WithPretty(pretty), WithLevel(LevelInfo))

		var wg sync.WaitGroup
		for i := range 100 {
			wg.Go(func() {
				l.Info("concurrent", slog.Int("id", i))
			})
		}

		wg.Wait()

		if got := strings.Count(buf.String(), "\n"); got != 100 {
			t.Errorf("pretty=%v: got %d lines, want 100", pretty, got)
		}
	}
}

func BenchmarkLogger(b *testing.B) {
	for _, pretty := range []bool{false, true} {
		name := "plain"
		if pretty {
			name = "pretty"
		}

		b.Run(name, func(b *testing.B) {
			var buf bytes.Buffer

			l := Make(&buf, WithPretty(pretty), WithLevel(LevelInfo)).
				With(slog.String("component", "bench"))

			for b.Loop() {
				buf.Reset()
				l.Info("message", slog.Int("n", 1))
			}
		})
	}
}

package log

import (
	"slices"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{" info ", LevelInfo},
		{"WARN", LevelWarn},
		{"error", LevelError},
		{"info+2", LevelInfo + 2},
		{"bogus", DefaultLevel},
		{"", DefaultLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelTrace, "trace"},
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LevelInfo + 2, "info+2"},
		{LevelTrace + 1, "trace+1"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}

	if got := slices.Collect(Levels()); !slices.Equal(got, []string{"trace", "debug", "info", "warn", "error"}) {
		t.Errorf("Levels() = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"json", FormatJSON},
		{" JSON", FormatJSON},
		{"text", FormatText},
		{"yaml", DefaultFormat},
	}

	for _, tt := range tests {
		if got := ParseFormat(tt.in); got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := slices.Collect(Formats()); !slices.Equal(got, []string{"text", "json"}) {
		t.Errorf("Formats() = %q", got)
	}

	if got := Format(7).String(); got != "Format(7)" {
		t.Errorf("Format(7).String() = %q", got)
	}
}

func TestConfigOptions(t *testing.T) {
	c := apply(config{},
		WithLevel(LevelDebug),
		WithFormat(FormatJSON),
		WithCaller(true),
		WithPretty(false),
		WithOutput(nil),
	)

	if c.level != LevelDebug {
		t.Errorf("level = %v", c.level)
	}

	if c.format != FormatJSON {
		t.Errorf("format = %v", c.format)
	}

	if !c.caller || c.pretty {
		t.Errorf("caller = %v, pretty = %v", c.caller, c.pretty)
	}

	if c.output == nil {
		t.Error("WithOutput(nil) left output nil")
	}

	d := WithDefaults(nil)(c)
	if d.level != DefaultLevel || d.format != DefaultFormat || d.caller != DefaultCaller || d.pretty != DefaultPretty {
		t.Errorf("WithDefaults() = %+v", d)
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Date(2023, 10, 15, 14, 30, 45, 123456789, time.UTC)

	tests := []struct {
		name   string
		layout string
		want   string
	}{
		{"rfc3339", "RFC3339", "2023-10-15T14:30:45Z"},
		{"rfc3339 nano", "RFC3339Nano", "2023-10-15T14:30:45.123456789Z"},
		{"punctuation ignored", "rfc-3339", "2023-10-15T14:30:45Z"},
		{"kitchen", "kitchen", "2:30PM"},
		{"millis", "ms", "Oct 15 14:30:45.123"},
		{"custom", "2006/01/02", "2023/10/15"},
		{"unknown name is a layout", "UNKNOWN", "UNKNOWN"},
		{"empty", "", ""},
		{"whitespace", "  \t ", ""},
		{"none", "none", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := WithTimeLayout(tt.layout)(config{})
			if got := c.formatTime(now); got != tt.want {
				t.Errorf("formatTime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceAttrLevel(t *testing.T) {
	var buf strings.Builder

	l := Make(&buf, WithLevel(LevelTrace), WithPretty(false), WithTimeLayout("none"))
	l.Trace("deep")

	if got := buf.String(); !strings.Contains(got, "level=TRACE") || strings.Contains(got, "time=") {
		t.Errorf("output = %q", got)
	}
}

func BenchmarkFormatTime(b *testing.B) {
	for _, layout := range []string{"RFC3339", "RFC3339Nano"} {
		b.Run(layout, func(b *testing.B) {
			c := WithTimeLayout(layout)(config{})
			now := time.Now()

			for b.Loop() {
				_ = c.formatTime(now)
			}
		})
	}
}

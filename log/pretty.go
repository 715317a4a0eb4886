package log

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// palette holds the styles of a pretty handler. Styles are bound to a
// renderer for the handler's output, so colors are dropped when the output
// is not a color terminal.
type palette struct {
	key      lipgloss.Style
	str      lipgloss.Style
	num      lipgloss.Style
	yes      lipgloss.Style
	no       lipgloss.Style
	duration lipgloss.Style
	time     lipgloss.Style
	null     lipgloss.Style
	message  lipgloss.Style
	trace    lipgloss.Style
	debug    lipgloss.Style
	info     lipgloss.Style
	warn     lipgloss.Style
	error    lipgloss.Style
}

func makePalette(r *lipgloss.Renderer) palette {
	color := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c))
	}

	return palette{
		key:      color("8"),
		str:      color("6"),
		num:      color("3"),
		yes:      color("2"),
		no:       color("1"),
		duration: color("5"),
		time:     color("4"),
		null:     color("8"),
		message:  r.NewStyle().Bold(true),
		trace:    color("8"),
		debug:    color("4"),
		info:     color("2"),
		warn:     color("3"),
		error:    color("1").Bold(true),
	}
}

func (p palette) level(l slog.Level) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return p.error
	case l >= slog.LevelWarn:
		return p.warn
	case l >= slog.LevelInfo:
		return p.info
	case l >= slog.LevelDebug:
		return p.debug
	default:
		return p.trace
	}
}

// field is a rendered key/value pair.
type field struct{ key, val string }

// prettyHandler writes styled records in either text or JSON layout.
type prettyHandler struct {
	cfg    config
	style  palette
	mu     *sync.Mutex
	fields []field
	groups []string
}

func newPrettyHandler(cfg config) *prettyHandler {
	return &prettyHandler{
		cfg:   cfg,
		style: makePalette(lipgloss.NewRenderer(cfg.output)),
		mu:    &sync.Mutex{},
	}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.Level(h.cfg.level)
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make([]field, 0, 4+len(h.fields)+r.NumAttrs())

	if !r.Time.IsZero() {
		if ts := h.cfg.formatTime(r.Time); ts != "" {
			fields = append(fields, field{slog.TimeKey, h.style.time.Render(ts)})
		}
	}

	fields = append(fields, field{
		slog.LevelKey,
		h.style.level(r.Level).Render(Level(r.Level).String()),
	})

	if h.cfg.caller && r.PC != 0 {
		if src := r.Source(); src != nil && src.File != "" {
			loc := fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line)
			fields = append(fields, field{slog.SourceKey, h.style.str.Render(loc)})
		}
	}

	fields = append(fields, field{slog.MessageKey, h.style.message.Render(r.Message)})
	fields = append(fields, h.fields...)

	prefix := h.prefix()

	r.Attrs(func(a slog.Attr) bool {
		fields = h.appendAttr(fields, prefix, a)

		return true
	})

	var buf bytes.Buffer

	switch h.cfg.format {
	case FormatJSON:
		buf.WriteString("{\n")

		for i, f := range fields {
			if i > 0 {
				buf.WriteString(",\n")
			}

			buf.WriteString("  ")
			buf.WriteString(h.style.key.Render(f.key))
			buf.WriteString(": ")
			buf.WriteString(f.val)
		}

		buf.WriteString("\n}\n")

	default:
		for i, f := range fields {
			if i > 0 {
				buf.WriteByte(' ')
			}

			buf.WriteString(h.style.key.Render(f.key))
			buf.WriteByte('=')
			buf.WriteString(f.val)
		}

		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.cfg.output.Write(buf.Bytes())

	return err
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	c := *h
	c.fields = h.fields[:len(h.fields):len(h.fields)]

	prefix := h.prefix()
	for _, a := range attrs {
		c.fields = c.appendAttr(c.fields, prefix, a)
	}

	return &c
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	c := *h
	c.groups = append(h.groups[:len(h.groups):len(h.groups)], name)

	return &c
}

func (h *prettyHandler) prefix() string {
	if len(h.groups) == 0 {
		return ""
	}

	return strings.Join(h.groups, ".") + "."
}

func (h *prettyHandler) appendAttr(fields []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()

	if a.Equal(slog.Attr{}) {
		return fields
	}

	if a.Value.Kind() == slog.KindGroup {
		sub := prefix
		if a.Key != "" {
			sub += a.Key + "."
		}

		for _, ga := range a.Value.Group() {
			fields = h.appendAttr(fields, sub, ga)
		}

		return fields
	}

	return append(fields, field{prefix + a.Key, h.value(a.Value)})
}

func (h *prettyHandler) value(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return h.style.str.Render(v.String())
	case slog.KindInt64:
		return h.style.num.Render(strconv.FormatInt(v.Int64(), 10))
	case slog.KindUint64:
		return h.style.num.Render(strconv.FormatUint(v.Uint64(), 10))
	case slog.KindFloat64:
		return h.style.num.Render(strconv.FormatFloat(v.Float64(), 'g', -1, 64))
	case slog.KindBool:
		if v.Bool() {
			return h.style.yes.Render("true")
		}

		return h.style.no.Render("false")
	case slog.KindDuration:
		return h.style.duration.Render(v.Duration().String())
	case slog.KindTime:
		return h.style.time.Render(h.cfg.formatTime(v.Time()))
	}

	switch x := v.Any().(type) {
	case nil:
		return h.style.null.Render("null")
	case slog.Level:
		return h.style.level(x).Render(Level(x).String())
	case error:
		return h.style.no.Render(x.Error())
	default:
		return h.style.str.Render(fmt.Sprint(x))
	}
}

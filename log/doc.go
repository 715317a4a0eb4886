// Package log is a small structured logging layer over [log/slog].
//
// A [Logger] is built once with functional options and is then immutable:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("kitchen"))
//
//	logger.Info("run finished", slog.Int("lines", 3))
//
// [Logger.Wrap] derives a logger with different options and [Logger.With]
// one that adds attributes to every message. The zero Logger is valid and
// silent, which lets library code hold a Logger field without a nil check.
//
// Levels are those of slog plus [LevelTrace], which sits below debug and is
// rendered by name. Pretty output (the default) styles keys and values with
// lipgloss and falls back to plain text when the writer is not a terminal.
//
// The package-level functions ([Info], [Config], ...) share a default
// logger writing to standard error.
package log

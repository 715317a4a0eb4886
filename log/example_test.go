package log_test

import (
	"log/slog"
	"os"

	"github.com/ardnew/pyplay/log"
)

func Example() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelDebug),
		log.WithTimeLayout("none"),
		log.WithPretty(false))

	logger.Debug("parse", slog.Int("stmts", 4))
	logger.Trace("not shown")

	// Output:
	// level=DEBUG msg=parse stmts=4
}

func ExampleLogger_With() {
	logger := log.Make(os.Stdout,
		log.WithLevel(log.LevelInfo),
		log.WithFormat(log.FormatJSON),
		log.WithTimeLayout("none"),
		log.WithPretty(false)).
		With(slog.String("exercise", "even squares"))

	logger.Info("graded", slog.Bool("passed", true))

	// Output:
	// {"level":"INFO","msg":"graded","exercise":"even squares","passed":true}
}

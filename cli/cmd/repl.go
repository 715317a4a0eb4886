package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/pyplay/cli/cmd/repl"
	"github.com/ardnew/pyplay/log"
)

// Repl starts an interactive session.
type Repl struct {
	Limits `embed:""`

	NoHistory bool `help:"Do not read or write the history file."`
}

// Run executes the repl command.
func (r *Repl) Run(ctx context.Context) error {
	var cacheDir string

	if ktx := kongContextFrom(ctx); ktx != nil && !r.NoHistory {
		cacheDir = ktx.Model.Vars()[CacheIdentifier]
	}

	log.TraceContext(ctx, "starting repl",
		slog.String("cache", cacheDir),
		slog.String("scope", r.Scope),
	)

	return repl.Run(ctx, cacheDir, log.Default(), r.options()...)
}

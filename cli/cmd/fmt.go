package cmd

import (
	"context"
	"log/slog"
)

// Fmt parses a program and dumps its statement arena.
type Fmt struct {
	Tree Tree `cmd:"" default:"withargs" help:"Print an indented statement outline (default)."`
	JSON JSON `cmd:""                    help:"Format as JSON."`
	YAML YAML `cmd:""                    help:"Format as YAML."`
}

// Tree prints an indented outline of the parsed statements.
type Tree struct {
	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the tree command.
func (t *Tree) Run(ctx context.Context) error {
	prog, err := parseSource(ctx, t.Source)
	if err != nil {
		return err
	}

	if err := prog.FormatTree(stdout(ctx)); err != nil {
		return ErrMarshal.Wrap(err).With(slog.String("format", "tree"))
	}

	return nil
}

// JSON prints the parsed statements as JSON.
type JSON struct {
	Indent int `default:"2" help:"Indent width; 0 prints a single line." short:"i"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the json command.
func (j *JSON) Run(ctx context.Context) error {
	prog, err := parseSource(ctx, j.Source)
	if err != nil {
		return err
	}

	if err := prog.FormatJSON(ctx, stdout(ctx), j.Indent); err != nil {
		return ErrMarshal.Wrap(err).With(slog.String("format", "json"))
	}

	return nil
}

// YAML prints the parsed statements as YAML.
type YAML struct {
	Indent int `default:"2" help:"Indent width; 0 prints flow style." short:"i"`

	Source string `arg:"" default:"-" help:"Program file or '-' for stdin." name:"source"`
}

// Run executes the yaml command.
func (y *YAML) Run(ctx context.Context) error {
	prog, err := parseSource(ctx, y.Source)
	if err != nil {
		return err
	}

	if err := prog.FormatYAML(ctx, stdout(ctx), y.Indent); err != nil {
		return ErrMarshal.Wrap(err).With(slog.String("format", "yaml"))
	}

	return nil
}

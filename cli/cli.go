package cli

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/ardnew/pyplay/cli/cmd"
	"github.com/ardnew/pyplay/pkg"
)

// CLI is the top-level command-line interface for pyplay.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Version kong.VersionFlag `help:"Print version and exit." short:"V"`

	Run   cmd.Run   `cmd:"" default:"withargs" help:"Run a program (default)."`
	Fmt   cmd.Fmt   `cmd:""                    help:"Print the parsed statements of a program."`
	Check cmd.Check `cmd:""                    help:"Grade practice exercises."`
	Repl  cmd.Repl  `cmd:""                    help:"Start an interactive session."`
	Init  cmd.Init  `cmd:""                    help:"Write the configuration file."`
}

// Run executes the pyplay CLI with the given context and arguments.
// The exit function is called with the appropriate exit code when kong
// handles a flag such as --help or --version itself.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) error {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFilePath := configPath(baseConfig)

	vars := kong.Vars{
		"version":            pkg.Name + " " + pkg.Version(),
		cmd.ConfigIdentifier: configFilePath,
		cmd.CacheIdentifier:  pkg.CacheDir(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Apply logger flags before kong runs so messages logged while parsing
	// already honor them, wherever the flags appear.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.DefaultEnvars(pkg.EnvPrefix()),
		// commands resolve their context when they run, after the kong
		// context has been stored in it below
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(loadConfig, configFilePath),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	ctx = cmd.WithContext(ctx, ktx)

	// TimeLayout and Caller have no early hook, so the logger is finalized
	// here with every parsed value.
	cli.Log.start(ctx)

	// no-op unless built with tag pprof and a mode is selected
	defer cli.Pprof.start(ctx)()

	return ktx.Run(ctx)
}

// Package cmd implements the pyplay subcommands: run, fmt, check, init and
// repl.
//
// Commands receive their [kong.Context] through [WithContext] and print to
// its Stdout, so tests can capture output with [kong.Writers].
package cmd

var (
	// CacheIdentifier is the kong variable holding the runtime cache
	// directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable holding the path of the
	// configuration file.
	ConfigIdentifier = "config"
)

// Package cli contains the command line interface for pyplay.
//
// # Usage
//
//	pyplay [flags] [run] [FILE|-]
//	pyplay fmt tree|json|yaml [FILE|-]
//	pyplay check FILE...
//	pyplay repl
//	pyplay init [--force]
//
// Running a program is the default command, so "pyplay fib.py" and
// "pyplay run fib.py" are the same.
//
// # Configuration
//
// Flag values are taken, in order of precedence, from the command line,
// environment variables named after the flag with a PYPLAY_ prefix (for
// example PYPLAY_MAX_ITERATIONS), and the YAML file config.yaml in the user
// configuration directory. "pyplay init" writes the current values to that
// file.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, none, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: ~/.cache/pyplay/pprof)
package cli

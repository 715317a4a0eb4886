// Package profile runs an optional [github.com/pkg/profile] session around a
// pyplay command.
//
// Profiling is compiled in only with the "pprof" build tag:
//
//	go build -tags pprof .
//	./pyplay --pprof-mode cpu examples/fib.py
//	go tool pprof -http=: ~/.cache/pyplay/pprof/cpu.pprof
//
// Without the tag [Modes] is empty and [Profiler.Start] returns a Stopper
// that does nothing, so callers never need their own build constraints.
//
// Supported modes are allocs, block, clock, cpu, goroutine, heap, mem,
// mutex, thread and trace.
package profile

// Tag is the build tag required to enable profiling.
const Tag = `pprof`

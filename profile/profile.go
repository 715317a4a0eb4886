package profile

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes a profiling session.
type Profiler struct {
	// Mode is one of [Modes]. Empty disables profiling.
	Mode string
	// Path is the output directory. Empty uses a temporary directory.
	Path string
	// Quiet suppresses the profiler's own start and stop messages.
	Quiet bool
}

// Start begins profiling. Both Start and the returned Stopper are safe to
// call when profiling is unavailable or the mode is unknown.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return nop{}
	}

	return start(p)
}

// Enabled reports whether the binary was built with profiling support.
func Enabled() bool { return enabled }

type nop struct{}

func (nop) Stop() {}

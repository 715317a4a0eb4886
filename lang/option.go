package lang

import (
	"context"
	"strings"

	"github.com/ardnew/pyplay/log"
)

// DefaultMaxIterations is the default per-loop iteration cap.
const DefaultMaxIterations = 50000

// DefaultMaxDepth is the default maximum nesting of user function calls.
const DefaultMaxDepth = 1000

// Scope selects how a function call sees the bindings around it.
type Scope int

const (
	// ScopeCopy runs each call in a shallow copy of the caller's bindings.
	ScopeCopy Scope = iota // copy
	// ScopeLexical runs each call in a new frame whose lookups fall back to
	// the frame the function was defined in.
	ScopeLexical // lexical
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeLexical:
		return "lexical"
	default:
		return "copy"
	}
}

// ParseScope parses a scope name. Unknown names select [ScopeCopy].
func ParseScope(s string) Scope {
	if strings.EqualFold(strings.TrimSpace(s), "lexical") {
		return ScopeLexical
	}

	return ScopeCopy
}

// Prompter answers the guest input() call.
type Prompter interface {
	Prompt(ctx context.Context, prompt string) (string, error)
}

// PrompterFunc adapts a function to the [Prompter] interface.
type PrompterFunc func(ctx context.Context, prompt string) (string, error)

// Prompt implements [Prompter].
func (f PrompterFunc) Prompt(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// noPrompt answers every prompt with an empty line.
var noPrompt = PrompterFunc(func(context.Context, string) (string, error) {
	return "", nil
})

// config holds the interpreter settings.
type config struct {
	logger   log.Logger
	prompter Prompter
	maxIter  int
	maxDepth int
	scope    Scope
	cache    bool
	echo     bool
}

// Option applies a configuration option to config.
type Option func(config) config

// apply applies multiple options to a config.
func apply(cfg config, opts ...Option) config {
	for _, opt := range opts {
		cfg = opt(cfg)
	}

	return cfg
}

// makeConfig creates a config with defaults applied, overridden by any
// provided options.
func makeConfig(opts ...Option) config {
	return apply(config{
		prompter: noPrompt,
		maxIter:  DefaultMaxIterations,
		maxDepth: DefaultMaxDepth,
		scope:    ScopeCopy,
		cache:    true,
	}, opts...)
}

// WithLogger sets the logger used for trace and debug events.
// The zero [log.Logger] discards everything.
func WithLogger(logger log.Logger) Option {
	return func(c config) config {
		c.logger = logger

		return c
	}
}

// WithMaxIterations sets the per-loop iteration cap.
// Values less than 1 restore [DefaultMaxIterations].
func WithMaxIterations(n int) Option {
	return func(c config) config {
		if n < 1 {
			n = DefaultMaxIterations
		}

		c.maxIter = n

		return c
	}
}

// WithMaxDepth sets the maximum nesting of user function calls.
// Values less than 1 restore [DefaultMaxDepth].
func WithMaxDepth(n int) Option {
	return func(c config) config {
		if n < 1 {
			n = DefaultMaxDepth
		}

		c.maxDepth = n

		return c
	}
}

// WithScope selects the function-call scoping model.
func WithScope(s Scope) Option {
	return func(c config) config {
		c.scope = s

		return c
	}
}

// WithPrompter sets the source of input() answers.
// A nil prompter answers every prompt with an empty line.
func WithPrompter(p Prompter) Option {
	return func(c config) config {
		if p == nil {
			p = noPrompt
		}

		c.prompter = p

		return c
	}
}

// WithCache controls whether parsed programs are cached by source hash.
func WithCache(enable bool) Option {
	return func(c config) config {
		c.cache = enable

		return c
	}
}

// WithEcho makes top-level expression statements print the representation
// of their value when it is not None, as an interactive shell does.
func WithEcho(enable bool) Option {
	return func(c config) config {
		c.echo = enable

		return c
	}
}

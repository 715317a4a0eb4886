package lang

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
)

// maxCachedPrograms bounds programCache. The cache is emptied when a new
// entry would exceed it.
const maxCachedPrograms = 256

// programCache maps a source hash to its parsed program. Programs are
// immutable once built, so runs share them freely.
var (
	programCache sync.Map
	cachedCount  atomic.Int64
)

// entry parses its source at most once. The source is kept so a hash
// collision is detected instead of returning another program.
type entry struct {
	once   sync.Once
	source string
	prog   *Program
}

func cacheKey(source string) string {
	return strconv.FormatUint(xxh3.HashString(source), 36)
}

// ParseString parses source, reusing the program parsed from identical
// source earlier in the process.
func ParseString(ctx context.Context, source string, opts ...Option) *Program {
	cfg := makeConfig(opts...)

	key := cacheKey(source)

	value, hit := programCache.LoadOrStore(key, &entry{source: source})

	e, _ := value.(*entry)

	cfg.logger.TraceContext(ctx, "cache lookup",
		slog.String("source_hash", key),
		slog.Int("source_bytes", len(source)),
		slog.Bool("cache_hit", hit),
	)

	if hit && e.source != source {
		cfg.logger.DebugContext(ctx, "cache collision",
			slog.String("source_hash", key),
		)

		return Parse(source)
	}

	if !hit && cachedCount.Add(1) > maxCachedPrograms {
		// keep the new entry, drop everything else
		programCache.Range(func(k, _ any) bool {
			if k != key {
				programCache.Delete(k)
			}

			return true
		})
		cachedCount.Store(1)
	}

	e.once.Do(func() {
		e.prog = Parse(source)

		cfg.logger.TraceContext(ctx, "parse",
			slog.Int("lines", len(e.prog.Lines)),
			slog.Int("statements", len(e.prog.Stmts)),
		)
	})

	return e.prog
}

// ParseReader reads source from r and parses it. The program is cached
// unless caching is disabled with [WithCache].
func ParseReader(ctx context.Context, r io.Reader, opts ...Option) (*Program, error) {
	cfg := makeConfig(opts...)

	// Wrap reader with async read-ahead so reading overlaps with the caller.
	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrRead.Wrap(err).
			With(slog.String("source", "reader"))
	}

	cfg.logger.TraceContext(ctx, "read input",
		slog.Int("source_bytes", len(data)),
		slog.Bool("read_ahead", true),
	)

	if !cfg.cache {
		return Parse(string(data)), nil
	}

	return ParseString(ctx, string(data), opts...), nil
}

// ClearCache drops every cached program.
func ClearCache() {
	programCache.Clear()
	cachedCount.Store(0)
}

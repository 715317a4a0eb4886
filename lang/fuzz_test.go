package lang_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ardnew/pyplay/lang"
)

// FuzzRun checks that arbitrary source never panics and that every failure
// is either a guest exception or a cancellation.
func FuzzRun(f *testing.F) {
	f.Add(sample)
	f.Add("print([x*x for x in range(5) if x%2==0])")
	f.Add("a=[1,2,3]\nprint(a[::-1], a[5], {1: 'a'}[2])")
	f.Add("while True:\n  x += 1")
	f.Add("def f(n):\n  return f(n)\nf(1)")
	f.Add("print(f'{3.14159:>{10}.3f}|{\"x\"!r:^7}')")
	f.Add("print('%(a)s %05.1f' % {'a': 1})")
	f.Add("x = (1,\n")
	f.Add("for a, *b in [[1, 2, 3]]:\n\tprint(a, b)\nelse: print(0)")

	f.Fuzz(func(t *testing.T, src string) {
		ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
		defer cancel()

		_, err := lang.Run(ctx, src,
			lang.WithMaxIterations(200),
			lang.WithMaxDepth(40),
			lang.WithCache(false),
		)
		if err == nil {
			return
		}

		var ex *lang.Exception
		if !errors.As(err, &ex) && !errors.Is(err, lang.ErrCanceled) && !errors.Is(err, lang.ErrRead) {
			t.Fatalf("unexpected error type %T: %v", err, err)
		}
	})
}

func BenchmarkRunRecursive(b *testing.B) {
	src := lines(
		"def fib(n):",
		"    if n < 2:",
		"        return n",
		"    return fib(n - 1) + fib(n - 2)",
		"print(fib(15))",
	)

	for _, scope := range []lang.Scope{lang.ScopeCopy, lang.ScopeLexical} {
		b.Run(scope.String(), func(b *testing.B) {
			for b.Loop() {
				if _, err := lang.Run(b.Context(), src, lang.WithScope(scope)); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRunLoop(b *testing.B) {
	src := lines(
		"total = 0",
		"for i in range(10000):",
		"    if i % 3 == 0:",
		"        total += i",
		"print(total)",
	)

	for b.Loop() {
		if _, err := lang.Run(b.Context(), src); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkParse(b *testing.B) {
	b.Run("uncached", func(b *testing.B) {
		for b.Loop() {
			lang.Parse(sample)
		}
	})

	b.Run("cached", func(b *testing.B) {
		ctx := b.Context()

		for b.Loop() {
			lang.ParseString(ctx, sample)
		}
	})
}

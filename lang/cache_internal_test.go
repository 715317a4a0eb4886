package lang

import "testing"

func TestParseStringCollision(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	// another source already stored under this source's hash
	other := &entry{source: "print(2)"}
	other.once.Do(func() { other.prog = Parse(other.source) })
	programCache.Store(cacheKey("print(1)"), other)

	got := ParseString(t.Context(), "print(1)")
	if got == other.prog {
		t.Fatal("collision returned the other source's program")
	}

	if len(got.Stmts) == 0 {
		t.Fatal("program not parsed")
	}
}

func TestParseStringCacheBound(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	ctx := t.Context()

	first := ParseString(ctx, "x = 0")

	for i := range maxCachedPrograms {
		ParseString(ctx, "x = "+string(rune('a'+i%26))+string(rune('a'+i/26)))
	}

	n := 0
	programCache.Range(func(_, _ any) bool {
		n++

		return true
	})

	if n > maxCachedPrograms {
		t.Errorf("cache holds %d programs, want at most %d", n, maxCachedPrograms)
	}

	if ParseString(ctx, "x = 0") == first {
		t.Error("evicted program still cached")
	}
}

package lang_test

import (
	"slices"
	"testing"

	"github.com/ardnew/pyplay/lang"
)

func TestEnv(t *testing.T) {
	outer := lang.NewEnv(nil)
	outer.Set("a", int64(1))
	outer.Set("b", int64(2))

	inner := lang.NewEnv(outer)
	inner.Set("b", "shadow")
	inner.Set("c", true)

	if v, ok := inner.Lookup("a"); !ok || v != int64(1) {
		t.Errorf("Lookup(a) = %v, %v", v, ok)
	}

	if v, _ := inner.Lookup("b"); v != "shadow" {
		t.Errorf("Lookup(b) = %v, want shadow", v)
	}

	if _, ok := outer.Lookup("c"); ok {
		t.Error("outer frame sees inner binding")
	}

	if got := inner.Names(); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Names() = %q", got)
	}

	if !inner.Delete("b") || inner.Delete("b") {
		t.Error("Delete(b) should succeed exactly once")
	}

	if v, _ := inner.Lookup("b"); v != int64(2) {
		t.Errorf("Lookup(b) after Delete = %v, want 2", v)
	}

	var names []string
	for name := range inner.All() {
		names = append(names, name)
	}

	if !slices.Equal(names, []string{"a", "b", "c"}) {
		t.Errorf("All() names = %q", names)
	}
}

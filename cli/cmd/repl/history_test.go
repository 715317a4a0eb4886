package repl

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestHistoryPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load() on missing file = %v", err)
	}

	for _, e := range []HistoryEntry{
		{"x = 1", modeEval},
		{"vars", modeCtrl},
		{"    print(x)", modeEval},
		{"   ", modeEval},
		{"vars", modeCtrl},
	} {
		if err := h.Add(e.Line, e.Mode); err != nil {
			t.Fatalf("Add(%q) = %v", e.Line, err)
		}
	}

	if h.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", h.Len())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := string(data), "E:x = 1\nE:    print(x)\nC:vars\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	entry, err := reloaded.Entry(2)
	if err != nil || entry.Line != "vars" || entry.Mode != modeCtrl {
		t.Errorf("Entry(2) = %+v, %v", entry, err)
	}

	if _, err := reloaded.Entry(3); err != ErrOutOfBounds {
		t.Errorf("Entry(3) error = %v", err)
	}
}

func TestHistoryMovesDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)
	h := NewHistory(path)

	for _, line := range []string{"a", "b", "a"} {
		if err := h.Add(line, modeEval); err != nil {
			t.Fatal(err)
		}
	}

	entries := h.Entries()
	if len(entries) != 2 || entries[0].Line != "b" || entries[1].Line != "a" {
		t.Fatalf("entries = %+v", entries)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := string(data); got != "E:b\nE:a\n" {
		t.Errorf("file = %q", got)
	}
}

func TestHistoryBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)

	var b strings.Builder
	for i := range maxHistory + 10 {
		b.WriteString("E:line ")
		b.WriteString(strings.Repeat("x", i%7))
		b.WriteString(string(rune('a' + i%26)))
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	if h.Len() != maxHistory {
		t.Errorf("Len() = %d, want %d", h.Len(), maxHistory)
	}
}

func TestHistoryInMemory(t *testing.T) {
	h := NewHistory("")

	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	if err := h.Add("x", modeEval); err != nil {
		t.Fatal(err)
	}

	if h.Len() != 1 {
		t.Errorf("Len() = %d", h.Len())
	}
}

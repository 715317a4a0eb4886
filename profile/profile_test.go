package profile

import (
	"slices"
	"testing"
)

func TestStartWithoutMode(t *testing.T) {
	s := Profiler{Path: t.TempDir()}.Start()
	if _, ok := s.(nop); !ok {
		t.Errorf("Start() = %T, want nop", s)
	}

	s.Stop()
}

func TestStartUnknownMode(t *testing.T) {
	s := Profiler{Mode: "bogus", Path: t.TempDir(), Quiet: true}.Start()
	if _, ok := s.(nop); !ok {
		t.Errorf("Start() = %T, want nop", s)
	}

	s.Stop()
}

func TestModes(t *testing.T) {
	m := Modes()

	if !Enabled() {
		if len(m) != 0 {
			t.Errorf("Modes() = %q without profiling support", m)
		}

		return
	}

	if !slices.IsSorted(m) || !slices.Contains(m, "cpu") {
		t.Errorf("Modes() = %q", m)
	}
}

package pkg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("ReadFile(VERSION) error = %v", err)
	}

	if want := strings.TrimSpace(string(buf)); Version() != want {
		t.Errorf("Version() = %q, want %q", Version(), want)
	}
}

func TestPrefix(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/usr/local/bin/pyplay", "pyplay"},
		{"/tmp/__debug_bin3021", Name},
		{"/opt/.pyplay", "pyplay"},
		{"/opt/...", Name},
		{"play.test", "play"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := prefix(filepath.FromSlash(tt.path)); got != tt.want {
				t.Errorf("prefix(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestUserDirs(t *testing.T) {
	for name, dir := range map[string]string{"config": ConfigDir(), "cache": CacheDir()} {
		if filepath.Base(dir) != Prefix() {
			t.Errorf("%s dir %q does not end in %q", name, dir, Prefix())
		}
	}

	if got := EnvPrefix(); got == "" || strings.ToUpper(got) != got {
		t.Errorf("EnvPrefix() = %q", got)
	}
}

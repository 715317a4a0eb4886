package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// Prefix returns the identifier used to name the configuration and cache
// directories and to prefix environment variables.
//
// It is the base name of the executable without extension, except that
// "__debug_bin" builds (dlv) map to [Name] and leading dots are removed.
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(func() string { return prefix(executable()) })

// EnvPrefix returns the prefix of environment variables that set flags.
// The variable for --max-depth is EnvPrefix()+"_MAX_DEPTH".
func EnvPrefix() string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(Prefix()))
}

var (
	debugBin   = regexp.MustCompile(`^__debug_bin\d*$`)
	leadingDot = regexp.MustCompile(`^\.+`)
)

func executable() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	return os.Args[0]
}

func prefix(path string) string {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	id = debugBin.ReplaceAllString(id, Name)
	id = leadingDot.ReplaceAllString(id, "")

	if id == "" || id == "." {
		return Name
	}

	return id
}

// ConfigDir returns the directory holding the configuration file.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// CacheDir returns the directory for transient files such as the REPL
// history and profiles.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// userDir resolves base, falling back to home/fallback and then to the
// working directory.
func userDir(base func() (string, error), fallback string) string {
	dir, err := base()
	if err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			dir = filepath.Join(home, fallback)
		} else if wd, werr := os.Getwd(); werr == nil {
			dir = wd
		} else {
			dir = "."
		}
	}

	return filepath.Join(dir, Prefix())
}

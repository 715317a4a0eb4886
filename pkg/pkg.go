// Package pkg holds the identity of the pyplay project and the locations of
// its per-user files.
package pkg

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var version string

// Version returns the semantic version embedded at build time.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the command name. It also names the configuration and cache
	// directories and, upper-cased, prefixes environment variables.
	Name = "pyplay"
	// Description is the one-line summary shown in help output.
	Description = "Run, check and explore programs in a small Python-like teaching language"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	Name  string
	Email string
}

// Author lists the primary author(s) of the project.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}

//go:build pprof

package profile

import "github.com/pkg/profile"

// option adds profile settings to a session under construction.
type option func([]func(*profile.Profile)) []func(*profile.Profile)

func apply(opts ...option) []func(*profile.Profile) {
	var settings []func(*profile.Profile)

	for _, opt := range opts {
		settings = opt(settings)
	}

	return settings
}

func withPath(p string) option {
	return func(s []func(*profile.Profile)) []func(*profile.Profile) {
		if p != "" {
			s = append(s, profile.ProfilePath(p))
		}

		return s
	}
}

func withQuiet(v bool) option {
	return func(s []func(*profile.Profile)) []func(*profile.Profile) {
		if v {
			s = append(s, profile.Quiet)
		}

		return s
	}
}

// withoutShutdownHook leaves signal handling to the command's context.
func withoutShutdownHook() option {
	return func(s []func(*profile.Profile)) []func(*profile.Profile) {
		return append(s, profile.NoShutdownHook)
	}
}

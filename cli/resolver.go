package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/pyplay/cli/cmd"
)

// loadConfig is a [kong.ConfigurationLoader] that reads a YAML configuration
// file:
//
//	log-level: debug
//	max_iterations: 1000
//	log:
//	  format: json
//	run:
//	  scope: lexical
//
// Keys name flags with hyphens or underscores. Nested mappings flatten by
// joining keys with hyphens, so the "log" mapping above sets --log-format
// and the "run" mapping sets --scope for the run command only. Lists set
// repeatable flags. Command-line flags and environment variables override
// file values.
func loadConfig(r io.Reader) (kong.Resolver, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, cmd.ErrReadConfig.Wrap(err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, cmd.ErrReadConfig.Wrap(err)
	}

	c := make(config)
	c.flatten("", doc)

	return c, nil
}

// config implements [kong.Resolver] over flattened YAML keys. Values are
// kept as strings, the form kong's mappers parse.
type config map[string]string

func (c config) flatten(prefix string, m map[string]any) {
	for k, v := range m {
		key := flagKey(k)
		if prefix != "" {
			key = prefix + "-" + key
		}

		switch v := v.(type) {
		case nil:
		case map[string]any:
			c.flatten(key, v)
		case []any:
			items := make([]string, len(v))
			for i, item := range v {
				items[i] = fmt.Sprint(item)
			}

			c[key] = strings.Join(items, ",")
		default:
			c[key] = fmt.Sprint(v)
		}
	}
}

func flagKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver]. A key scoped to the command being
// resolved takes precedence over a top-level key.
func (c config) Resolve(_ *kong.Context, parent *kong.Path, flag *kong.Flag) (any, error) {
	name := flagKey(flag.Name)

	if parent != nil && parent.Command != nil {
		if v, ok := c[flagKey(parent.Command.Name)+"-"+name]; ok {
			return v, nil
		}
	}

	if v, ok := c[name]; ok {
		return v, nil
	}

	return nil, nil //nolint:nilnil
}

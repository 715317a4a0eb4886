package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/pyplay/log"
	"github.com/ardnew/pyplay/profile"
)

// defaultConfigIndent is the indent width of the generated configuration.
const defaultConfigIndent = 2

// skipFlags are never written to the configuration file.
var skipFlags = []string{"help", "version", "force", profile.Tag}

// Init writes a configuration file holding the current flag values.
type Init struct {
	Force bool `help:"Overwrite existing configuration file" short:"f"`
}

// Run executes the init command.
func (i *Init) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	ktx := kongContextFrom(ctx)
	if ktx == nil {
		panic("internal error: kong context undefined")
	}

	confPath, ok := ktx.Model.Vars()[ConfigIdentifier]
	if !ok {
		panic("internal error: config path undefined")
	}

	if _, err := os.Stat(confPath); err == nil && !i.Force {
		return ErrWriteConfig.
			With(slog.String("file", confPath)).
			Wrap(ErrFileExists)
	}

	data, err := yaml.MarshalContext(ctx, configValues(ktx), yaml.Indent(defaultConfigIndent))
	if err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	if err := os.WriteFile(confPath, data, 0o600); err != nil {
		return ErrWriteConfig.With(slog.String("file", confPath)).Wrap(err)
	}

	log.DebugContext(ctx, "initialized configuration file",
		slog.String("path", confPath),
		slog.Int("bytes", len(data)),
	)

	fmt.Fprintln(stdout(ctx), confPath)

	return nil
}

// configValues collects flag values keyed by flag name. Application flags
// carry their parsed values; command flags carry their defaults. A flag
// shared by several commands is written once.
func configValues(ktx *kong.Context) map[string]any {
	values := make(map[string]any)

	for _, flag := range ktx.Model.Flags {
		if skipFlag(flag) {
			continue
		}

		if v, ok := scalar(ktx.FlagValue(flag)); ok {
			values[flag.Name] = v
		}
	}

	var walk func(nodes []*kong.Node)

	walk = func(nodes []*kong.Node) {
		for _, node := range nodes {
			for _, flag := range node.Flags {
				if skipFlag(flag) || flag.Default == "" {
					continue
				}

				if _, dup := values[flag.Name]; !dup {
					values[flag.Name] = flag.Default
				}
			}

			walk(node.Children)
		}
	}

	walk(ktx.Model.Children)

	return values
}

func skipFlag(flag *kong.Flag) bool {
	if flag.Hidden {
		return true
	}

	for _, prefix := range skipFlags {
		if strings.HasPrefix(flag.Name, prefix) {
			return true
		}
	}

	return false
}

// scalar converts a flag value to a YAML scalar. Empty strings and slices
// are omitted.
func scalar(v any) (any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), true

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true

	case reflect.Float32, reflect.Float64:
		return rv.Float(), true

	case reflect.String:
		if rv.Len() == 0 {
			return nil, false
		}

		return rv.String(), true

	case reflect.Slice:
		if rv.Len() == 0 {
			return nil, false
		}

		items := make([]string, rv.Len())
		for i := range items {
			items[i] = fmt.Sprint(rv.Index(i).Interface())
		}

		return items, true

	default:
		return fmt.Sprint(v), true
	}
}

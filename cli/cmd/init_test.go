package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
)

type initCLI struct {
	Level string `default:"warn" name:"log-level"`
	Quiet bool   `name:"quiet"`

	Init Init `cmd:""`
	Run  Run  `cmd:""`
}

func TestInit(t *testing.T) {
	tests := []struct {
		name    string
		force   bool
		exists  bool
		wantErr error
	}{
		{name: "create"},
		{name: "overwrite with force", force: true, exists: true},
		{name: "exists without force", exists: true, wantErr: ErrFileExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			confPath := filepath.Join(t.TempDir(), "config.yaml")

			if tt.exists {
				if err := os.WriteFile(confPath, []byte("old: true\n"), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			var (
				cli initCLI
				out strings.Builder
			)

			parser, err := kong.New(&cli,
				kong.Vars{ConfigIdentifier: confPath},
				kong.Writers(&out, &out),
			)
			if err != nil {
				t.Fatal(err)
			}

			args := []string{"--log-level=debug", "init"}
			if tt.force {
				args = append(args, "--force")
			}

			ktx, err := parser.Parse(args)
			if err != nil {
				t.Fatal(err)
			}

			err = cli.Init.Run(WithContext(t.Context(), ktx))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}

			data, err := os.ReadFile(confPath)
			if err != nil {
				t.Fatal(err)
			}

			if tt.wantErr != nil {
				if string(data) != "old: true\n" {
					t.Errorf("existing file modified: %q", data)
				}

				return
			}

			var conf map[string]any
			if err := yaml.Unmarshal(data, &conf); err != nil {
				t.Fatalf("config is not YAML: %v\n%s", err, data)
			}

			if conf["log-level"] != "debug" {
				t.Errorf("log-level = %v", conf["log-level"])
			}

			if fmt.Sprint(conf["max-iterations"]) != "50000" || conf["scope"] != "copy" {
				t.Errorf("command defaults = %v", conf)
			}

			for _, skipped := range []string{"help", "force"} {
				if _, ok := conf[skipped]; ok {
					t.Errorf("config contains %q", skipped)
				}
			}

			if strings.TrimSpace(out.String()) != confPath {
				t.Errorf("printed %q, want %q", out.String(), confPath)
			}
		})
	}
}

func TestScalar(t *testing.T) {
	tests := []struct {
		in   any
		want any
		ok   bool
	}{
		{nil, nil, false},
		{true, true, true},
		{int(3), int64(3), true},
		{uint8(4), uint64(4), true},
		{1.5, 1.5, true},
		{"", nil, false},
		{"x", "x", true},
		{[]string{}, nil, false},
	}

	for _, tt := range tests {
		got, ok := scalar(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("scalar(%#v) = %#v, %v, want %#v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}

	if got, ok := scalar([]int{1, 2}); !ok || strings.Join(got.([]string), ",") != "1,2" {
		t.Errorf("scalar(slice) = %#v, %v", got, ok)
	}
}

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/gastownhall/presenter-remote/internal/config"
)

func TestConfigCommandPrintsDefaults(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("config command: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(out.Bytes(), &cfg); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.String())
	}
	if cfg.Listen != config.Default().Listen {
		t.Fatalf("listen = %q, want %q", cfg.Listen, config.Default().Listen)
	}
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: 0.0.0.0:1\ncontent_file: /from/file.toml\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	var flags serveFlags
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", path, "--listen", "127.0.0.1:2"}); err != nil {
		t.Fatal(err)
	}
	flags.configPath, _ = cmd.Flags().GetString("config")
	flags.listen, _ = cmd.Flags().GetString("listen")

	cfg, err := loadConfig(cmd, flags)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Listen != "127.0.0.1:2" {
		t.Fatalf("listen = %q, want flag value", cfg.Listen)
	}
	if cfg.ContentFile != "/from/file.toml" {
		t.Fatalf("content_file = %q, want file value", cfg.ContentFile)
	}
}

func TestRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("meter:\n  source: loud\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	root := newRootCmd()
	root.SetArgs([]string{"--config", path})
	err := root.ExecuteContext(context.Background())
	if err == nil || !strings.Contains(err.Error(), "meter.source") {
		t.Fatalf("error = %v, want meter.source error", err)
	}
}

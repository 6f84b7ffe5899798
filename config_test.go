package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
polling_interval: 2.5
user: alice
squeue:
  options:
    "-p": gpu
    "-M": cluster2
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Interval() != 2500*time.Millisecond {
		t.Fatalf("interval = %v, want 2.5s", cfg.Interval())
	}
	if cfg.User != "alice" {
		t.Fatalf("user = %q", cfg.User)
	}

	// Explicit options in file order, defaults filled in around them.
	want := []string{"-p", "gpu", "-M", "cluster2"}
	if diff := cmp.Diff(want, cfg.Squeue.Options.Args(nil)); diff != "" {
		t.Fatalf("squeue options (-want +got):\n%s", diff)
	}
	if cfg.Squeue.Command != "squeue" {
		t.Fatalf("squeue command default missing: %q", cfg.Squeue.Command)
	}
	if cfg.Squeue.Format == nil || cfg.Squeue.Format.Len() != 1 {
		t.Fatal("squeue format default missing")
	}
	if cfg.CancelCommand != "scancel" {
		t.Fatalf("cancel command default missing: %q", cfg.CancelCommand)
	}
	if cfg.Sinfo.Command != "sinfo" || cfg.Detail.Command != "squeue" {
		t.Fatalf("query defaults missing: %q / %q", cfg.Sinfo.Command, cfg.Detail.Command)
	}
	if cfg.TailLines != defaultTailLines {
		t.Fatalf("tail_lines default missing: %d", cfg.TailLines)
	}
}

func TestLoadConfigExplicitMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("an explicitly named missing file must be an error")
	}
}

func TestLoadConfigRejectsNegativeInterval(t *testing.T) {
	path := writeConfig(t, "polling_interval: -1\n")
	_, err := LoadConfig(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadConfigRejectsNegativeTailLines(t *testing.T) {
	path := writeConfig(t, "tail_lines: -5\n")
	_, err := LoadConfig(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestLoadConfigZeroIntervalAllowed(t *testing.T) {
	// Zero means poll as fast as the queries return.
	path := writeConfig(t, "polling_interval: 0\n")
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Interval() != 0 {
		t.Fatalf("interval = %v, want 0", cfg.Interval())
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "squeue: [not, a, mapping\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestDefaultConfigBuildsInspector(t *testing.T) {
	cfg := DefaultConfig()
	cfg.User = "alice"
	if _, err := NewInspector(cfg, &fakeRunner{}, nil); err != nil {
		t.Fatalf("default config must produce a valid inspector: %v", err)
	}
}

func TestConfigFormatOverride(t *testing.T) {
	path := writeConfig(t, `
squeue:
  format:
    "-o": "%18i %30j %16u"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	flag, _ := cfg.Squeue.Format.Get("-o")
	if flag != "%18i %30j %16u" {
		t.Fatalf("format override lost: %q", flag)
	}
	if cfg.Squeue.Format.Len() != 1 {
		t.Fatalf("override must replace the default, got %d entries", cfg.Squeue.Format.Len())
	}
}

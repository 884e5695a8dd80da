package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if !strings.Contains(cfg.Render.OutputNameTemplate, "{{ .Name }}") {
		t.Errorf("output name template was expanded: %q", cfg.Render.OutputNameTemplate)
	}
	if cfg.Expressions.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", cfg.Expressions.Timeout)
	}
	if diff := cmp.Diff([]string{"fmt", "math", "strconv", "strings", "unicode"}, cfg.Expressions.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" || cfg.Logging.FileLogger.Level != "none" {
		t.Errorf("unexpected logging defaults %+v", cfg.Logging)
	}
	if cfg.Render.Compact || cfg.Render.Strict || cfg.Render.Prefix != "" {
		t.Errorf("unexpected render defaults %+v", cfg.Render)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `version: 1
render:
  prefix: ui
  compact: true
  strict: true
  output_name_template: '{{ .Name | lower }}'
expressions:
  timeout: 500ms
  packages: [strings]
logging:
  console:
    level: debug
  file:
    level: debug
    destination: `+filepath.Join(dir, "logs", "test.log")+`
    mode: append
reporting:
  destination: `+filepath.Join(dir, "report.zip")+`
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	want := RenderConfig{
		Prefix:                "ui",
		Compact:               true,
		Strict:                true,
		OutputNameTemplate:    "{{ .Name | lower }}",
		FileNameTransliterate: true,
	}
	if diff := cmp.Diff(want, cfg.Render); diff != "" {
		t.Errorf("render mismatch (-want +got):\n%s", diff)
	}
	if cfg.Expressions.Timeout != 500*time.Millisecond {
		t.Errorf("Timeout = %v", cfg.Expressions.Timeout)
	}
	if diff := cmp.Diff([]string{"strings"}, cfg.Expressions.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("Mode = %q", cfg.Logging.FileLogger.Mode)
	}
	// sanitizer makes sure log directory exists
	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Errorf("log directory was not created: %v", err)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nrender:\n  compact: true\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"version", "version: 2\n"},
		{"console level", "version: 1\nlogging:\n  console:\n    level: loud\n"},
		{"prefix", "version: 1\nrender:\n  prefix: ui.dark\n"},
		{"timeout", "version: 1\nexpressions:\n  timeout: soon\n"},
		{"empty package", "version: 1\nexpressions:\n  packages: [strings, '']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadConfiguration_NonExistentFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if !strings.Contains(string(data), "output_name_template") {
		t.Error("Prepare() lost render section")
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Render.Prefix = "ui"

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}

	back, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if diff := cmp.Diff(cfg, back); diff != "" {
		t.Errorf("dump/load mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanFileName(t *testing.T) {
	tests := map[string]string{
		"dark-theme": "dark-theme",
		"a/b":        "ab",
		"":           badFileName,
		"/":          badFileName,
	}
	for in, want := range tests {
		if got := CleanFileName(in); got != want {
			t.Errorf("CleanFileName(%q) = %q, want %q", in, got, want)
		}
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.validate(); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if cfg.QueueSize != 1000 {
		t.Errorf("QueueSize = %d, want 1000", cfg.QueueSize)
	}
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", cfg.BatchSize)
	}
	if len(cfg.Categories) == 0 {
		t.Fatal("Default() has no categories")
	}
	if got := cfg.Categories[0].Name; got != "Streaming" {
		t.Errorf("first category = %q, want %q", got, "Streaming")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error: %v", err)
	}
	if cfg.Interface != "en0" {
		t.Errorf("Interface = %q, want %q", cfg.Interface, "en0")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netscope.yaml")
	content := `
interface: eth0
queue_size: 50
dns:
  timeout: 500ms
categories:
  - name: Video
    keywords: [youtube]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Interface != "eth0" {
		t.Errorf("Interface = %q, want %q", cfg.Interface, "eth0")
	}
	if cfg.QueueSize != 50 {
		t.Errorf("QueueSize = %d, want 50", cfg.QueueSize)
	}
	if cfg.DNS.Timeout != "500ms" {
		t.Errorf("DNS.Timeout = %q, want %q", cfg.DNS.Timeout, "500ms")
	}
	// Keys absent from the file keep their defaults.
	if cfg.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want default 10", cfg.BatchSize)
	}
	if cfg.DBPath != "netscope.db" {
		t.Errorf("DBPath = %q, want default", cfg.DBPath)
	}
	// A categories block in the file replaces the whole table.
	if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "Video" {
		t.Errorf("Categories = %+v, want single Video entry", cfg.Categories)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad duration", "dns:\n  timeout: soon\n", "dns.timeout"},
		{"zero queue", "queue_size: 0\n", "queue_size"},
		{"negative batch", "batch_size: -1\n", "batch_size"},
		{"zero process cache", "process:\n  cache_size: 0\n", "process.cache_size"},
		{"unnamed category", "categories:\n  - keywords: [x]\n", "categories[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("Load() succeeded, want error")
	}
}

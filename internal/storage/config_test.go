package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadServerConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Format != "csv" || cfg.Storage.Delimiter != ";" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if len(cfg.Auth.Secret()) != 32 {
		t.Errorf("secret length = %d, want 32", len(cfg.Auth.Secret()))
	}
	if cfg.Auth.RequireToken {
		t.Error("RequireToken should default to false")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if !strings.Contains(string(data), "jwt_secret:") {
		t.Errorf("written config lacks jwt_secret:\n%s", data)
	}

	// A second load keeps the generated secret.
	again, err := LoadServerConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Auth.JWTSecret != cfg.Auth.JWTSecret {
		t.Error("secret regenerated on second load")
	}
}

func TestLoadServerConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	content := "storage:\n  format: jsonl\n  file: catalog/items.jsonl\n  history: true\n" +
		"rate_limits:\n  write_rate_per_min: 0\n" +
		"cors:\n  allowed_origins: [\"https://example.com\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Format != "jsonl" || !cfg.Storage.History {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if got, want := cfg.Storage.Path("/data"), filepath.Join("/data", "catalog", "items.jsonl"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	if cfg.RateLimits.WriteRatePerMin != 0 || cfg.RateLimits.ReadRatePerMin != 6000 {
		t.Errorf("rate limits = %+v", cfg.RateLimits)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 {
		t.Errorf("cors = %+v", cfg.CORS)
	}
}

func TestLoadServerConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "storage: [\n"},
		{"bad format", "storage:\n  format: xml\n"},
		{"long delimiter", "storage:\n  delimiter: \";;\"\n"},
		{"quote delimiter", "storage:\n  delimiter: '\"'\n"},
		{"negative body", "limits:\n  max_request_body_bytes: -1\n"},
		{"negative rate", "rate_limits:\n  read_rate_per_min: -5\n"},
		{"short secret", "auth:\n  jwt_secret: c2hvcnQ=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadServerConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStorageConfigPath(t *testing.T) {
	tests := []struct {
		cfg  StorageConfig
		want string
	}{
		{StorageConfig{Format: "csv"}, filepath.Join("d", "productos.csv")},
		{StorageConfig{Format: "jsonl"}, filepath.Join("d", "productos.jsonl")},
		{StorageConfig{}, filepath.Join("d", "productos.csv")},
		{StorageConfig{File: "x.txt"}, filepath.Join("d", "x.txt")},
	}
	for _, tt := range tests {
		if got := tt.cfg.Path("d"); got != tt.want {
			t.Errorf("Path(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
	abs := filepath.Join(t.TempDir(), "abs.csv")
	if got := (&StorageConfig{File: abs}).Path("d"); got != abs {
		t.Errorf("Path = %q, want %q", got, abs)
	}
}

func TestOpenProducts(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultServerConfig()
	table, err := OpenProducts(dir, &cfg.Storage)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := table.Path(), filepath.Join(dir, "productos.csv"); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	data, err := os.ReadFile(table.Path())
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "id;name;category;size;color;price;stock\n" {
		t.Errorf("file = %q", got)
	}
	if _, err := OpenProducts(dir, &StorageConfig{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

package main

import (
	"flag"
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestApplyEnv(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("http", "localhost:8080", "")
	dataDir := fs.String("data-dir", "./data", "")
	level := fs.String("log-level", "info", "")
	if err := fs.Parse([]string{"-http", ":9000"}); err != nil {
		t.Fatal(err)
	}
	env := map[string]string{
		"PRODUCTDB_HTTP":      ":1234",
		"PRODUCTDB_DATA_DIR":  "/srv/products",
		"PRODUCTDB_LOG_LEVEL": "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	if err := applyEnv(fs, lookup, "http", "data-dir", "log-level"); err != nil {
		t.Fatal(err)
	}
	if *addr != ":9000" {
		t.Errorf("http = %q, flag must win over env", *addr)
	}
	if *dataDir != "/srv/products" {
		t.Errorf("data-dir = %q", *dataDir)
	}
	if *level != "info" {
		t.Errorf("log-level = %q, empty env must be ignored", *level)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Duration("ttl", 0, "")
	lookup := func(string) (string, bool) { return "soon", true }
	if err := applyEnv(fs, lookup, "ttl"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetLevel(t *testing.T) {
	ll := &slog.LevelVar{}
	for name, want := range map[string]slog.Level{"debug": slog.LevelDebug, "info": slog.LevelInfo, "warn": slog.LevelWarn, "error": slog.LevelError} {
		if err := setLevel(ll, name); err != nil || ll.Level() != want {
			t.Errorf("setLevel(%q) = %v, level %v", name, err, ll.Level())
		}
	}
	if err := setLevel(ll, "verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestReplaceAttr(t *testing.T) {
	r := replaceAttr(true)
	tests := []struct {
		attr slog.Attr
		keep bool
	}{
		{slog.String("path", "/api/products"), true},
		{slog.String("country", ""), false},
		{slog.String("ip", "127.0.0.1"), false},
		{slog.String("ip", "203.0.113.9"), true},
		{slog.Int("s", 0), false},
		{slog.Int("s", 200), true},
		{slog.Bool("dirty", false), false},
		{slog.Duration("dur", 0), false},
		{slog.Time(slog.TimeKey, time.Now()), false},
	}
	for _, tt := range tests {
		got := r(nil, tt.attr)
		if kept := got.Key != ""; kept != tt.keep {
			t.Errorf("replaceAttr(%v) kept = %v, want %v", tt.attr, kept, tt.keep)
		}
	}
	if got := replaceAttr(false)(nil, slog.Time(slog.TimeKey, time.Now())); got.Key == "" {
		t.Error("time dropped outside systemd")
	}
}

func TestGetBuildInfo(t *testing.T) {
	version, goVersion, _, _ := getBuildInfo()
	if version == "" || goVersion == "" {
		t.Errorf("getBuildInfo() = %q, %q", version, goVersion)
	}
}

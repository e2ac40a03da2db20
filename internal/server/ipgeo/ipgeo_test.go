package ipgeo

import (
	"path/filepath"
	"testing"
)

func TestCountryCode(t *testing.T) {
	tests := []struct {
		ip   string
		want string
	}{
		{"127.0.0.1", "local"},
		{"::1", "local"},
		{"10.0.0.1", "local"},
		{"192.168.1.1", "local"},
		{"172.16.0.1", "local"},
		{"::ffff:10.1.2.3", "local"},
		{"0.0.0.0", "local"},
		{"169.254.1.1", "local"},
		{"fe80::1", "local"},
		{"100.64.0.1", "tailscale"},
		{"100.127.255.254", "tailscale"},
		{"100.128.0.0", ""},
		{"8.8.8.8", ""},
		{"not-an-ip", ""},
	}
	for _, c := range []*Checker{nil, {}} {
		for _, tt := range tests {
			if got := c.CountryCode(tt.ip); got != tt.want {
				t.Errorf("CountryCode(%q) = %q, want %q", tt.ip, got, tt.want)
			}
		}
		if err := c.Close(); err != nil {
			t.Errorf("Close() = %v", err)
		}
	}
}

func TestOpenMissing(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.mmdb")); err == nil {
		t.Fatal("expected error")
	}
}

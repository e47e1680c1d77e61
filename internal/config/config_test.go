// Package config tests validate config loading behavior.
package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadAppliesDefaults confirms defaults are applied on load.
func TestLoadAppliesDefaults(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "shareview.yaml")
	if err := os.WriteFile(p, []byte("share:\n  root: /srv/share\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HTTP.Port != 5180 {
		t.Fatalf("expected default http.port 5180, got %d", c.HTTP.Port)
	}
	if c.Session.TTLHours != 24 {
		t.Fatalf("expected default session.ttl_hours 24, got %d", c.Session.TTLHours)
	}
	if c.Limits.Auth.Max != 10 || c.Limits.Auth.WindowSeconds != 900 {
		t.Fatalf("unexpected auth limit defaults: %+v", c.Limits.Auth)
	}
	if c.Limits.API.Max != 100 || c.Limits.Download.Max != 30 {
		t.Fatalf("unexpected limit defaults: %+v", c.Limits)
	}
	if c.DataDir == "" || c.DB.Path == "" {
		t.Fatalf("expected data_dir and db.path defaults")
	}
}

// TestLoadRequiresShareRoot rejects a config without a served root.
func TestLoadRequiresShareRoot(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "shareview.yaml")
	if err := os.WriteFile(p, []byte("log:\n  level: info\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for missing share.root")
	}
}

// TestLoadRejectsHalfTLSPair requires cert and key together.
func TestLoadRejectsHalfTLSPair(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "shareview.yaml")
	body := "share:\n  root: /srv/share\nhttp:\n  tls:\n    cert_path: /etc/tls.crt\n"
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for cert without key")
	}
}

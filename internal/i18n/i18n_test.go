// Package i18n tests cover catalog lookup and fallback.
package i18n

import "testing"

// TestLookupFallsBackToDefault falls back en for unknown tags and ids.
func TestLookupFallsBackToDefault(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := c.Lookup("de", "login.title"); got != "Anmelden" {
		t.Fatalf("de login.title = %q", got)
	}
	if got := c.Lookup("fr", "login.title"); got != "Sign in" {
		t.Fatalf("unknown lang should fall back: %q", got)
	}
	if got := c.Lookup("en", "no.such.id"); got != "no.such.id" {
		t.Fatalf("unknown id should echo: %q", got)
	}
	if got := c.Lookup("de-DE", "login.title"); got != "Anmelden" {
		t.Fatalf("region tag should select base catalog: %q", got)
	}
}

// TestMessagesMerged fills gaps from the default catalog.
func TestMessagesMerged(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := c.Messages("de")
	if m["login.title"] != "Anmelden" {
		t.Fatalf("expected de message, got %q", m["login.title"])
	}
	if len(m) < len(c.Messages("en")) {
		t.Fatalf("expected merged catalog to cover all default ids")
	}
	if !c.Has("de") || c.Has("xx") {
		t.Fatalf("Has misreports availability")
	}
}

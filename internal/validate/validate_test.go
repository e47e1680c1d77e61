package validate

import "testing"

func TestUsername(t *testing.T) {
	for _, s := range []string{"admin", "a", "user.name-1", "A_b"} {
		if err := Username(s); err != nil {
			t.Errorf("Username(%q): unexpected error %v", s, err)
		}
	}
	for _, s := range []string{"", ".leading", "has space", "ü", "x/..", string(make([]byte, 70))} {
		if err := Username(s); err == nil {
			t.Errorf("Username(%q): expected error", s)
		}
	}
}

func TestEmailOptional(t *testing.T) {
	if err := Email(""); err != nil {
		t.Errorf("empty email should pass: %v", err)
	}
	if err := Email("a@b.co"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	for _, s := range []string{"nope", "a@b", "a b@c.de"} {
		if err := Email(s); err == nil {
			t.Errorf("Email(%q): expected error", s)
		}
	}
}

func TestRootPath(t *testing.T) {
	if _, err := RootPath("/"); err == nil {
		t.Errorf("filesystem root must be rejected")
	}
	if _, err := RootPath("relative/dir"); err == nil {
		t.Errorf("relative path must be rejected")
	}
	got, err := RootPath("/srv/share/")
	if err != nil {
		t.Fatalf("RootPath: %v", err)
	}
	if got != "/srv/share" {
		t.Errorf("got %q, want trailing separator trimmed", got)
	}
}

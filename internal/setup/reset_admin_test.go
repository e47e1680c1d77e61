package setup

import (
	"context"
	"path/filepath"
	"testing"

	"shareview/internal/auth"
	"shareview/internal/db"
)

func openStore(t *testing.T) (*db.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	d, err := db.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d, path
}

func TestResetAdminBeforeSetup(t *testing.T) {
	_, path := openStore(t)
	err := ResetAdmin(context.Background(), ResetAdminOptions{DBPath: path, AdminPassword: "pw"})
	if err == nil {
		t.Fatalf("expected error on uninitialized store")
	}
}

func TestResetAdminRecoversAccount(t *testing.T) {
	ctx := context.Background()
	d, path := openStore(t)

	hash, err := auth.HashPassword("old", auth.DefaultParams())
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	id, err := d.CompleteSetup(ctx, "admin", "", hash)
	if err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}
	// Simulate the lockout: deactivated admin.
	if err := d.DeactivateUser(ctx, id); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}

	if err := ResetAdmin(ctx, ResetAdminOptions{DBPath: path, AdminPassword: "fresh"}); err != nil {
		t.Fatalf("ResetAdmin: %v", err)
	}

	u, ok, err := d.GetUserByUsername(ctx, "admin")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if !u.Active || !u.Role.IsAdmin() {
		t.Fatalf("account not recovered: active=%v role=%v", u.Active, u.Role)
	}
	if match, err := auth.VerifyPassword("fresh", u.PassHash); err != nil || !match {
		t.Fatalf("new password rejected: match=%v err=%v", match, err)
	}
	if match, _ := auth.VerifyPassword("old", u.PassHash); match {
		t.Fatalf("old password still accepted")
	}
}

func TestResetAdminPromotesNamedUser(t *testing.T) {
	ctx := context.Background()
	d, path := openStore(t)

	hash, _ := auth.HashPassword("x", auth.DefaultParams())
	if _, err := d.CompleteSetup(ctx, "admin", "", hash); err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}
	if _, err := d.CreateUser(ctx, "backup", "", hash, auth.RoleUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := ResetAdmin(ctx, ResetAdminOptions{DBPath: path, Username: "backup", AdminPassword: "pw"}); err != nil {
		t.Fatalf("ResetAdmin: %v", err)
	}
	u, ok, err := d.GetUserByUsername(ctx, "backup")
	if err != nil || !ok {
		t.Fatalf("lookup: ok=%v err=%v", ok, err)
	}
	if !u.Role.IsAdmin() {
		t.Fatalf("expected promotion to admin, got %v", u.Role)
	}

	// Two admins now: the default target is ambiguous.
	if err := ResetAdmin(ctx, ResetAdminOptions{DBPath: path, AdminPassword: "pw"}); err == nil {
		t.Fatalf("expected ambiguity error with two admins")
	}
}

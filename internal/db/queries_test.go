// Package db tests verify store behavior around users, sessions, and setup.
package db

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shareview/internal/auth"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	d, err := Open(ctx, t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// TestUserRoundTrip ensures role and active survive storage.
func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	id, err := d.CreateUser(ctx, "alice", "alice@example.com", "hash", auth.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, ok, err := d.GetUserByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("GetUserByID: ok=%v err=%v", ok, err)
	}
	if u.Role != auth.RoleUser || !u.Active || u.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if _, err := d.CreateUser(ctx, "alice", "", "hash2", auth.RoleUser); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

// TestDeactivateUserKeepsRow confirms deletion is a soft delete and drops
// live sessions for the account.
func TestDeactivateUserKeepsRow(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	id, err := d.CreateUser(ctx, "bob", "", "hash", auth.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, _, _ := d.GetUserByID(ctx, id)
	if err := d.CreateSession(ctx, "tok-bob", u, "en", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := d.DeactivateUser(ctx, id); err != nil {
		t.Fatalf("DeactivateUser: %v", err)
	}
	u, ok, err := d.GetUserByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("row should survive soft delete: ok=%v err=%v", ok, err)
	}
	if u.Active {
		t.Fatalf("expected inactive user")
	}
	if _, ok, _ := d.GetSession(ctx, "tok-bob"); ok {
		t.Fatalf("expected sessions to be removed on deactivation")
	}
}

// TestUpdateUserDeactivationClearsSessions confirms that flipping active
// off through a field update ends live sessions, same as soft delete.
func TestUpdateUserDeactivationClearsSessions(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	id, err := d.CreateUser(ctx, "carol", "", "hash", auth.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, _, _ := d.GetUserByID(ctx, id)
	if err := d.CreateSession(ctx, "tok-carol", u, "en", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	// Updating other fields with active still on keeps the session alive.
	if err := d.UpdateUser(ctx, id, "carol@example.com", auth.RoleUser, true); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, ok, _ := d.GetSession(ctx, "tok-carol"); !ok {
		t.Fatalf("session should survive an active update")
	}

	if err := d.UpdateUser(ctx, id, "carol@example.com", auth.RoleUser, false); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if _, ok, _ := d.GetSession(ctx, "tok-carol"); ok {
		t.Fatalf("expected sessions to be removed on deactivation")
	}
}

// TestCompleteSetupLifecycle walks the setup state machine through the store.
func TestCompleteSetupLifecycle(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	st, err := d.GetSetupState(ctx)
	if err != nil {
		t.Fatalf("GetSetupState: %v", err)
	}
	if st.Operational() {
		t.Fatalf("fresh store should require setup")
	}

	id, err := d.CompleteSetup(ctx, "admin", "root@example.com", "hash")
	if err != nil {
		t.Fatalf("CompleteSetup: %v", err)
	}
	u, ok, err := d.GetUserByID(ctx, id)
	if err != nil || !ok {
		t.Fatalf("admin row missing: ok=%v err=%v", ok, err)
	}
	if u.Role != auth.RoleAdmin || !u.Active {
		t.Fatalf("expected active admin, got %+v", u)
	}

	st, err = d.GetSetupState(ctx)
	if err != nil {
		t.Fatalf("GetSetupState: %v", err)
	}
	if !st.CompletedFlag || !st.ActiveAdmin || !st.Operational() {
		t.Fatalf("expected operational state, got %+v", st)
	}

	// Repeating setup is rejected no matter how often it is attempted.
	for i := 0; i < 3; i++ {
		if _, err := d.CompleteSetup(ctx, "other", "", "hash"); !errors.Is(err, ErrSetupCompleted) {
			t.Fatalf("attempt %d: expected ErrSetupCompleted, got %v", i, err)
		}
	}

	// The flag write is attributed to the admin account.
	settings, err := d.ListSettings(ctx)
	if err != nil {
		t.Fatalf("ListSettings: %v", err)
	}
	if settings["setup_completed"] != "true" {
		t.Fatalf("completion flag missing: %v", settings)
	}
}

// TestCompleteSetupRace allows at most one concurrent setup to succeed.
func TestCompleteSetupRace(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = d.CompleteSetup(ctx, "admin", "", "hash")
		}(i)
	}
	wg.Wait()

	okCount := 0
	for _, err := range errs {
		if err == nil {
			okCount++
			continue
		}
		if !errors.Is(err, ErrSetupCompleted) && !errors.Is(err, ErrUsernameTaken) {
			t.Fatalf("unexpected race outcome: %v", err)
		}
	}
	if okCount != 1 {
		t.Fatalf("expected exactly one winner, got %d", okCount)
	}
	st, err := d.GetSetupState(ctx)
	if err != nil || !st.Operational() {
		t.Fatalf("expected operational after race: st=%+v err=%v", st, err)
	}
}

// TestSessionExpiry covers the expiry filter, sliding refresh, and sweeping.
func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	d := openTestDB(t)

	id, err := d.CreateUser(ctx, "carol", "", "hash", auth.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u, _, _ := d.GetUserByID(ctx, id)

	if err := d.CreateSession(ctx, "tok-live", u, "en", time.Hour); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := d.CreateSession(ctx, "tok-dead", u, "", -time.Minute); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if _, ok, _ := d.GetSession(ctx, "tok-dead"); ok {
		t.Fatalf("expired session should not be returned")
	}
	s, ok, err := d.GetSession(ctx, "tok-live")
	if err != nil || !ok {
		t.Fatalf("GetSession: ok=%v err=%v", ok, err)
	}
	if s.UserID != id || s.Role != auth.RoleUser || s.Lang != "en" {
		t.Fatalf("unexpected session: %+v", s)
	}

	before := s.ExpiresAt
	if err := d.TouchSession(ctx, "tok-live", 48*time.Hour); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}
	s, _, _ = d.GetSession(ctx, "tok-live")
	if s.ExpiresAt <= before {
		t.Fatalf("expected extended expiry")
	}

	n, err := d.DeleteExpiredSessions(ctx, time.Now().Unix())
	if err != nil {
		t.Fatalf("DeleteExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept session, got %d", n)
	}
}

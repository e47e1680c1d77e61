// Package db defines persistence models for shareview.
package db

import "shareview/internal/auth"

// User represents an account. Accounts are never hard-deleted; deletion
// clears Active.
type User struct {
	ID        int64
	Username  string
	Email     string
	PassHash  string
	Role      auth.Role
	Active    bool
	CreatedAt int64
	UpdatedAt int64
}

// Session represents a cookie-carried authentication session.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Role      auth.Role
	Lang      string
	CreatedAt int64
	ExpiresAt int64
}

// SetupState is the derived two-condition setup snapshot.
// The system is operational only when both fields hold.
type SetupState struct {
	CompletedFlag bool
	ActiveAdmin   bool
}

// Operational reports whether routing should leave the setup flow.
func (s SetupState) Operational() bool {
	return s.CompletedFlag && s.ActiveAdmin
}

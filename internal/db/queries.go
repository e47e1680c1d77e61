// Package db contains database query helpers for shareview.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareview/internal/auth"
)

const setupCompletedKey = "setup_completed"

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// GetSetting fetches a single settings key.
// The boolean indicates whether the key exists.
func (d *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err == nil {
		return v, true, nil
	}
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	return "", false, err
}

// SetSetting upserts a settings key/value pair, attributed to updatedBy.
func (d *DB) SetSetting(ctx context.Context, key, value string, updatedBy int64) error {
	if key == "" {
		return errors.New("settings key is required")
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO settings(key, value, updated_by, updated_at) VALUES(?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_by=excluded.updated_by, updated_at=excluded.updated_at
`, key, value, updatedBy, nowUnix())
	return err
}

// ListSettings returns all settings keys and values.
func (d *DB) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

// GetSetupState reads both setup conditions in one statement so the snapshot
// is consistent relative to a concurrent CompleteSetup transaction.
func (d *DB) GetSetupState(ctx context.Context) (SetupState, error) {
	var flag, admins int
	err := d.sql.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM settings WHERE key = ? AND value = 'true'),
  (SELECT COUNT(*) FROM users WHERE role = 'admin' AND active = 1)
`, setupCompletedKey).Scan(&flag, &admins)
	if err != nil {
		return SetupState{}, err
	}
	return SetupState{CompletedFlag: flag > 0, ActiveAdmin: admins > 0}, nil
}

// CompleteSetup creates the first administrator and sets the completion flag
// in a single transaction. The flag write is attributed to the new account.
// It fails with ErrSetupCompleted once the system is operational, and with
// ErrUsernameTaken when the username collides with an existing account
// (including an admin left behind by an interrupted earlier attempt).
func (d *DB) CompleteSetup(ctx context.Context, username, email, passHash string) (int64, error) {
	if username == "" || passHash == "" {
		return 0, errors.New("username and password hash are required")
	}

	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var flag, admins int
	if err := tx.QueryRowContext(ctx, `
SELECT
  (SELECT COUNT(*) FROM settings WHERE key = ? AND value = 'true'),
  (SELECT COUNT(*) FROM users WHERE role = 'admin' AND active = 1)
`, setupCompletedKey).Scan(&flag, &admins); err != nil {
		return 0, err
	}
	if flag > 0 && admins > 0 {
		return 0, ErrSetupCompleted
	}

	now := nowUnix()
	res, err := tx.ExecContext(ctx, `
INSERT INTO users(username, email, password_hash, role, active, created_at, updated_at)
VALUES(?, ?, ?, 'admin', 1, ?, ?)
`, username, email, passHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO settings(key, value, updated_by, updated_at) VALUES(?, 'true', ?, ?)
ON CONFLICT(key) DO UPDATE SET value='true', updated_by=excluded.updated_by, updated_at=excluded.updated_at
`, setupCompletedKey, id, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// CreateUser inserts a new account and returns its database ID.
func (d *DB) CreateUser(ctx context.Context, username, email, passHash string, role auth.Role) (int64, error) {
	if username == "" || passHash == "" {
		return 0, errors.New("username and password hash are required")
	}
	if _, err := auth.ParseRole(role.String()); err != nil {
		return 0, err
	}
	now := nowUnix()
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO users(username, email, password_hash, role, active, created_at, updated_at)
VALUES(?, ?, ?, ?, 1, ?, ?)
`, username, email, passHash, role.String(), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUsernameTaken
		}
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateUser updates mutable account fields. Deactivation removes the
// account's sessions, same as soft-delete, so access ends immediately
// instead of riding out a sliding session window.
func (d *DB) UpdateUser(ctx context.Context, id int64, email string, role auth.Role, active bool) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if _, err := auth.ParseRole(role.String()); err != nil {
		return err
	}
	res, err := d.sql.ExecContext(ctx, `
UPDATE users SET email=?, role=?, active=?, updated_at=? WHERE id=?
`, email, role.String(), boolToInt(active), nowUnix(), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	if !active {
		_, err = d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, id)
	}
	return err
}

// SetUserPasswordHash updates an account's password hash.
func (d *DB) SetUserPasswordHash(ctx context.Context, id int64, passHash string) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if passHash == "" {
		return errors.New("password hash is required")
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE users SET password_hash=?, updated_at=? WHERE id=?`, passHash, nowUnix(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// DeactivateUser soft-deletes an account. Its sessions are removed so the
// deactivation takes effect immediately.
func (d *DB) DeactivateUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	res, err := d.sql.ExecContext(ctx, `UPDATE users SET active=0, updated_at=? WHERE id=?`, nowUnix(), id)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE user_id=?`, id)
	return err
}

const userColumns = `id, username, email, password_hash, role, active, created_at, updated_at`

func scanUser(scan func(...any) error) (*User, error) {
	var u User
	var role string
	var active int
	if err := scan(&u.ID, &u.Username, &u.Email, &u.PassHash, &role, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("corrupt user row %d: %w", u.ID, err)
	}
	u.Role = r
	u.Active = active != 0
	return &u, nil
}

// GetUserByUsername looks up an account by username.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username)
	u, err := scanUser(row.Scan)
	if err == nil {
		return u, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

// GetUserByID looks up an account by ID.
func (d *DB) GetUserByID(ctx context.Context, id int64) (*User, bool, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id)
	u, err := scanUser(row.Scan)
	if err == nil {
		return u, true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	return nil, false, err
}

// ListUsers returns all accounts sorted by username, inactive ones included.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// CreateSession inserts a new session token with expiration.
func (d *DB) CreateSession(ctx context.Context, token string, u *User, lang string, ttl time.Duration) error {
	if token == "" || u == nil || u.ID <= 0 {
		return errors.New("invalid session")
	}
	now := nowUnix()
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO sessions(token, user_id, username, role, lang, created_at, expires_at)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, token, u.ID, u.Username, u.Role.String(), lang, now, now+int64(ttl.Seconds()))
	return err
}

// GetSession looks up a session by token. Expired sessions are not returned.
func (d *DB) GetSession(ctx context.Context, token string) (*Session, bool, error) {
	var s Session
	var role string
	err := d.sql.QueryRowContext(ctx, `
SELECT token, user_id, username, role, lang, created_at, expires_at
FROM sessions WHERE token=? AND expires_at > ?
`, token, nowUnix()).Scan(&s.Token, &s.UserID, &s.Username, &role, &s.Lang, &s.CreatedAt, &s.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt session row: %w", err)
	}
	s.Role = r
	return &s, true, nil
}

// TouchSession slides a session's expiry forward, keeping the cookie
// lifetime a 24h window from last use.
func (d *DB) TouchSession(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE sessions SET expires_at=? WHERE token=?`, nowUnix()+int64(ttl.Seconds()), token)
	return err
}

// SetSessionLang stores a session's language preference.
func (d *DB) SetSessionLang(ctx context.Context, token, lang string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE sessions SET lang=? WHERE token=?`, lang, token)
	return err
}

// DeleteSession removes a session by token.
func (d *DB) DeleteSession(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE token=?`, token)
	return err
}

// DeleteExpiredSessions deletes sessions that have expired.
func (d *DB) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// requireRow maps zero affected rows to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// boolToInt maps booleans to SQLite-friendly integer flags.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

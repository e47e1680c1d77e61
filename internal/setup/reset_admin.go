package setup

import (
	"context"
	"errors"

	"shareview/internal/auth"
	"shareview/internal/db"
)

// ResetAdminOptions captures the admin recovery inputs. AdminPassword and
// AdminPasswordEnv are mutually exclusive by usage; when both are empty the
// password is prompted.
type ResetAdminOptions struct {
	DBPath           string
	Username         string
	AdminPassword    string
	AdminPasswordEnv bool
}

// ResetAdmin re-passwords an administrator account directly in the store
// and makes sure it is active with the admin role. This is the recovery
// path for a locked-out or deactivated admin; it runs local-only, without
// the server.
//
// With no username the single existing admin is targeted; an explicit
// username can also promote a regular account.
func ResetAdmin(ctx context.Context, opt ResetAdminOptions) error {
	if opt.DBPath == "" {
		return errors.New("db path is required")
	}

	d, err := db.Open(ctx, opt.DBPath)
	if err != nil {
		return err
	}
	defer d.Close()

	st, err := d.GetSetupState(ctx)
	if err != nil {
		return err
	}
	if !st.CompletedFlag {
		return errors.New("setup has not completed; start the server and open /setup")
	}

	target, err := pickTarget(ctx, d, opt.Username)
	if err != nil {
		return err
	}

	pass, err := resolveAdminPassword("Set admin password for "+target.Username, opt.AdminPassword, opt.AdminPasswordEnv)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(pass, auth.DefaultParams())
	if err != nil {
		return err
	}

	if err := d.SetUserPasswordHash(ctx, target.ID, hash); err != nil {
		return err
	}
	// Reactivate and promote in one go so the account is usable afterward.
	return d.UpdateUser(ctx, target.ID, target.Email, auth.RoleAdmin, true)
}

func pickTarget(ctx context.Context, d *db.DB, username string) (*db.User, error) {
	if username != "" {
		u, ok, err := d.GetUserByUsername(ctx, username)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.New("no such user: " + username)
		}
		return u, nil
	}

	users, err := d.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	var admins []db.User
	for _, u := range users {
		if u.Role.IsAdmin() {
			admins = append(admins, u)
		}
	}
	switch len(admins) {
	case 0:
		return nil, errors.New("no admin account exists; pass --username to promote one")
	case 1:
		u := admins[0]
		return &u, nil
	default:
		return nil, errors.New("multiple admin accounts exist; pass --username")
	}
}

// Package resetadmin implements the "shareview reset-admin" CLI subcommand.
// It recovers admin access directly in the SQLite database.
package resetadmin

import (
	"context"
	"flag"

	isetup "shareview/internal/setup"
)

// Options captures CLI flags for admin recovery.
// AdminPassword and AdminPasswordEnv are mutually exclusive by usage.
type Options struct {
	DBPath           string
	Username         string
	AdminPassword    string
	AdminPasswordEnv bool
}

// Run parses reset-admin flags and executes the recovery workflow.
// The reset is local-only and does not require the server to be running.
func Run(args []string) error {
	fs := flag.NewFlagSet("reset-admin", flag.ContinueOnError)
	var opt Options
	fs.StringVar(&opt.DBPath, "db", "./data/shareview.db", "sqlite database path")
	fs.StringVar(&opt.Username, "username", "", "account to recover (defaults to the only admin)")
	fs.StringVar(&opt.AdminPassword, "admin-password", "", "set admin password non-interactively")
	fs.BoolVar(&opt.AdminPasswordEnv, "admin-password-env", false, "read admin password from SHAREVIEW_ADMIN_PASSWORD")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return isetup.ResetAdmin(context.Background(), isetup.ResetAdminOptions{
		DBPath:           opt.DBPath,
		Username:         opt.Username,
		AdminPassword:    opt.AdminPassword,
		AdminPasswordEnv: opt.AdminPasswordEnv,
	})
}

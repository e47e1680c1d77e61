// Package daemon wires the store, limiters, and HTTP server together and
// owns their lifecycle.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"shareview/internal/db"
	"shareview/internal/httpapi"
	"shareview/internal/i18n"
	"shareview/internal/setup"
	"shareview/internal/validate"
)

type LimitOptions struct {
	Window time.Duration
	Max    int
}

type Options struct {
	DBPath    string
	DataDir   string
	ShareRoot string

	BindAddr string
	Port     int

	// TLSAuto generates a self-signed pair under DataDir when no explicit
	// pair is configured.
	TLSAuto     bool
	TLSCertPath string
	TLSKeyPath  string

	SessionTTL time.Duration

	AuthLimit     LimitOptions
	APILimit      LimitOptions
	DownloadLimit LimitOptions

	Logger *slog.Logger
}

// sweepEvery paces both the limiter bucket sweep and the expired session
// cleanup.
const sweepEvery = 5 * time.Minute

// Run starts the daemon and blocks until a fatal error or SIGINT/SIGTERM.
// On signal the HTTP server drains, limiters stop, and the store closes.
func Run(ctx context.Context, opt Options) error {
	if opt.DBPath == "" {
		return errors.New("db path is required")
	}
	if opt.ShareRoot == "" {
		return errors.New("share root is required")
	}
	if opt.Logger == nil {
		return errors.New("logger is required")
	}

	// The path sandbox compares absolute paths.
	shareRoot, err := filepath.Abs(opt.ShareRoot)
	if err != nil {
		return err
	}
	shareRoot, err = validate.RootPath(shareRoot)
	if err != nil {
		return err
	}
	excluded := ""
	if opt.DataDir != "" {
		excluded, err = filepath.Abs(opt.DataDir)
		if err != nil {
			return err
		}
	}

	certPath, keyPath := opt.TLSCertPath, opt.TLSKeyPath
	if opt.TLSAuto && (certPath == "" || keyPath == "") {
		certPath = filepath.Join(opt.DataDir, "tls.crt")
		keyPath = filepath.Join(opt.DataDir, "tls.key")
		if err := setup.EnsureTLSCert(certPath, keyPath); err != nil {
			return err
		}
	}

	d, err := db.Open(ctx, opt.DBPath)
	if err != nil {
		return err
	}
	defer d.Close()

	catalog, err := i18n.Load()
	if err != nil {
		return err
	}

	limits := httpapi.NewLimiters(
		httpapi.LimiterConfig(opt.AuthLimit),
		httpapi.LimiterConfig(opt.APILimit),
		httpapi.LimiterConfig(opt.DownloadLimit),
		sweepEvery,
	)
	defer limits.Stop()

	api := &httpapi.Server{
		DB:          d,
		Logger:      opt.Logger,
		Catalog:     catalog,
		Limits:      limits,
		ShareRoot:   shareRoot,
		ExcludedDir: excluded,
		SessionTTL:  opt.SessionTTL,
		BindAddr:    opt.BindAddr,
		Port:        opt.Port,
		CertPath:    certPath,
		KeyPath:     keyPath,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, d, opt.Logger)

	errCh := make(chan error, 1)
	go func() { errCh <- api.ListenAndServe() }()
	opt.Logger.Info("daemon started",
		"bind", opt.BindAddr, "port", opt.Port,
		"share_root", shareRoot, "excluded", excluded,
		"tls", certPath != "")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		opt.Logger.Info("shutting down")
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := api.Shutdown(shCtx); err != nil {
			return err
		}
		return nil
	}
}

// sweepSessions periodically deletes expired session rows so the table
// does not grow without bound.
func sweepSessions(ctx context.Context, d *db.DB, lg *slog.Logger) {
	t := time.NewTicker(sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := d.DeleteExpiredSessions(ctx, time.Now().Unix())
			if err != nil {
				if ctx.Err() == nil {
					lg.Warn("session sweep failed", "err", err)
				}
				continue
			}
			if n > 0 {
				lg.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

package server

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"shareview/internal/config"
	"shareview/internal/daemon"
	"shareview/internal/logging"
	"shareview/internal/version"
)

type Options struct {
	ConfigPath string
	LogLevel   string

	DBPath    string
	DataDir   string
	ShareRoot string
	BindAddr  string
	Port      int
	TLSAuto   bool
}

func Run(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var opt Options
	var showVersion bool
	fs.StringVar(&opt.ConfigPath, "config", "", "path to shareview.yaml (flags override nothing once set, except -log-level)")
	fs.BoolVar(&showVersion, "version", false, "print version and exit")
	fs.StringVar(&opt.LogLevel, "log-level", "", "log level: debug|info|warning|error")
	fs.StringVar(&opt.DBPath, "db", "./data/shareview.db", "sqlite database path")
	fs.StringVar(&opt.DataDir, "data-dir", "./data", "data directory (db/certs); hidden from the shared tree")
	fs.StringVar(&opt.ShareRoot, "share-root", "", "directory tree to share (required without -config)")
	fs.StringVar(&opt.BindAddr, "bind", "127.0.0.1", "bind address")
	fs.IntVar(&opt.Port, "port", 5180, "HTTP port")
	fs.BoolVar(&opt.TLSAuto, "tls-auto", false, "generate a self-signed certificate under data-dir")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if showVersion {
		fmt.Printf("shareview server %s\n", version.Version)
		return nil
	}

	if opt.ConfigPath != "" {
		c, err := config.Load(opt.ConfigPath)
		if err != nil {
			return err
		}
		base := filepath.Dir(opt.ConfigPath)
		level := c.Log.Level
		// CLI overrides config.
		if strings.TrimSpace(opt.LogLevel) != "" {
			level = opt.LogLevel
		}
		lg, _, err := logging.New(logging.Options{Level: level, JSON: c.Log.JSON, DefaultSlog: true})
		if err != nil {
			return err
		}
		return daemon.Run(context.Background(), daemon.Options{
			DBPath:        resolvePath(base, c.DB.Path),
			DataDir:       resolvePath(base, c.DataDir),
			ShareRoot:     resolvePath(base, c.Share.Root),
			BindAddr:      c.HTTP.Bind,
			Port:          c.HTTP.Port,
			TLSAuto:       c.HTTP.TLS.Auto,
			TLSCertPath:   resolvePath(base, c.HTTP.TLS.CertPath),
			TLSKeyPath:    resolvePath(base, c.HTTP.TLS.KeyPath),
			SessionTTL:    time.Duration(c.Session.TTLHours) * time.Hour,
			AuthLimit:     limit(c.Limits.Auth),
			APILimit:      limit(c.Limits.API),
			DownloadLimit: limit(c.Limits.Download),
			Logger:        lg,
		})
	}

	lg, _, err := logging.New(logging.Options{Level: opt.LogLevel, DefaultSlog: true})
	if err != nil {
		return err
	}
	var c config.Config
	config.ApplyDefaults(&c)
	return daemon.Run(context.Background(), daemon.Options{
		DBPath:        opt.DBPath,
		DataDir:       opt.DataDir,
		ShareRoot:     opt.ShareRoot,
		BindAddr:      opt.BindAddr,
		Port:          opt.Port,
		TLSAuto:       opt.TLSAuto,
		SessionTTL:    time.Duration(c.Session.TTLHours) * time.Hour,
		AuthLimit:     limit(c.Limits.Auth),
		APILimit:      limit(c.Limits.API),
		DownloadLimit: limit(c.Limits.Download),
		Logger:        lg,
	})
}

func limit(lc config.LimitConfig) daemon.LimitOptions {
	return daemon.LimitOptions{
		Window: time.Duration(lc.WindowSeconds) * time.Second,
		Max:    lc.Max,
	}
}

func resolvePath(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

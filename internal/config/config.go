// Package config loads and validates shareview YAML configuration.
// It applies defaults so the daemon can rely on fully populated values.
package config

import (
	"errors"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TLSConfig holds TLS certificate settings. When Auto is set and no pair is
// configured, a self-signed pair is generated under data_dir.
type TLSConfig struct {
	Auto     bool   `yaml:"auto"`
	CertPath string `yaml:"cert_path"`
	KeyPath  string `yaml:"key_path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Bind string    `yaml:"bind"`
	Port int       `yaml:"port"`
	TLS  TLSConfig `yaml:"tls"`
}

// ShareConfig holds the served directory tree.
type ShareConfig struct {
	Root string `yaml:"root"`
}

// LimitConfig is one rate limiter class: max requests per window.
type LimitConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	Max           int `yaml:"max"`
}

// LimitsConfig holds the three limiter classes.
type LimitsConfig struct {
	Auth     LimitConfig `yaml:"auth"`
	API      LimitConfig `yaml:"api"`
	Download LimitConfig `yaml:"download"`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	TTLHours int `yaml:"ttl_hours"`
}

// Config mirrors the shareview.yaml schema.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	DataDir string        `yaml:"data_dir"`
	Share   ShareConfig   `yaml:"share"`
	HTTP    HTTPConfig    `yaml:"http"`
	Session SessionConfig `yaml:"session"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// Load reads a YAML config file, applies defaults, and validates it.
// It returns a fully populated Config or a descriptive error.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, errors.New("config path is required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	ApplyDefaults(&c)
	if err := validate(&c); err != nil {
		return Config{}, err
	}
	c.DB.Path = strings.TrimSpace(c.DB.Path)
	c.DataDir = strings.TrimSpace(c.DataDir)
	c.Share.Root = strings.TrimSpace(c.Share.Root)
	c.HTTP.TLS.CertPath = strings.TrimSpace(c.HTTP.TLS.CertPath)
	c.HTTP.TLS.KeyPath = strings.TrimSpace(c.HTTP.TLS.KeyPath)
	return c, nil
}

// ApplyDefaults populates zero-values with sane defaults.
func ApplyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.DB.Path == "" {
		c.DB.Path = "./data/shareview.db"
	}
	if c.HTTP.Bind == "" {
		c.HTTP.Bind = "127.0.0.1"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5180
	}
	if c.Session.TTLHours == 0 {
		c.Session.TTLHours = 24
	}
	if c.Limits.Auth.WindowSeconds == 0 {
		c.Limits.Auth.WindowSeconds = 900
	}
	if c.Limits.Auth.Max == 0 {
		c.Limits.Auth.Max = 10
	}
	if c.Limits.API.WindowSeconds == 0 {
		c.Limits.API.WindowSeconds = 60
	}
	if c.Limits.API.Max == 0 {
		c.Limits.API.Max = 100
	}
	if c.Limits.Download.WindowSeconds == 0 {
		c.Limits.Download.WindowSeconds = 60
	}
	if c.Limits.Download.Max == 0 {
		c.Limits.Download.Max = 30
	}
}

// validate performs basic sanity checks for required fields and ranges.
// It does not mutate the config.
func validate(c *Config) error {
	if strings.TrimSpace(c.Log.Level) == "" {
		return errors.New("log.level is required")
	}
	if c.DB.Path == "" {
		return errors.New("db.path is required")
	}
	if c.DataDir == "" {
		return errors.New("data_dir is required")
	}
	if strings.TrimSpace(c.Share.Root) == "" {
		return errors.New("share.root is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return errors.New("http.port is invalid")
	}
	if c.Session.TTLHours < 1 || c.Session.TTLHours > 24*30 {
		return errors.New("session.ttl_hours is invalid")
	}
	cp := strings.TrimSpace(c.HTTP.TLS.CertPath)
	kp := strings.TrimSpace(c.HTTP.TLS.KeyPath)
	if (cp == "") != (kp == "") {
		return errors.New("http.tls.cert_path and http.tls.key_path must be set together")
	}
	for _, l := range []LimitConfig{c.Limits.Auth, c.Limits.API, c.Limits.Download} {
		if l.WindowSeconds < 1 || l.Max < 1 {
			return errors.New("limits entries require window_seconds >= 1 and max >= 1")
		}
	}
	return nil
}

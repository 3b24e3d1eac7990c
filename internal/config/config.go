// Package config loads server configuration from defaults, an optional YAML
// file and the environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"time"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

type Config struct {
	Env           string              `koanf:"env"`
	Server        ServerConfig        `koanf:"server"`
	Storage       StorageConfig       `koanf:"storage"`
	Auth          AuthConfig          `koanf:"auth"`
	Bootstrap     BootstrapConfig     `koanf:"bootstrap"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Uploads       UploadsConfig       `koanf:"uploads"`
	Limiter       LimiterConfig       `koanf:"limiter"`
	Log           LogConfig           `koanf:"log"`
}

type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

type StorageConfig struct {
	Backend    string `koanf:"backend"`
	DataDir    string `koanf:"data_dir"`
	SQLitePath string `koanf:"sqlite_path"`
	BadgerDir  string `koanf:"badger_dir"`
}

type AuthConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	BcryptCost      int           `koanf:"bcrypt_cost"`
	AllowQueryToken bool          `koanf:"allow_query_token"`
}

// BootstrapConfig seeds an owner account when the admin directory is empty.
type BootstrapConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type NotificationsConfig struct {
	Path string `koanf:"path"`
	// UDPAddr enables the UDP notification feed when set, e.g. ":7070".
	UDPAddr string `koanf:"udp_addr"`
}

type UploadsConfig struct {
	ImageDir string `koanf:"image_dir"`
	MaxBytes int64  `koanf:"max_bytes"`
}

type LimiterConfig struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  time.Minute,
			CORSOrigins:  []string{"*"},
		},
		Storage: StorageConfig{
			Backend:    BackendFile,
			DataDir:    "./data",
			SQLitePath: "./data/moviemania.db",
			BadgerDir:  "./data/badger",
		},
		Auth: AuthConfig{
			TokenTTL:        2 * time.Hour,
			BcryptCost:      12,
			AllowQueryToken: true,
		},
		Notifications: NotificationsConfig{
			Path: "./data/notifications.log",
		},
		Uploads: UploadsConfig{
			ImageDir: "./images",
			MaxBytes: 5 << 20,
		},
		Limiter: LimiterConfig{
			Enabled: true,
			RPS:     2,
			Burst:   5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			errs = append(errs, errors.New("storage.data_dir is required for the file backend"))
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required for the sqlite backend"))
		}
	case BackendBadger:
		if c.Storage.BadgerDir == "" {
			errs = append(errs, errors.New("storage.badger_dir is required for the badger backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of file, sqlite, badger", c.Storage.Backend))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("auth.bcrypt_cost %d out of range 4..31", c.Auth.BcryptCost))
	}
	if (c.Bootstrap.Username == "") != (c.Bootstrap.Password == "") {
		errs = append(errs, errors.New("bootstrap.username and bootstrap.password must be set together"))
	}
	if c.Notifications.Path == "" {
		errs = append(errs, errors.New("notifications.path is required"))
	}
	if c.Uploads.MaxBytes <= 0 {
		errs = append(errs, errors.New("uploads.max_bytes must be positive"))
	}
	if c.Limiter.Enabled && (c.Limiter.RPS <= 0 || c.Limiter.Burst <= 0) {
		errs = append(errs, errors.New("limiter.rps and limiter.burst must be positive when enabled"))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Package config loads hub server settings from flags, environment
// variables (HUB_ prefix) and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. HUB_DATABASE_DSN.
const EnvPrefix = "HUB"

// Config is the resolved server configuration.
type Config struct {
	Listen   string         `mapstructure:"listen"`
	AppURL   string         `mapstructure:"app_url"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
	Chains   ChainsConfig   `mapstructure:"chains"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Activity ActivityConfig `mapstructure:"activity"`
}

type DatabaseConfig struct {
	Type        string `mapstructure:"type"`
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

// AuthConfig selects how requests are authenticated. Mode "jwt" verifies
// bearer tokens; mode "header" trusts X-User-ID and is meant for local use.
type AuthConfig struct {
	Mode         string `mapstructure:"mode"`
	JWTSecret    string `mapstructure:"jwt_secret"`
	JWTPublicKey string `mapstructure:"jwt_public_key_path"`
	JWTIssuer    string `mapstructure:"jwt_issuer"`
	JWTAudience  string `mapstructure:"jwt_audience"`
}

// NotifyConfig selects the email transport. Mode "log" only logs messages.
type NotifyConfig struct {
	Mode        string        `mapstructure:"mode"`
	FunctionURL string        `mapstructure:"function_url"`
	ServiceKey  string        `mapstructure:"service_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode"`
	Level string `mapstructure:"level"`
}

type ChainsConfig struct {
	SeedPath string `mapstructure:"seed_path"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ActivityConfig controls pruning of the activity log. A zero Retention
// keeps entries forever.
type ActivityConfig struct {
	Retention     time.Duration `mapstructure:"retention"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8080")
	v.SetDefault("app_url", "http://localhost:3000")
	v.SetDefault("database.type", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("auth.mode", "jwt")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_public_key_path", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.jwt_audience", "")
	v.SetDefault("notify.mode", "log")
	v.SetDefault("notify.function_url", "")
	v.SetDefault("notify.service_key", "")
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("log.mode", "production")
	v.SetDefault("log.level", "")
	v.SetDefault("chains.seed_path", "")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("activity.retention", time.Duration(0))
	v.SetDefault("activity.sweep_interval", time.Hour)
}

// BindFlags registers the server flags. Flag names use dashes; each one
// maps to the dotted config key with underscores.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML, JSON or TOML config file")
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("database-type", "", "database type: postgres, mysql or sqlite")
	fs.String("database-dsn", "", "database DSN or URL")
	fs.Bool("database-auto-migrate", false, "create or update tables on startup")
	fs.String("auth-mode", "jwt", "authentication mode: jwt or header")
	fs.String("log-mode", "production", "log mode: production or development")
	fs.String("log-level", "", "log level override")
	fs.String("chains-seed-path", "", "YAML file with approval chains to seed")
}

var flagKeys = map[string]string{
	"listen":                "listen",
	"database-type":         "database.type",
	"database-dsn":          "database.dsn",
	"database-auto-migrate": "database.auto_migrate",
	"auth-mode":             "auth.mode",
	"log-mode":              "log.mode",
	"log-level":             "log.level",
	"chains-seed-path":      "chains.seed_path",
}

// Load resolves configuration with the precedence flags > environment >
// config file > defaults. fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	// Comma-separated origins arrive as one string from the environment.
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	return &cfg, nil
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	switch c.Auth.Mode {
	case "jwt":
		if c.Auth.JWTSecret == "" && c.Auth.JWTPublicKey == "" {
			errs = append(errs, errors.New("auth.jwt_secret or auth.jwt_public_key_path is required in jwt mode"))
		}
	case "header":
	default:
		errs = append(errs, fmt.Errorf("auth.mode %q is not one of jwt, header", c.Auth.Mode))
	}
	switch c.Notify.Mode {
	case "log":
	case "function":
		if c.Notify.FunctionURL == "" {
			errs = append(errs, errors.New("notify.function_url is required in function mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("notify.mode %q is not one of log, function", c.Notify.Mode))
	}
	if c.Activity.Retention < 0 {
		errs = append(errs, errors.New("activity.retention must not be negative"))
	}
	return errors.Join(errs...)
}

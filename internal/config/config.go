// Package config loads wisp's configuration from a YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"wisp/internal/state"
)

// Environment variables that override the file.
const (
	EnvConfig      = "WISP_CONFIG"
	EnvBackendURL  = "WISP_SUPABASE_URL"
	EnvAnonKey     = "WISP_SUPABASE_ANON_KEY"
	EnvAPIBaseURL  = "WISP_API_BASE_URL"
	EnvDev         = "WISP_DEV"
	EnvDevOrigin   = "WISP_DEV_ORIGIN"
	EnvAppDomain   = "WISP_APP_DOMAIN"
	EnvLogLevel    = "WISP_LOG_LEVEL"
	DefaultFile    = "config.yaml"
	defaultDomain  = "wisp.app"
	defaultChannel = "projects"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Realtime tunes the change feed.
type Realtime struct {
	Channel           string        `yaml:"channel" validate:"required"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" validate:"gte=0"`
	JoinTimeout       time.Duration `yaml:"join_timeout" validate:"gte=0"`
}

// Config is the resolved configuration.
type Config struct {
	BackendURL string `yaml:"supabase_url" validate:"required,url"`
	AnonKey    string `yaml:"supabase_anon_key" validate:"required"`
	APIBaseURL string `yaml:"api_base_url" validate:"omitempty,url"`
	Dev        bool   `yaml:"dev"`
	DevOrigin  string `yaml:"dev_origin"`
	AppDomain  string `yaml:"app_domain" validate:"required,fqdn"`
	LogLevel   string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	Realtime Realtime `yaml:"realtime"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		AppDomain: defaultDomain,
		LogLevel:  "info",
		Realtime: Realtime{
			Channel:           defaultChannel,
			HeartbeatInterval: 25 * time.Second,
			JoinTimeout:       10 * time.Second,
		},
	}
}

var validate = validator.New()

// DefaultPath returns $WISP_CONFIG, else config.yaml in the state dir.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := state.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultFile), nil
}

// Load reads path (DefaultPath when empty), applies env overrides and
// validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}
		path = p
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	setString(&c.BackendURL, EnvBackendURL)
	setString(&c.AnonKey, EnvAnonKey)
	setString(&c.APIBaseURL, EnvAPIBaseURL)
	setString(&c.DevOrigin, EnvDevOrigin)
	setString(&c.AppDomain, EnvAppDomain)
	setString(&c.LogLevel, EnvLogLevel)

	if v, ok := os.LookupEnv(EnvDev); ok && v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvDev, err)
		}
		c.Dev = dev
	}
	return nil
}

// Validate checks required fields and formats.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

var yamlNames = map[string]string{
	"BackendURL":        "supabase_url (" + EnvBackendURL + ")",
	"AnonKey":           "supabase_anon_key (" + EnvAnonKey + ")",
	"APIBaseURL":        "api_base_url (" + EnvAPIBaseURL + ")",
	"AppDomain":         "app_domain (" + EnvAppDomain + ")",
	"LogLevel":          "log_level (" + EnvLogLevel + ")",
	"Channel":           "realtime.channel",
	"HeartbeatInterval": "realtime.heartbeat_interval",
	"JoinTimeout":       "realtime.join_timeout",
}

func describe(fe validator.FieldError) string {
	name := yamlNames[fe.StructField()]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "url", "fqdn":
		return name + " is not a valid " + fe.Tag()
	case "oneof":
		return name + " must be one of " + fe.Param()
	default:
		return name + " failed " + fe.Tag()
	}
}

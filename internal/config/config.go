package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "15m" parse naturally.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds service configuration loaded from YAML with env overrides.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	HTTP     HTTPConfig     `yaml:"http"`
}

type ServerConfig struct {
	Addr     string `yaml:"addr"`
	GRPCAddr string `yaml:"grpc_addr"`
}

type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime Duration      `yaml:"conn_max_lifetime"`
}

type AuthConfig struct {
	Secret    string        `yaml:"secret"`
	AccessTTL Duration      `yaml:"access_ttl"`
}

type HTTPConfig struct {
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
	RateBurst    int   `yaml:"rate_burst"`
	RatePerSec   int   `yaml:"rate_per_sec"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:     ":8080",
			GRPCAddr: ":9090",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: Duration(15 * time.Minute),
		},
		Auth: AuthConfig{
			AccessTTL: Duration(15 * time.Minute),
		},
		HTTP: HTTPConfig{
			MaxBodyBytes: 1 << 20,
			RateBurst:    20,
			RatePerSec:   10,
		},
	}
}

// Load reads YAML configuration from path (optional) and applies env overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FREIGHTDESK_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("FREIGHTDESK_GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}
	if v := os.Getenv("FREIGHTDESK_PG_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("FREIGHTDESK_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("FREIGHTDESK_RATE_PER_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTP.RatePerSec = n
		}
	}
	if v := os.Getenv("FREIGHTDESK_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTP.RateBurst = n
		}
	}
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loaded from a YAML file with
// env-var overrides for secrets.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	// DSN is a go-sql-driver/mysql DSN, e.g.
	// user:pass@tcp(localhost:3306)/promptstash?parseTime=true
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type AuthConfig struct {
	// APIKey is compared against the Bearer token on every request.
	APIKey string `yaml:"api_key"`
	// AllowLocalhostBypass skips the key check for loopback clients.
	AllowLocalhostBypass bool `yaml:"allow_localhost_bypass"`
}

// Load reads path and applies env overrides (PM_DATABASE_DSN, PM_API_KEY,
// PM_REDIS_PASSWORD, PM_PORT).
func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8000},
		Redis:  RedisConfig{Host: "localhost", Port: 6379, PoolSize: 10},
		Auth:   AuthConfig{AllowLocalhostBypass: true},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if v := os.Getenv("PM_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PM_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("PM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PM_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PM_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (or set PM_DATABASE_DSN)")
	}
	return cfg, nil
}

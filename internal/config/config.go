// Package config loads server settings from defaults, an optional YAML file
// and INVENTAR_* environment variables, in that order.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Storage and revocation backends.
const (
	StorageLocal = "local"
	StorageS3    = "s3"

	RevocationSQL   = "sql"
	RevocationRedis = "redis"
)

// Config holds the server settings.
type Config struct {
	Addr           string   `yaml:"addr"`
	LogPath        string   `yaml:"log"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	Database struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	Storage struct {
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
		BaseURL string `yaml:"base_url"`
		S3      struct {
			Bucket    string `yaml:"bucket"`
			Region    string `yaml:"region"`
			Endpoint  string `yaml:"endpoint"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
			PublicURL string `yaml:"public_url"`
		} `yaml:"s3"`
	} `yaml:"storage"`

	Revocation struct {
		Backend       string `yaml:"backend"`
		RedisAddr     string `yaml:"redis_addr"`
		RedisPassword string `yaml:"redis_password"`
		RedisDB       int    `yaml:"redis_db"`
	} `yaml:"revocation"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	cfg := &Config{
		Addr:           ":8080",
		AllowedOrigins: []string{"http://localhost:5173"},
	}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "inventar.sqlite3"
	cfg.Storage.Backend = StorageLocal
	cfg.Storage.Dir = "public"
	cfg.Storage.BaseURL = "http://localhost:8080"
	cfg.Storage.S3.Region = "us-east-1"
	cfg.Revocation.Backend = RevocationSQL
	cfg.Revocation.RedisAddr = "localhost:6379"
	return cfg
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with INVENTAR_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"INVENTAR_ADDR":             &cfg.Addr,
		"INVENTAR_LOG":              &cfg.LogPath,
		"INVENTAR_JWT_SECRET":       &cfg.JWTSecret,
		"INVENTAR_DB_DRIVER":        &cfg.Database.Driver,
		"INVENTAR_DB_DSN":           &cfg.Database.DSN,
		"INVENTAR_STORAGE":          &cfg.Storage.Backend,
		"INVENTAR_STORAGE_DIR":      &cfg.Storage.Dir,
		"INVENTAR_STORAGE_BASE_URL": &cfg.Storage.BaseURL,
		"INVENTAR_S3_BUCKET":        &cfg.Storage.S3.Bucket,
		"INVENTAR_S3_REGION":        &cfg.Storage.S3.Region,
		"INVENTAR_S3_ENDPOINT":      &cfg.Storage.S3.Endpoint,
		"INVENTAR_S3_ACCESS_KEY":    &cfg.Storage.S3.AccessKey,
		"INVENTAR_S3_SECRET_KEY":    &cfg.Storage.S3.SecretKey,
		"INVENTAR_S3_PUBLIC_URL":    &cfg.Storage.S3.PublicURL,
		"INVENTAR_REVOCATION":       &cfg.Revocation.Backend,
		"INVENTAR_REDIS_ADDR":       &cfg.Revocation.RedisAddr,
		"INVENTAR_REDIS_PASSWORD":   &cfg.Revocation.RedisPassword,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("INVENTAR_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("INVENTAR_REDIS_DB: %w", err)
		}
		cfg.Revocation.RedisDB = n
	}

	if v, ok := lookup("INVENTAR_ALLOWED_ORIGINS"); ok {
		cfg.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return nil
}

// Validate checks backend names and required settings.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage dir is required for local storage")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Revocation.Backend {
	case RevocationSQL:
	case RevocationRedis:
		if c.Revocation.RedisAddr == "" {
			return fmt.Errorf("redis address is required for redis revocation")
		}
	default:
		return fmt.Errorf("unknown revocation backend %q", c.Revocation.Backend)
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Auth         AuthConfig         `yaml:"auth"`
	Log          LogConfig          `yaml:"log"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Session      SessionConfig      `yaml:"session"`
	Photo        PhotoConfig        `yaml:"photo"`
	PhotoQuality PhotoQualityConfig `yaml:"photo_quality"`
	OpenAI       OpenAIConfig       `yaml:"openai"`
	SeedUsers    []SeedUser         `yaml:"seed_users"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
	// MaxUploadMB bounds multipart bodies on upload routes.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

type DatabaseConfig struct {
	// URL is a postgres:// DSN or sqlite://<path>.
	URL string `yaml:"url"`
}

type StorageConfig struct {
	Backend string      `yaml:"backend"` // minio, azure, memory
	Minio   MinioConfig `yaml:"minio"`
	Azure   AzureConfig `yaml:"azure"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AzureConfig struct {
	ConnectionString string `yaml:"connection_string"`
	Container        string `yaml:"container"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RateLimitConfig struct {
	Requests      int `yaml:"requests"`
	WindowSeconds int `yaml:"window_seconds"`
}

type SessionConfig struct {
	Backend    string `yaml:"backend"` // memory, redis
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type PhotoConfig struct {
	// MinBrightness rejects uploads darker than this (0..1). Zero disables the check.
	MinBrightness float64 `yaml:"min_brightness"`
}

type PhotoQualityConfig struct {
	APIURL         string `yaml:"api_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// SeedUser is created at startup when no account with the email exists.
type SeedUser struct {
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
	Role         string `yaml:"role"`
	PasswordHash string `yaml:"password_hash"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 12
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = "sqlite://data/inspections.db"
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "minio"
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 100
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 120
	}
	if cfg.PhotoQuality.TimeoutSeconds == 0 {
		cfg.PhotoQuality.TimeoutSeconds = 60
	}
	if cfg.OpenAI.Model == "" {
		cfg.OpenAI.Model = "gpt-4"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overrides file values with the deployment environment.
func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); v != "" {
		c.Storage.Azure.ConnectionString = v
		if c.Storage.Backend == "" {
			c.Storage.Backend = "azure"
		}
	}
	if v := os.Getenv("AZURE_STORAGE_CONTAINER_NAME"); v != "" {
		c.Storage.Azure.Container = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Session.RedisAddr = v
	}
	if v := os.Getenv("PHOTO_QUALITY_API_URL"); v != "" {
		c.PhotoQuality.APIURL = v
	}
}

// MinJWTSecretLength is the shortest accepted HS256 signing secret.
const MinJWTSecretLength = 16

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be at least %d bytes", MinJWTSecretLength)
	}
	switch c.Storage.Backend {
	case "minio", "azure", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session backend redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	for _, u := range c.SeedUsers {
		if u.Email == "" || u.PasswordHash == "" {
			return fmt.Errorf("seed user %q needs email and password_hash", u.Name)
		}
	}
	return nil
}

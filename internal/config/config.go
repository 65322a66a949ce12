// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type WebConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"` // bearer key for the operator routes
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // job read-cache TTL
}

type SynthesisConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Model         string        `yaml:"model"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	MaxAttempts   int           `yaml:"max_attempts"`
	EnhancePrompt bool          `yaml:"enhance_prompt"`
	Workers       int           `yaml:"workers"` // worker pool size for poll loops
}

type StorageConfig struct {
	Bucket         string        `yaml:"bucket"`
	OutputPrefix   string        `yaml:"output_prefix"`
	UploadsPrefix  string        `yaml:"uploads_prefix"`
	SignedURLTTL   time.Duration `yaml:"signed_url_ttl"`
	CredentialFile string        `yaml:"credential_file"`
}

type RecoveryConfig struct {
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Web       WebConfig       `yaml:"web"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Storage   StorageConfig   `yaml:"storage"`
	Recovery  RecoveryConfig  `yaml:"recovery"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 30 * time.Second
	}
	if cfg.Synthesis.Model == "" {
		cfg.Synthesis.Model = "veo-3.0-generate-001"
	}
	if cfg.Synthesis.PollInterval <= 0 {
		cfg.Synthesis.PollInterval = 10 * time.Second
	}
	if cfg.Synthesis.MaxAttempts <= 0 {
		cfg.Synthesis.MaxAttempts = 60
	}
	if cfg.Synthesis.Workers <= 0 {
		cfg.Synthesis.Workers = 8
	}
	if cfg.Storage.OutputPrefix == "" {
		cfg.Storage.OutputPrefix = "outputs"
	}
	if cfg.Storage.UploadsPrefix == "" {
		cfg.Storage.UploadsPrefix = "uploads"
	}
	if cfg.Storage.SignedURLTTL <= 0 {
		cfg.Storage.SignedURLTTL = 7 * 24 * time.Hour
	}
	if cfg.Recovery.SweepInterval <= 0 {
		cfg.Recovery.SweepInterval = 15 * time.Minute
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Storage.Bucket == "" {
		return nil, errors.New("storage.bucket is required")
	}
	if cfg.Synthesis.APIKey == "" && !dev {
		return nil, errors.New("synthesis.api_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

package main

import (
	"fmt"
	"os"
	"time"

	"streamjudge/internal/common/cache"
	"streamjudge/internal/common/mq"
	"streamjudge/internal/common/storage"
	"streamjudge/internal/judge/execclient"
	"streamjudge/internal/judge/problemstore"
	"streamjudge/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultBackendTimeout  = 120 * time.Second
	defaultProblemTTL      = 30 * time.Second
)

// ServerConfig holds HTTP server settings. WriteTimeout defaults to zero:
// verdict streams stay open for as long as a run takes.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// JudgeConfig holds run streaming settings.
type JudgeConfig struct {
	OutputCap   int    `yaml:"outputCap"`
	EventBuffer int    `yaml:"eventBuffer"`
	RunTopic    string `yaml:"runTopic"`
}

// AppConfig holds judged config.
type AppConfig struct {
	Server  ServerConfig        `yaml:"server"`
	Logger  logger.Config       `yaml:"logger"`
	Redis   cache.RedisConfig   `yaml:"redis"`
	MinIO   storage.MinIOConfig `yaml:"minio"`
	Kafka   mq.KafkaConfig      `yaml:"kafka"`
	Backend execclient.Config   `yaml:"backend"`
	Problem problemstore.Config `yaml:"problem"`
	Judge   JudgeConfig         `yaml:"judge"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Backend.CompileURL == "" {
		return nil, fmt.Errorf("backend compile URL is required")
	}
	if cfg.Backend.ExecuteURL == "" {
		return nil, fmt.Errorf("backend execute URL is required")
	}
	if cfg.MinIO.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Problem.Bucket == "" {
		cfg.Problem.Bucket = cfg.MinIO.Bucket
	}
	if cfg.Problem.CacheTTL == 0 {
		cfg.Problem.CacheTTL = defaultProblemTTL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = defaultBackendTimeout
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Judge.RunTopic == "" {
		cfg.Judge.RunTopic = "judge.run.final"
	}
	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	return &cfg, nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = defaults.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = defaults.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
	if cfg.PoolTimeout == 0 {
		cfg.PoolTimeout = defaults.PoolTimeout
	}
}

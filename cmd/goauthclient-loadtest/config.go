package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type loadConfig struct {
	Clients     int           `yaml:"clients"`
	Workers     int           `yaml:"workers"`
	Requests    int           `yaml:"requests"`
	RPS         float64       `yaml:"rps"`
	ExpireEvery time.Duration `yaml:"expire_every"`
	RefreshLag  time.Duration `yaml:"refresh_lag"`
	Store       string        `yaml:"store"`
	RedisAddr   string        `yaml:"redis_addr"`
	Prefix      string        `yaml:"prefix"`
	Rotate      bool          `yaml:"rotate"`
	LogLevel    string        `yaml:"log_level"`
}

func defaultLoadConfig() loadConfig {
	return loadConfig{
		Clients:     4,
		Workers:     64,
		Requests:    20000,
		RPS:         0,
		ExpireEvery: 200 * time.Millisecond,
		RefreshLag:  5 * time.Millisecond,
		Store:       "memory",
		Prefix:      "gac-load",
		Rotate:      true,
		LogLevel:    "warn",
	}
}

// loadConfigFile applies a YAML file on top of cfg. A missing path is not an error.
func loadConfigFile(path string, cfg *loadConfig) error {
	if path == "" {
		return nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// applyEnv loads envFile, if present, and applies LOADTEST_* and REDIS_ADDR
// overrides.
func applyEnv(envFile string, cfg *loadConfig) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file: %w", err)
		}
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("LOADTEST_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("LOADTEST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOADTEST_WORKERS: %w", err)
		}
		cfg.Workers = n
	}
	if v := os.Getenv("LOADTEST_EXPIRE_EVERY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LOADTEST_EXPIRE_EVERY: %w", err)
		}
		cfg.ExpireEvery = d
	}
	return nil
}

func (c loadConfig) validate() error {
	if c.Clients <= 0 || c.Workers <= 0 || c.Requests <= 0 {
		return errors.New("clients, workers, and requests must be > 0")
	}
	if c.RPS < 0 {
		return errors.New("rps must be >= 0")
	}
	if c.ExpireEvery <= 0 {
		return errors.New("expire_every must be > 0")
	}
	if c.Store != "memory" && c.Store != "redis" {
		return fmt.Errorf("unknown store %q", c.Store)
	}
	return nil
}

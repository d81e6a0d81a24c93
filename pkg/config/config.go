package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"ChartCore/pkg/validate"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Logger      struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stderr"`
	} `yaml:"logger"`
	Ephemeris struct {
		Binary         string        `yaml:"binary" default:"swetest" validate:"required"`
		EphePath       string        `yaml:"ephe_path"`
		Bodies         string        `yaml:"bodies" default:"0123456789mt" validate:"required"`
		Timeout        time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
		MaxConcurrent  int           `yaml:"max_concurrent" default:"4" validate:"gte=1"`
		MaxOutputBytes int           `yaml:"max_output_bytes" default:"1048576" validate:"gte=1024"`
	} `yaml:"ephemeris"`
	Aspects struct {
		Orbs          map[string]float64 `yaml:"orbs" validate:"omitempty,dive,gt=0"`
		Luminaries    []string           `yaml:"luminaries"`
		LuminaryBonus float64            `yaml:"luminary_bonus" default:"2" validate:"gte=0"`
	} `yaml:"aspects"`
	Houses struct {
		DefaultSystem string  `yaml:"default_system" default:"P" validate:"oneof=P K O R C E W B M"`
		Tolerance     float64 `yaml:"tolerance" default:"0.8" validate:"gt=0,lte=30"`
	} `yaml:"houses"`
	Patterns struct {
		TSquareTolerance float64 `yaml:"tsquare_tolerance" default:"8" validate:"gt=0,lte=30"`
		TopKeywords      int     `yaml:"top_keywords" default:"5" validate:"gte=0"`
	} `yaml:"patterns"`
	Cache struct {
		Backend string `yaml:"backend" default:"memory" validate:"oneof=none memory redis layered"`
		// TTL 0 hands expiry to the backend: memory.default_ttl in process,
		// no expiry in redis.
		TTL    time.Duration `yaml:"ttl" default:"24h" validate:"gte=0"`
		Memory struct {
			MaxSize    int           `yaml:"max_size" default:"1000" validate:"gte=1"`
			DefaultTTL time.Duration `yaml:"default_ttl" default:"168h" validate:"gt=0"`
		} `yaml:"memory"`
		Redis struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379" validate:"gte=1,lte=65535"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db" validate:"gte=0"`
			Prefix   string `yaml:"prefix" default:"chartcore"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Metrics struct {
		Enabled bool `yaml:"enabled"`
		// Textfile receives the registry in exposition format when a run
		// ends, for a node_exporter textfile collector.
		Textfile string `yaml:"textfile" validate:"required_if=Enabled true"`
	} `yaml:"metrics"`
}

// Default returns a configuration built from defaults alone.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file. Missing keys take
// their defaults; keys present in the file, zeros included, win.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML, or from defaults when path is empty,
// and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SWETEST_PATH"); v != "" {
		c.Ephemeris.Binary = v
	}
	if v := os.Getenv("EPHE_PATH"); v != "" {
		c.Ephemeris.EphePath = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		host, portStr, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Cache.Redis.Host = host
		c.Cache.Redis.Port = port
	}
	return nil
}

// Validate checks every rule. It does not fill defaults, so a zero set
// explicitly by the file or the environment is kept.
func (c *Config) Validate() error {
	return validate.Check(context.Background(), c)
}

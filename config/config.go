// Package config loads the controller configuration from defaults, a YAML
// file and PRINTD_ environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/devadigapratham/printd/axis"
	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. PRINTD_API_PORT
const EnvPrefix = "PRINTD_"

// Storage backends
const (
	BackendFile  = "file"
	BackendBolt  = "bolt"
	BackendRedis = "redis"
	BackendRaft  = "raft"
)

// APIConfig is the HTTP listener
type APIConfig struct {
	Address string `yaml:"address" env:"ADDRESS"`
	Port    int    `yaml:"port" env:"PORT"`
}

// LogConfig selects the log level (trace, debug, info, warn, error)
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
}

// MotionConfig tunes the simulated motion
type MotionConfig struct {
	// TimeScale multiplies every move and dwell; 1 is real time, 0 is instantaneous
	TimeScale float64 `yaml:"time_scale" env:"TIME_SCALE"`
}

// RedisConfig is used by the redis backend
type RedisConfig struct {
	Address  string `yaml:"address" env:"ADDRESS"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
}

// RaftConfig is used by the raft backend
type RaftConfig struct {
	NodeID    string `yaml:"node_id" env:"NODE_ID"`
	Addr      string `yaml:"addr" env:"ADDR"`
	Dir       string `yaml:"dir" env:"DIR"`
	Bootstrap bool   `yaml:"bootstrap" env:"BOOTSTRAP"`
	// Join is the HTTP base URL of a cluster member to join at startup
	Join string `yaml:"join" env:"JOIN"`
}

// StorageConfig selects where axis settings are persisted
type StorageConfig struct {
	Backend string      `yaml:"backend" env:"BACKEND"`
	Path    string      `yaml:"path" env:"PATH"`
	Redis   RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	Raft    RaftConfig  `yaml:"raft" envPrefix:"RAFT_"`
}

// AxisConfig holds the startup defaults of one axis
type AxisConfig struct {
	DefaultReferenceSpeed float64 `yaml:"default_reference_speed" env:"DEFAULT_REFERENCE_SPEED"`
	DefaultReferenceAccel float64 `yaml:"default_reference_accel" env:"DEFAULT_REFERENCE_ACCEL"`
	DefaultReferenceJerk  float64 `yaml:"default_reference_jerk" env:"DEFAULT_REFERENCE_JERK"`
	// Travel is the usable length in mm, 0 disables bounds checks
	Travel float64 `yaml:"travel" env:"TRAVEL"`
}

// AxesConfig holds every axis
type AxesConfig struct {
	X AxisConfig `yaml:"x" envPrefix:"X_"`
	Y AxisConfig `yaml:"y" envPrefix:"Y_"`
	Z AxisConfig `yaml:"z" envPrefix:"Z_"`
}

// Config aggregates all application configuration.
type Config struct {
	API     APIConfig     `yaml:"api" envPrefix:"API_"`
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Motion  MotionConfig  `yaml:"motion" envPrefix:"MOTION_"`
	Storage StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Axes    AxesConfig    `yaml:"axes" envPrefix:"AXES_"`
}

func defaultAxis(travel float64) AxisConfig {
	return AxisConfig{
		DefaultReferenceSpeed: 150,
		DefaultReferenceAccel: 3000,
		DefaultReferenceJerk:  150000,
		Travel:                travel,
	}
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		API: APIConfig{
			Address: "0.0.0.0",
			Port:    8000,
		},
		Log: LogConfig{
			Level: "info",
		},
		Motion: MotionConfig{
			TimeScale: 1,
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "settings.json",
			Redis: RedisConfig{
				Address: "localhost:6379",
				Prefix:  "printd:axis:",
			},
			Raft: RaftConfig{
				NodeID:    "node-1",
				Addr:      "127.0.0.1:7000",
				Dir:       "data/raft",
				Bootstrap: true,
			},
		},
		Axes: AxesConfig{
			X: defaultAxis(220),
			Y: defaultAxis(220),
			Z: defaultAxis(250),
		},
	}
}

// Load returns the defaults overridden by the YAML file at path (skipped
// when path is empty) and then by the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the whole configuration and reports every problem at once
func (c *Config) Validate() error {
	var errs []error

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port must be between 1 and 65535, got %d", c.API.Port))
	}
	if hclog.LevelFromString(c.Log.Level) == hclog.NoLevel {
		errs = append(errs, fmt.Errorf("log.level %q is not a known level", c.Log.Level))
	}
	if c.Motion.TimeScale < 0 || math.IsNaN(c.Motion.TimeScale) || math.IsInf(c.Motion.TimeScale, 0) {
		errs = append(errs, fmt.Errorf("motion.time_scale must be a finite value >= 0, got %v", c.Motion.TimeScale))
	}

	switch c.Storage.Backend {
	case BackendFile:
	case BackendBolt:
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage.path is required for the bolt backend"))
		}
	case BackendRedis:
		if c.Storage.Redis.Address == "" {
			errs = append(errs, errors.New("storage.redis.address is required for the redis backend"))
		}
	case BackendRaft:
		if c.Storage.Raft.NodeID == "" || c.Storage.Raft.Addr == "" || c.Storage.Raft.Dir == "" {
			errs = append(errs, errors.New("storage.raft.node_id, addr and dir are required for the raft backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of file, bolt, redis, raft", c.Storage.Backend))
	}

	for id, ac := range c.axisConfigs() {
		if err := ac.Defaults.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("axes.%s: %w", id, err))
		}
		if ac.Travel < 0 || math.IsNaN(ac.Travel) || math.IsInf(ac.Travel, 0) {
			errs = append(errs, fmt.Errorf("axes.%s.travel must be a finite value >= 0, got %v", id, ac.Travel))
		}
	}

	return errors.Join(errs...)
}

// ListenAddr is the host:port the API listens on
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.API.Address, strconv.Itoa(c.API.Port))
}

// AxisConfigs converts the axes section for axis.NewController
func (c *Config) AxisConfigs() map[axis.ID]axis.Config {
	return c.axisConfigs()
}

func (c *Config) axisConfigs() map[axis.ID]axis.Config {
	convert := func(ac AxisConfig) axis.Config {
		return axis.Config{
			Defaults: axis.Settings{
				ReferenceSpeed:      ac.DefaultReferenceSpeed,
				ReferenceAccelDecel: ac.DefaultReferenceAccel,
				ReferenceJerk:       ac.DefaultReferenceJerk,
			},
			Travel: ac.Travel,
		}
	}
	return map[axis.ID]axis.Config{
		axis.X: convert(c.Axes.X),
		axis.Y: convert(c.Axes.Y),
		axis.Z: convert(c.Axes.Z),
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devadigapratham/printd/axis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "printd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "0.0.0.0:8000", cfg.ListenAddr())
	assert.Equal(t, BackendFile, cfg.Storage.Backend)

	axes := cfg.AxisConfigs()
	require.Len(t, axes, 3)
	assert.Equal(t, axis.Settings{ReferenceSpeed: 150, ReferenceAccelDecel: 3000, ReferenceJerk: 150000}, axes[axis.X].Defaults)
	assert.Equal(t, 250.0, axes[axis.Z].Travel)
}

func TestLoadYAMLKeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
api:
  port: 9090
motion:
  time_scale: 0
storage:
  backend: bolt
  path: /var/lib/printd/settings.db
axes:
  y:
    default_reference_speed: 80
    travel: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, "0.0.0.0", cfg.API.Address)
	assert.Equal(t, 0.0, cfg.Motion.TimeScale)
	assert.Equal(t, BackendBolt, cfg.Storage.Backend)
	assert.Equal(t, 80.0, cfg.Axes.Y.DefaultReferenceSpeed)
	assert.Equal(t, 3000.0, cfg.Axes.Y.DefaultReferenceAccel)
	assert.Equal(t, 0.0, cfg.Axes.Y.Travel)
	assert.Equal(t, 220.0, cfg.Axes.X.Travel)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "api:\n  port: 9090\nlog:\n  level: debug\n")
	t.Setenv("PRINTD_API_PORT", "9191")
	t.Setenv("PRINTD_STORAGE_BACKEND", "redis")
	t.Setenv("PRINTD_STORAGE_REDIS_ADDRESS", "redis:6380")
	t.Setenv("PRINTD_AXES_Z_DEFAULT_REFERENCE_JERK", "0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.API.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, "redis:6380", cfg.Storage.Redis.Address)
	assert.Equal(t, 0.0, cfg.Axes.Z.DefaultReferenceJerk)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "api: [not, a, map]"))
	assert.Error(t, err)

	t.Setenv("PRINTD_API_PORT", "not-a-number")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.API.Port = 0 }},
		{"log_level", func(c *Config) { c.Log.Level = "loud" }},
		{"time_scale", func(c *Config) { c.Motion.TimeScale = -1 }},
		{"backend", func(c *Config) { c.Storage.Backend = "etcd" }},
		{"bolt_path", func(c *Config) { c.Storage.Backend = BackendBolt; c.Storage.Path = "" }},
		{"raft_dir", func(c *Config) { c.Storage.Backend = BackendRaft; c.Storage.Raft.Dir = "" }},
		{"speed", func(c *Config) { c.Axes.X.DefaultReferenceSpeed = 0 }},
		{"jerk", func(c *Config) { c.Axes.Y.DefaultReferenceJerk = -1 }},
		{"travel", func(c *Config) { c.Axes.Z.Travel = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.API.Port = -1
	cfg.Axes.X.DefaultReferenceAccel = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.port")
	assert.Contains(t, err.Error(), "axes.x")
	assert.ErrorIs(t, err, axis.ErrValidation)
}

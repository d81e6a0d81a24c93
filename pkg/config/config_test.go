package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartCore/pkg/validate"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "swetest", c.Ephemeris.Binary)
	assert.Equal(t, "0123456789mt", c.Ephemeris.Bodies)
	assert.Equal(t, 10*time.Second, c.Ephemeris.Timeout)
	assert.Equal(t, 4, c.Ephemeris.MaxConcurrent)
	assert.Equal(t, 2.0, c.Aspects.LuminaryBonus)
	assert.Equal(t, "P", c.Houses.DefaultSystem)
	assert.Equal(t, 0.8, c.Houses.Tolerance)
	assert.Equal(t, 8.0, c.Patterns.TSquareTolerance)
	assert.Equal(t, 5, c.Patterns.TopKeywords)
	assert.Equal(t, "memory", c.Cache.Backend)
	assert.Equal(t, 24*time.Hour, c.Cache.TTL)
	assert.Equal(t, 168*time.Hour, c.Cache.Memory.DefaultTTL)
	assert.Equal(t, 6379, c.Cache.Redis.Port)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
environment: production
logger:
  level: debug
ephemeris:
  binary: /usr/local/bin/swetest
  ephe_path: /usr/share/ephe
  timeout: 3s
aspects:
  orbs:
    conjunction: 10
    trine: 7
  luminaries: [Sun, Moon, Ascendant]
houses:
  default_system: K
cache:
  backend: layered
  redis:
    host: cache.internal
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, "debug", c.Logger.Level)
	assert.Equal(t, "/usr/local/bin/swetest", c.Ephemeris.Binary)
	assert.Equal(t, 3*time.Second, c.Ephemeris.Timeout)
	assert.Equal(t, map[string]float64{"conjunction": 10, "trine": 7}, c.Aspects.Orbs)
	assert.Equal(t, []string{"Sun", "Moon", "Ascendant"}, c.Aspects.Luminaries)
	assert.Equal(t, "K", c.Houses.DefaultSystem)
	assert.Equal(t, "layered", c.Cache.Backend)
	assert.Equal(t, "cache.internal", c.Cache.Redis.Host)
	assert.Equal(t, 4, c.Ephemeris.MaxConcurrent, "unset keys keep defaults")
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
aspects:
  luminary_bonus: 0
patterns:
  top_keywords: 0
cache:
  redis:
    db: 0
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Aspects.LuminaryBonus)
	assert.Equal(t, 0, c.Patterns.TopKeywords)
	assert.Equal(t, 8.0, c.Patterns.TSquareTolerance, "absent keys still default")

	c, err = LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 0.0, c.Aspects.LuminaryBonus, "env pass revalidates without refilling")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero tolerance": "houses:\n  tolerance: 0\n",
		"backend":        "cache:\n  backend: memcached\n",
		"orb":            "aspects:\n  orbs:\n    trine: -1\n",
		"house":          "houses:\n  default_system: Z\n",
		"concurrency":    "ephemeris:\n  max_concurrent: -2\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
			var errs validate.Errors
			assert.True(t, errors.As(err, &errs))
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("SWETEST_PATH", "/opt/swe/swetest")
	t.Setenv("EPHE_PATH", "/opt/swe/ephe")
	t.Setenv("CACHE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "10.0.0.5:6380")
	t.Setenv("LOG_LEVEL", "warn")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/swe/swetest", c.Ephemeris.Binary)
	assert.Equal(t, "/opt/swe/ephe", c.Ephemeris.EphePath)
	assert.Equal(t, "redis", c.Cache.Backend)
	assert.Equal(t, "10.0.0.5", c.Cache.Redis.Host)
	assert.Equal(t, 6380, c.Cache.Redis.Port)
	assert.Equal(t, "warn", c.Logger.Level)
}

func TestLoadWithEnvBadValues(t *testing.T) {
	t.Setenv("REDIS_ADDR", "no-port")
	_, err := LoadWithEnv("")
	assert.Error(t, err)

	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "chatty")
	_, err = LoadWithEnv("")
	assert.Error(t, err)
}

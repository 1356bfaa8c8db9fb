// AngelaMos | 2026
// config_test.go

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()

	k := koanf.New(".")
	require.NoError(t, loadDefaults(k))
	require.NoError(t, k.Set("database.url", "postgres://localhost/community"))
	require.NoError(t, k.Set("redis.url", "redis://localhost:6379/0"))
	require.NoError(t, k.Set("jwt.private_key_path", "keys/private.pem"))
	require.NoError(t, k.Set("jwt.public_key_path", "keys/public.pem"))

	c := &Config{}
	require.NoError(t, k.Unmarshal("", c))
	return c
}

func TestDefaultsAreValid(t *testing.T) {
	c := defaultConfig(t)
	require.NoError(t, validate(c))

	assert.Equal(t, RealtimeBusLocal, c.Realtime.Bus)
	assert.Equal(t, 50*time.Second, c.Realtime.PingInterval)
	assert.True(t, c.Metrics.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"missing database", func(c *Config) { c.Database.URL = "" }, "DATABASE_URL"},
		{"missing redis", func(c *Config) { c.Redis.URL = "" }, "REDIS_URL"},
		{"wildcard with credentials", func(c *Config) {
			c.CORS.AllowCredentials = true
			c.CORS.AllowedOrigins = []string{"*"}
		}, "wildcard"},
		{"unknown bus", func(c *Config) { c.Realtime.Bus = "kafka" }, "realtime.bus"},
		{"ping slower than pong", func(c *Config) {
			c.Realtime.PingInterval = time.Minute
			c.Realtime.PongTimeout = 30 * time.Second
		}, "ping_interval"},
		{"zero send buffer", func(c *Config) { c.Realtime.SendBuffer = 0 }, "send_buffer"},
		{"insecure otel in production", func(c *Config) {
			c.App.Environment = "production"
			c.Otel.Enabled = true
			c.Otel.Insecure = true
		}, "OTEL_INSECURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := defaultConfig(t)
			tt.mutate(c)

			err := validate(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := defaultConfig(t)
	c.Database.URL = ""
	c.Redis.URL = ""
	c.RateLimit.Window = 0

	err := validate(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "REDIS_URL")
	assert.Contains(t, err.Error(), "rate_limit")
}

func TestEnvKeyReplacer(t *testing.T) {
	assert.Equal(t, "realtime.bus", envKeyReplacer("REALTIME_BUS"))
	assert.Equal(t, "otel.endpoint", envKeyReplacer("OTEL_EXPORTER_OTLP_ENDPOINT"))
	assert.Empty(t, envKeyReplacer("HOME"))
}

func requiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/community")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_PRIVATE_KEY_PATH", "keys/private.pem")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "keys/public.pem")
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	requiredEnv(t)
	t.Setenv("LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"log:\n  level: warn\nrealtime:\n  bus: redis\n  channel: community:test\n",
	), 0o600))

	c, err := load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, RealtimeBusRedis, c.Realtime.Bus)
	assert.Equal(t, "community:test", c.Realtime.Channel)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	requiredEnv(t)

	c, err := load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/community", c.Database.URL)
}

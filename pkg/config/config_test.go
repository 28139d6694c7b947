package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
logging:
  level: debug
server:
  address: ":9090"
backend:
  mode: auto
  endpoint: http://localhost:5000
  request_timeout: 10s
notebooks:
  - id: go-basics
    name: Go Basics
    topics: [syntax, tooling]
    active: true
  - id: go-concurrency
    name: Go Concurrency
rate_limit:
  max_requests: 5
  window: 30m
cache:
  ttl: 12h
`))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, ModeAuto, cfg.Backend.Mode)
	assert.Equal(t, 10*time.Second, cfg.Backend.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Backend.HealthTimeout) // default
	require.Len(t, cfg.Notebooks, 2)
	assert.Equal(t, []string{"syntax", "tooling"}, cfg.Notebooks[0].Topics)
	assert.True(t, cfg.Notebooks[0].Active)
	assert.Equal(t, int64(5), cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
}

func TestParse_DefaultsApplied(t *testing.T) {
	cfg, err := Parse([]byte(`
backend:
  mode: offline
`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(20), cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 30*time.Second, cfg.Backend.RequestTimeout)
	assert.True(t, cfg.RateLimit.IsEnabled())
}

func TestParse_JSONFallback(t *testing.T) {
	cfg, err := Parse([]byte(`{"backend": {"mode": "offline"}, "rate_limit": {"max_requests": 3}}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.RateLimit.MaxRequests)
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("GATEWAY_ENDPOINT", "http://backend:5000")

	cfg, err := Parse([]byte(`
backend:
  mode: remote
  endpoint: ${GATEWAY_ENDPOINT}
server:
  address: "${GATEWAY_ADDR:-:8080}"
`))
	require.NoError(t, err)
	assert.Equal(t, "http://backend:5000", cfg.Backend.Endpoint)
	assert.Equal(t, ":8080", cfg.Server.Address)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			"invalid mode",
			"backend:\n  mode: quantum\n",
			"invalid backend.mode",
		},
		{
			"remote without endpoint",
			"backend:\n  mode: remote\n",
			"backend.endpoint is required",
		},
		{
			"duplicate notebook ids",
			"backend:\n  mode: offline\nnotebooks:\n  - id: a\n  - id: a\n",
			"duplicate notebook id",
		},
		{
			"two active notebooks",
			"backend:\n  mode: offline\nnotebooks:\n  - id: a\n    active: true\n  - id: b\n    active: true\n",
			"at most one notebook may be active",
		},
		{
			"notebook without id",
			"backend:\n  mode: offline\nnotebooks:\n  - name: unnamed\n",
			"notebook id is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ModeOffline, cfg.Backend.Mode)
	require.NoError(t, cfg.Validate())
}

func TestExpandEnvString(t *testing.T) {
	t.Setenv("FOO", "bar")

	assert.Equal(t, "bar", expandEnvString("${FOO}"))
	assert.Equal(t, "bar", expandEnvString("$FOO"))
	assert.Equal(t, "bar", expandEnvString("${FOO:-fallback}"))
	assert.Equal(t, "fallback", expandEnvString("${MISSING_VAR_42:-fallback}"))
	assert.Equal(t, "plain", expandEnvString("plain"))
}

package rustbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePluginConfigDefaults(t *testing.T) {
	cfg, err := ParsePluginConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultShutdownTimeoutMS, cfg.ShutdownTimeoutMS)
	assert.Equal(t, defaultMaxConcurrentOps, cfg.MaxConcurrentOps)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, uint32(0), cfg.WorkerThreads)
}

func TestParsePluginConfigOverrides(t *testing.T) {
	raw := []byte(`{"worker_threads":4,"log_level":"debug","shutdown_timeout_ms":2000,"max_concurrent_ops":10,"init_params":{"a":1}}`)
	cfg, err := ParsePluginConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), cfg.WorkerThreads)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint64(2000), cfg.ShutdownTimeoutMS)
	assert.Equal(t, uint32(10), cfg.MaxConcurrentOps)
	assert.JSONEq(t, `{"a":1}`, string(cfg.InitParams))
}

func TestParsePluginConfigInvalidJSON(t *testing.T) {
	_, err := ParsePluginConfig([]byte("not json"))
	require.Error(t, err)
}

func TestLifecycleStateTerminal(t *testing.T) {
	assert.True(t, StateStopped.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateActive.Terminal())
	assert.Equal(t, "active", StateActive.String())
}

package rustbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jrobhoward/rustbridge/errcode"
)

// Plugin is the capability set a host plugin implements. All methods may
// suspend: implementations should honor ctx cancellation promptly, since
// the bridge drives OnStop under a deadline and handle_request under
// cooperative cancellation.
type Plugin interface {
	// OnStart is invoked once while the handle transitions Starting -> Active.
	OnStart(ctx context.Context, pctx *PluginContext) error

	// OnStop is invoked once while the handle transitions Stopping -> Stopped.
	// It is driven under the deadline configured by ShutdownTimeoutMS.
	OnStop(ctx context.Context) error

	// HandleRequest dispatches a JSON-transport request. Implementations
	// that don't recognize typeTag should return an error wrapping
	// errcode.New(errcode.UnknownMessageType, ...) so the runtime reports
	// code 6 rather than 7.
	HandleRequest(ctx context.Context, typeTag string, payload []byte) ([]byte, error)
}

// PluginContext is the read-only configuration and services exposed to a
// Plugin for its lifetime. It is owned by the Handle.
type PluginContext struct {
	config      PluginConfig
	loggerLevel string
}

// NewPluginContext builds a PluginContext from a parsed config.
func NewPluginContext(cfg PluginConfig) *PluginContext {
	return &PluginContext{config: cfg}
}

// Config returns the parsed plugin configuration.
func (c *PluginContext) Config() PluginConfig { return c.config }

// InitParams returns the opaque init_params JSON value passed by the host,
// or nil if none was supplied.
func (c *PluginContext) InitParams() json.RawMessage { return c.config.InitParams }

// PluginConfig is the configuration record deserialized from the JSON byte
// buffer the host supplies at plugin_init.
type PluginConfig struct {
	// WorkerThreads sizes the async bridge's worker pool. 0 means "auto"
	// (derived from available cores).
	WorkerThreads uint32 `json:"worker_threads"`

	// LogLevel is one of trace/debug/info/warn/error/off.
	LogLevel string `json:"log_level"`

	// ShutdownTimeoutMS bounds how long OnStop may run before the handle
	// is forced into Failed. Defaults to 5000 when zero.
	ShutdownTimeoutMS uint64 `json:"shutdown_timeout_ms"`

	// MaxConcurrentOps bounds in-flight handle_request calls. 0 means
	// "unlimited", which resolves to a default cap of 1000.
	MaxConcurrentOps uint32 `json:"max_concurrent_ops"`

	// InitParams is an opaque JSON value forwarded to the plugin unparsed.
	InitParams json.RawMessage `json:"init_params"`
}

const (
	defaultShutdownTimeoutMS uint64 = 5000
	defaultMaxConcurrentOps  uint32 = 1000
)

// ParsePluginConfig decodes and normalizes a PluginConfig from its JSON
// wire form, applying the defaults spec.md §3 assigns to zero values.
func ParsePluginConfig(raw []byte) (PluginConfig, error) {
	var cfg PluginConfig
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return PluginConfig{}, errcode.Wrap(errcode.ConfigError, err, "parse plugin config")
	}
	if cfg.ShutdownTimeoutMS == 0 {
		cfg.ShutdownTimeoutMS = defaultShutdownTimeoutMS
	}
	if cfg.MaxConcurrentOps == 0 {
		cfg.MaxConcurrentOps = defaultMaxConcurrentOps
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// LifecycleState is the finite state a Handle moves through. Stored
// atomically; only the transitions in runtime.AllowedTransition are valid.
type LifecycleState uint32

const (
	StateInstalled LifecycleState = iota
	StateStarting
	StateActive
	StateStopping
	StateStopped
	StateFailed
)

// String renders the state the way host bindings display it in logs.
func (s LifecycleState) String() string {
	switch s {
	case StateInstalled:
		return "installed"
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(s))
	}
}

// Terminal reports whether s is one of the two terminal states.
func (s LifecycleState) Terminal() bool {
	return s == StateStopped || s == StateFailed
}

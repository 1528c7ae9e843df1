package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/jrobhoward/rustbridge"
	"github.com/jrobhoward/rustbridge/bridge"
	"github.com/jrobhoward/rustbridge/errcode"
	"github.com/jrobhoward/rustbridge/rlog"
)

// Handle is the unit of ownership per plugin instance (spec.md §3):
// exclusively owns the Plugin, its PluginContext, the async bridge, the
// admission permit source, and the lifecycle state. The ABI addresses a
// Handle only through its registry id; this type never crosses the FFI
// boundary directly.
type Handle struct {
	plugin rustbridge.Plugin
	pctx   *rustbridge.PluginContext

	lifecycle *LifecycleCell
	admission *Admission
	bridge    *bridge.Bridge

	shutdownTimeout time.Duration
	logTarget       string
}

// New builds a Handle in the Installed state for the given plugin and
// parsed config. The bridge and admission gate are sized from cfg.
func New(plugin rustbridge.Plugin, cfg rustbridge.PluginConfig) *Handle {
	return &Handle{
		plugin:          plugin,
		pctx:            rustbridge.NewPluginContext(cfg),
		lifecycle:       NewLifecycleCell(rustbridge.StateInstalled),
		admission:       NewAdmission(cfg.MaxConcurrentOps),
		bridge:          bridge.New(cfg.WorkerThreads),
		shutdownTimeout: time.Duration(cfg.ShutdownTimeoutMS) * time.Millisecond,
		logTarget:       "plugin.runtime",
	}
}

// State returns the Handle's current lifecycle state.
func (h *Handle) State() rustbridge.LifecycleState { return h.lifecycle.Load() }

// Rejected returns the cumulative admission-control rejection count.
func (h *Handle) Rejected() uint64 { return h.admission.Rejected() }

// Start drives Installed -> Starting -> Active|Failed by running
// Plugin.OnStart under the bridge. It does not touch the logging upcall
// slot; package abi registers the host callback before calling Start.
func (h *Handle) Start(ctx context.Context) error {
	if err := h.lifecycle.Transition(rustbridge.StateStarting); err != nil {
		return err
	}

	rlog.Emit(rlog.Info, h.logTarget, "starting plugin")

	_, err := bridge.CallSync(h.bridge, ctx, func(c context.Context) (struct{}, error) {
		return struct{}{}, h.plugin.OnStart(c, h.pctx)
	})
	if err != nil {
		_ = h.lifecycle.Transition(rustbridge.StateFailed)
		return errcode.Wrap(errcode.InitFailed, err, "on_start failed")
	}

	if err := h.lifecycle.Transition(rustbridge.StateActive); err != nil {
		return err
	}
	rlog.Emit(rlog.Info, h.logTarget, "plugin active")
	return nil
}

// Shutdown drives Active -> Stopping -> Stopped|Failed. Idempotent for a
// Handle already in a terminal state, matching plugin_shutdown's
// idempotent contract at the ABI layer.
func (h *Handle) Shutdown(ctx context.Context) error {
	if h.lifecycle.Load().Terminal() {
		return nil
	}
	if err := h.lifecycle.Transition(rustbridge.StateStopping); err != nil {
		return err
	}

	// RunStop must run before InitiateShutdown: CallSync bails out with
	// RuntimeError as soon as the bridge is marked shutting down, so
	// on_stop has to be driven to completion (or timeout) first and only
	// then does the worker pool get told to wind down.
	ok, err := bridge.RunStop(h.bridge, ctx, h.shutdownTimeout, h.plugin.OnStop)
	h.bridge.InitiateShutdown()
	_ = h.bridge.Wait()

	if !ok || err != nil {
		_ = h.lifecycle.Transition(rustbridge.StateFailed)
		rlog.Emit(rlog.Error, h.logTarget, "shutdown failed: %v", err)
		return errcode.Wrap(errcode.ShutdownFailed, err, "on_stop failed or timed out")
	}

	if err := h.lifecycle.Transition(rustbridge.StateStopped); err != nil {
		return err
	}
	rlog.Emit(rlog.Info, h.logTarget, "plugin stopped")
	return nil
}

// callHandler runs fn on the bridge and normalizes its error into the
// closed errcode taxonomy: an error already tagged by errcode passes
// through unchanged (directly or wrapped), anything else becomes HandlerError (code 7) per
// spec.md §4.F's "business-logic failure surfaced by plugin" rule.
func callHandler[T any](h *Handle, ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	out, err := bridge.CallSync(h.bridge, ctx, fn)
	if err == nil {
		return out, nil
	}
	var tagged *errcode.Error
	if errors.As(err, &tagged) {
		return out, err
	}
	return out, errcode.Wrap(errcode.HandlerError, err, "handler failed")
}

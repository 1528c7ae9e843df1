// Package abi is the C-linkage surface a plugin binary exports when built
// with `go build -buildmode=c-shared` (spec.md §4.G/§6.1). Every exported
// function validates its pointer arguments, never lets a Go panic unwind
// across the boundary, and returns its outcome in-band as a Buffer or
// BinaryResponse rather than failing out-of-band.
//
// This package does not ship a concrete Plugin: the binary that imports
// it sets Factory in its own init() before the host loads the library.
package abi

/*
#include <stdint.h>
#include <stddef.h>
#include <stdbool.h>
#include <stdlib.h>

typedef struct {
	uint8_t* data;
	size_t   len;
	size_t   capacity;
	uint32_t error_code;
} rb_buffer_t;

typedef struct {
	uint32_t error_code;
	uint32_t len;
	uint32_t capacity;
	uint32_t _padding;
	uint8_t* data;
} rb_binary_response_t;

typedef void (*rb_log_cb_t)(uint8_t lvl, const char* target, const uint8_t* msg, size_t msg_len);

static inline void rb_invoke_log_cb(rb_log_cb_t cb, uint8_t lvl, const char* target,
                                    const uint8_t* msg, size_t msg_len) {
	if (cb != NULL) {
		cb(lvl, target, msg, msg_len);
	}
}
*/
import "C"

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/cgo"
	"unsafe"

	"github.com/jrobhoward/rustbridge"
	"github.com/jrobhoward/rustbridge/errcode"
	"github.com/jrobhoward/rustbridge/pbuf"
	"github.com/jrobhoward/rustbridge/registry"
	"github.com/jrobhoward/rustbridge/rlog"
	"github.com/jrobhoward/rustbridge/runtime"
)

// Factory constructs the concrete Plugin this shared library hosts. A
// generated `cmd/<plugin>/main.go` sets this in init() before any ABI
// entry point can be reached by a host.
var Factory func() rustbridge.Plugin

var handles = registry.New[*runtime.Handle]()

// invalidHandleState is plugin_get_state's sentinel for an id with no
// live entry, distinct from any real LifecycleState value.
const invalidHandleState = 255

//export plugin_create
func plugin_create() unsafe.Pointer {
	if Factory == nil {
		return nil
	}
	h := cgo.NewHandle(Factory())
	return unsafe.Pointer(uintptr(h))
}

//export plugin_init
func plugin_init(pluginObj unsafe.Pointer, configJSON *C.uint8_t, configLen C.size_t, logCB C.rb_log_cb_t) C.uintptr_t {
	if pluginObj == nil {
		return 0
	}
	ch := cgo.Handle(uintptr(pluginObj))
	plugin, ok := ch.Value().(rustbridge.Plugin)
	ch.Delete()
	if !ok {
		return 0
	}

	raw := goBytes(configJSON, configLen)
	cfg, err := rustbridge.ParsePluginConfig(raw)
	if err != nil {
		rlog.Emit(rlog.Error, "plugin.abi", "plugin_init: %v", err)
		return 0
	}

	rlog.SetLevel(rlog.ParseLevel(cfg.LogLevel))
	if logCB != nil {
		rlog.Register(makeUpcall(logCB))
	}

	handle := runtime.New(plugin, cfg)
	if err := withRecoverErr(func() error { return handle.Start(context.Background()) }); err != nil {
		rlog.Emit(rlog.Error, "plugin.abi", "plugin_init: on_start failed: %v", err)
		if logCB != nil {
			rlog.Release()
		}
		return 0
	}

	id := handles.Insert(handle)
	rlog.WithFields(rlog.Info, "plugin.abi", "handshake complete", map[string]interface{}{
		"handle_id":           id,
		"log_level":           cfg.LogLevel,
		"worker_threads":      cfg.WorkerThreads,
		"max_concurrent_ops":  cfg.MaxConcurrentOps,
		"shutdown_timeout_ms": cfg.ShutdownTimeoutMS,
	})
	return C.uintptr_t(id)
}

// makeUpcall closes over a *C* function pointer, which cgo permits to be
// stored in a Go closure as long as it is only ever invoked through cgo
// calls (never dereferenced from Go); rb_invoke_log_cb does the actual
// call and treats NULL as a no-op.
func makeUpcall(cb C.rb_log_cb_t) rlog.Upcall {
	return func(level rlog.Level, target string, msg string) {
		ctarget := C.CString(target)
		defer C.free(unsafe.Pointer(ctarget))

		var msgPtr *C.uint8_t
		if len(msg) > 0 {
			msgPtr = (*C.uint8_t)(unsafe.Pointer(C.CString(msg)))
			defer C.free(unsafe.Pointer(msgPtr))
		}
		C.rb_invoke_log_cb(cb, C.uint8_t(level), ctarget, msgPtr, C.size_t(len(msg)))
	}
}

//export plugin_shutdown
func plugin_shutdown(h C.uintptr_t) C.bool {
	handle, ok := handles.Get(uint64(h))
	if !ok {
		return C.bool(false)
	}
	defer handles.Release(uint64(h))

	err := withRecoverErr(func() error { return handle.Shutdown(context.Background()) })
	handles.Remove(uint64(h))
	runtime.ClearBinaryHandlers()
	rlog.Release()
	if err != nil {
		rlog.Emit(rlog.Error, "plugin.abi", "plugin_shutdown: %v", err)
		return C.bool(false)
	}
	return C.bool(true)
}

//export plugin_call
func plugin_call(h C.uintptr_t, typeTag *C.char, req *C.uint8_t, reqLen C.size_t) C.rb_buffer_t {
	handle, ok := handles.Get(uint64(h))
	if !ok {
		return bufferFrom(pbuf.Failure(uint32(errcode.FfiError), "invalid handle"))
	}
	defer handles.Release(uint64(h))

	if typeTag == nil {
		return bufferFrom(pbuf.Failure(uint32(errcode.FfiError), "null type_tag"))
	}

	payload := bufferFrom(withRecover(func() pbuf.Payload {
		raw := goBytes(req, reqLen)
		out := handle.DispatchJSON(context.Background(), envelopeFor(C.GoString(typeTag), raw))
		return pbuf.Success(out)
	}))
	return payload
}

// envelopeFor wraps a raw request payload into the wire RequestEnvelope
// DispatchJSON expects, since the C signature carries type_tag and
// payload as separate arguments rather than one pre-built envelope.
func envelopeFor(typeTag string, payload []byte) []byte {
	if len(payload) == 0 {
		payload = []byte("null")
	}
	out, err := json.Marshal(errcode.RequestEnvelope{
		TypeTag: typeTag,
		Payload: payload,
	})
	if err != nil {
		return nil
	}
	return out
}

//export plugin_call_raw
func plugin_call_raw(h C.uintptr_t, messageID C.uint32_t, req unsafe.Pointer, reqSize C.size_t) C.rb_binary_response_t {
	handle, ok := handles.Get(uint64(h))
	if !ok {
		return binaryResponseFrom(pbuf.Failure(uint32(errcode.FfiError), "invalid handle"))
	}
	defer handles.Release(uint64(h))

	result := withRecover(func() pbuf.Payload {
		raw := C.GoBytes(req, C.int(reqSize))
		return handle.DispatchBinary(context.Background(), uint32(messageID), raw)
	})
	return binaryResponseFrom(result)
}

//export plugin_free_buffer
func plugin_free_buffer(buf *C.rb_buffer_t) {
	if buf == nil || buf.data == nil {
		return
	}
	C.free(unsafe.Pointer(buf.data))
	buf.data, buf.len, buf.capacity = nil, 0, 0
}

//export rb_response_free
func rb_response_free(resp *C.rb_binary_response_t) {
	if resp == nil || resp.data == nil {
		return
	}
	C.free(unsafe.Pointer(resp.data))
	resp.data, resp.len, resp.capacity = nil, 0, 0
}

//export plugin_set_log_level
func plugin_set_log_level(h C.uintptr_t, level C.uint8_t) {
	// The subscriber is process-global (spec.md §4.D): h is accepted for
	// API symmetry with every other entry point but every live handle
	// shares this one reload.
	rlog.SetLevel(rlog.Level(level))
}

//export plugin_get_state
func plugin_get_state(h C.uintptr_t) C.uint8_t {
	handle, ok := handles.Get(uint64(h))
	if !ok {
		return invalidHandleState
	}
	defer handles.Release(uint64(h))
	return C.uint8_t(handle.State())
}

//export plugin_get_rejected_count
func plugin_get_rejected_count(h C.uintptr_t) C.uint64_t {
	handle, ok := handles.Get(uint64(h))
	if !ok {
		return 0
	}
	defer handles.Release(uint64(h))
	return C.uint64_t(handle.Rejected())
}

//export plugin_call_async
func plugin_call_async() C.uint64_t {
	return 0 // reserved; not implemented, see spec.md §9 open question (a)
}

//export plugin_cancel_async
func plugin_cancel_async(requestID C.uint64_t) {
	// reserved; no-op until the async entry points are specified
}

func withRecover(fn func() pbuf.Payload) (result pbuf.Payload) {
	defer func() {
		if r := recover(); r != nil {
			result = pbuf.Failure(uint32(errcode.Internal), panicMessage(r))
		}
	}()
	return fn()
}

// withRecoverErr is withRecover's counterpart for entry points that report
// their outcome as a plain error rather than a pbuf.Payload (plugin_init,
// plugin_shutdown): a panic in Plugin.OnStart/OnStop must not unwind across
// the cgo boundary any more than one in HandleRequest may.
func withRecoverErr(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errcode.New(errcode.Internal, "%s", panicMessage(r))
		}
	}()
	return fn()
}

func panicMessage(r interface{}) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", r)
}

func goBytes(p *C.uint8_t, n C.size_t) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(p), C.int(n))
}

func bufferFrom(p pbuf.Payload) C.rb_buffer_t {
	ptr := C.CBytes(p.Data)
	return C.rb_buffer_t{
		data:       (*C.uint8_t)(ptr),
		len:        C.size_t(len(p.Data)),
		capacity:   C.size_t(len(p.Data)),
		error_code: C.uint32_t(p.ErrorCode),
	}
}

func binaryResponseFrom(p pbuf.Payload) C.rb_binary_response_t {
	body, code, err := pbuf.EncodeBinary(p)
	if err != nil {
		body, code = []byte(err.Error()), uint32(errcode.Internal)
	}
	ptr := C.CBytes(body)
	return C.rb_binary_response_t{
		error_code: C.uint32_t(code),
		len:        C.uint32_t(len(body)),
		capacity:   C.uint32_t(len(body)),
		data:       (*C.uint8_t)(ptr),
	}
}

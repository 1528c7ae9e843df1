package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jrobhoward/rustbridge/errcode"
	"github.com/jrobhoward/rustbridge/pbuf"
	"github.com/jrobhoward/rustbridge/rlog"
)

// BinaryHandler handles one message_id in the binary transport, receiving
// the raw request bytes (the plugin owns struct layout validation,
// including any version byte) and returning response bytes or an error.
type BinaryHandler func(ctx context.Context, payload []byte) ([]byte, error)

// binaryHandlerNotFound is the binary taxonomy's own "no handler" code
// (4), distinct from the JSON transport's UnknownMessageType (6) per
// spec.md §4.F.
const binaryHandlerNotFound uint32 = 4

var (
	binaryMu       sync.RWMutex
	binaryHandlers = map[uint32]BinaryHandler{}
)

// RegisterBinary installs handlers for message ids at plugin construction
// time. Registrations are process-global, mirroring the JSON handler
// table's plugin-defined-at-construction lifetime.
func RegisterBinary(handlers map[uint32]BinaryHandler) {
	binaryMu.Lock()
	defer binaryMu.Unlock()
	for id, h := range handlers {
		binaryHandlers[id] = h
	}
}

// ClearBinaryHandlers empties the process-global binary handler table,
// called on plugin_shutdown so stale handler closures over a freed
// plugin cannot be invoked after reload.
func ClearBinaryHandlers() {
	binaryMu.Lock()
	defer binaryMu.Unlock()
	binaryHandlers = map[uint32]BinaryHandler{}
}

func lookupBinary(id uint32) (BinaryHandler, bool) {
	binaryMu.RLock()
	defer binaryMu.RUnlock()
	h, ok := binaryHandlers[id]
	return h, ok
}

// DispatchBinary runs the binary transport's dispatch path for one call:
// admission control, lookup by message_id, invoke under CallSync, wrap
// the outcome as a pbuf.Payload ready to copy into a BinaryResponse.
func (h *Handle) DispatchBinary(ctx context.Context, messageID uint32, payload []byte) pbuf.Payload {
	callID := uuid.New().String()

	if err := h.lifecycle.requireActive(); err != nil {
		return pbuf.Failure(errcode.CodeOf(err), err.Error())
	}
	if !h.admission.TryAcquire() {
		return pbuf.Failure(uint32(errcode.TooManyRequests), "admission control rejected the request")
	}
	defer h.admission.Release()

	handler, ok := lookupBinary(messageID)
	if !ok {
		return pbuf.Failure(binaryHandlerNotFound, "no handler registered for message id")
	}
	rlog.Emit(rlog.Debug, h.logTarget, "dispatch binary call=%s message_id=%d", callID, messageID)

	out, err := callHandler(h, ctx, func(c context.Context) ([]byte, error) {
		return handler(c, payload)
	})
	if err != nil {
		rlog.Emit(rlog.Debug, h.logTarget, "dispatch binary call=%s failed: %v", callID, err)
		return pbuf.Failure(errcode.CodeOf(err), err.Error())
	}
	return pbuf.Success(out)
}

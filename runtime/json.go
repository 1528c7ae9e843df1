package runtime

import (
	"context"

	"github.com/google/uuid"

	"github.com/jrobhoward/rustbridge/errcode"
	"github.com/jrobhoward/rustbridge/rlog"
)

// DispatchJSON runs the JSON transport's dispatch path for one call
// (spec.md §4.F): admission control, envelope decode, Plugin.HandleRequest
// under CallSync, and ResponseEnvelope encoding. The returned bytes are
// always a well-formed ResponseEnvelope — DispatchJSON itself never
// returns a Go error, since every failure mode has an in-band wire form.
func (h *Handle) DispatchJSON(ctx context.Context, raw []byte) []byte {
	callID := uuid.New().String()

	if err := h.lifecycle.requireActive(); err != nil {
		return encodeFailure(err)
	}
	if !h.admission.TryAcquire() {
		return encodeFailure(errcode.New(errcode.TooManyRequests, "admission control rejected the request"))
	}
	defer h.admission.Release()

	req, err := errcode.DecodeRequestEnvelope(raw)
	if err != nil {
		return encodeFailure(err)
	}
	rlog.Emit(rlog.Debug, h.logTarget, "dispatch json call=%s type_tag=%s", callID, req.TypeTag)

	out, err := callHandler(h, ctx, func(c context.Context) ([]byte, error) {
		return h.plugin.HandleRequest(c, req.TypeTag, req.Payload)
	})
	if err != nil {
		rlog.Emit(rlog.Debug, h.logTarget, "dispatch json call=%s failed: %v", callID, err)
		return encodeFailure(err)
	}

	data, err := errcode.Success(out).Encode()
	if err != nil {
		return encodeFailure(errcode.Wrap(errcode.Serialization, err, "encode response envelope"))
	}
	return data
}

func encodeFailure(err error) []byte {
	data, encErr := errcode.Failure(err).Encode()
	if encErr != nil {
		// Encoding a ResponseEnvelope failing is itself an Internal bug;
		// fall back to a hand-built minimal envelope rather than return
		// nothing across the ABI.
		return []byte(`{"status":"error","error_code":11,"error_message":"failed to encode error response"}`)
	}
	return data
}

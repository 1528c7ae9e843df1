package pbuf

import (
	"github.com/fxamacker/cbor/v2"
)

// BinaryEnvelope mirrors RequestEnvelope/ResponseEnvelope for the binary
// transport, keyed by message_id rather than type_tag per spec.md §3.
type BinaryEnvelope struct {
	MessageID uint32 `cbor:"message_id"`
	Payload   []byte `cbor:"payload"`
}

// BinaryResult is the in-process representation of a binary dispatch
// outcome, encoded to CBOR before it is copied into a BinaryResponse.
type BinaryResult struct {
	MessageID uint32
	Payload   Payload
}

// EncodeBinary renders the dispatch outcome's payload bytes ready to copy
// into a BinaryResponse buffer, returning the bytes and the error code to
// store in the response header. On success Payload.Data is returned as-is
// (already CBOR bytes produced by the handler); on failure the message is
// itself CBOR-encoded so callers on both sides of the ABI use one codec.
func EncodeBinary(p Payload) ([]byte, uint32, error) {
	if !p.IsError() {
		return p.Data, 0, nil
	}
	msg, err := cbor.Marshal(string(p.Data))
	if err != nil {
		return nil, p.ErrorCode, err
	}
	return msg, p.ErrorCode, nil
}

// DecodeBinaryEnvelope parses a raw CBOR binary-transport request frame.
func DecodeBinaryEnvelope(raw []byte) (*BinaryEnvelope, error) {
	var env BinaryEnvelope
	if err := cbor.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Package pbuf defines the two ABI buffer layouts used to hand byte
// payloads across the FFI boundary (spec.md §4.B) and the pure-Go helpers
// that build their contents. The actual foreign-heap allocation and the
// matching free functions are cgo-specific and live in package abi, which
// imports this package for the layout and the "plugin allocates, host
// frees" ownership discipline it encodes.
package pbuf

// BufferLayout documents the field order and approximate size of the JSON
// transport's Buffer struct, 24-32 bytes depending on pointer width:
// { data *uint8, len uintptr, capacity uintptr, error_code uint32 }.
const BufferLayout = "data,len,capacity,error_code"

// BinaryResponseLayout documents the field order of the binary
// transport's BinaryResponse struct, deliberately different from Buffer
// so host bindings can detect the transport statically:
// { error_code uint32, len uint32, capacity uint32, _padding uint32, data *uint8 }.
const BinaryResponseLayout = "error_code,len,capacity,padding,data"

// Payload is the in-process (pre-marshal) representation of a buffer's
// contents: either a successful byte payload (ErrorCode == 0) or a UTF-8
// error message (ErrorCode != 0). Exactly one of Data's two meanings
// applies depending on ErrorCode, per the Buffer invariant in spec.md §3.
type Payload struct {
	Data      []byte
	ErrorCode uint32
}

// Success builds a Payload carrying a successful response body.
func Success(data []byte) Payload {
	return Payload{Data: data, ErrorCode: 0}
}

// Failure builds a Payload carrying an in-band error message. The ABI
// never signals failure out-of-band (no null return, no exit status) —
// the message bytes always ride in the same Data field a success would
// have used.
func Failure(code uint32, message string) Payload {
	if code == 0 {
		code = 1 // never let a "failure" carry the Ok code
	}
	return Payload{Data: []byte(message), ErrorCode: code}
}

// IsError reports whether p represents an in-band error.
func (p Payload) IsError() bool { return p.ErrorCode != 0 }

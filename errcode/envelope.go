package errcode

import "encoding/json"

// RequestEnvelope is the JSON-transport request shape of spec.md §3.
type RequestEnvelope struct {
	TypeTag   string          `json:"type_tag"`
	Payload   json.RawMessage `json:"payload"`
	RequestID *uint64         `json:"request_id,omitempty"`
}

// ResponseStatus discriminates success/error ResponseEnvelope forms.
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// ResponseEnvelope is the JSON-transport response shape of spec.md §3/§4.A.
// The JSON transport always returns one of these, even on failure.
type ResponseEnvelope struct {
	Status       ResponseStatus  `json:"status"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	ErrorCode    *uint32         `json:"error_code,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// Success builds a ResponseEnvelope wrapping a successful payload. A nil
// payload is encoded as the canonical empty-success value: JSON null.
func Success(payload []byte) *ResponseEnvelope {
	if payload == nil {
		payload = []byte("null")
	}
	return &ResponseEnvelope{Status: StatusSuccess, Payload: payload}
}

// Failure builds a ResponseEnvelope wrapping an error, using err's stable
// numeric code and message (or Internal/"<err>" for an untyped error).
func Failure(err error) *ResponseEnvelope {
	code := CodeOf(err)
	msg := err.Error()
	return &ResponseEnvelope{Status: StatusError, ErrorCode: &code, ErrorMessage: &msg}
}

// Encode serializes the envelope to its wire JSON form.
func (r *ResponseEnvelope) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRequestEnvelope parses the JSON-transport request shape, returning
// a Serialization-kind Error on malformed input so callers can surface
// code 5 directly.
func DecodeRequestEnvelope(raw []byte) (*RequestEnvelope, error) {
	var req RequestEnvelope
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, Wrap(Serialization, err, "decode request envelope")
	}
	return &req, nil
}

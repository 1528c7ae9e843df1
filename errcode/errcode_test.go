package errcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCodeStable(t *testing.T) {
	cases := []struct {
		k    Kind
		want uint32
	}{
		{Ok, 0}, {InvalidState, 1}, {InitFailed, 2}, {ShutdownFailed, 3},
		{ConfigError, 4}, {Serialization, 5}, {UnknownMessageType, 6},
		{HandlerError, 7}, {RuntimeError, 8}, {Cancelled, 9}, {Timeout, 10},
		{Internal, 11}, {FfiError, 12}, {TooManyRequests, 13},
	}
	for _, c := range cases {
		e := New(c.k, "x")
		assert.Equal(t, c.want, e.Code())
	}
}

func TestCodeOfUntyped(t *testing.T) {
	assert.Equal(t, uint32(Internal), CodeOf(errors.New("boom")))
	assert.Equal(t, uint32(Ok), CodeOf(nil))
}

func TestCodeOfWrapped(t *testing.T) {
	inner := New(HandlerError, "divide by zero")
	wrapped := errors.New("context: " + inner.Error())
	assert.Equal(t, uint32(Internal), CodeOf(wrapped)) // plain wrap loses type

	wrapped2 := Wrap(HandlerError, inner, "handler failed")
	assert.Equal(t, uint32(HandlerError), CodeOf(wrapped2))
	assert.ErrorIs(t, wrapped2, inner)
}

func TestResponseEnvelopeSuccess(t *testing.T) {
	env := Success([]byte(`{"ok":true}`))
	data, err := env.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","payload":{"ok":true}}`, string(data))
}

func TestResponseEnvelopeSuccessNull(t *testing.T) {
	env := Success(nil)
	data, err := env.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","payload":null}`, string(data))
}

func TestResponseEnvelopeFailure(t *testing.T) {
	env := Failure(New(UnknownMessageType, "no handler for %q", "nope"))
	data, err := env.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error_code":6`)
	assert.Contains(t, string(data), "nope")
}

func TestDecodeRequestEnvelopeBadJSON(t *testing.T) {
	_, err := DecodeRequestEnvelope([]byte("not json"))
	require.Error(t, err)
	assert.Equal(t, uint32(Serialization), CodeOf(err))
}

func TestDecodeRequestEnvelopeRoundTrip(t *testing.T) {
	raw := []byte(`{"type_tag":"echo","payload":{"message":"hi"}}`)
	req, err := DecodeRequestEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "echo", req.TypeTag)
	assert.JSONEq(t, `{"message":"hi"}`, string(req.Payload))
}

package rpc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeCall(t *testing.T) {
	data, err := EncodeCall("Add", map[string]int{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Add":{"a":2,"b":3}}`, string(data))

	data, err = EncodeCall("Ping", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ping":{}}`, string(data))

	_, err = EncodeCall("", nil)
	assert.Error(t, err)
}

func TestDecodeCall(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		tag     string
		args    string
		wantErr bool
	}{
		{name: "single tag", input: `{"Add":{"a":2,"b":3}}`, tag: "Add", args: `{"a":2,"b":3}`},
		{name: "null arguments", input: `{"Ping":null}`, tag: "Ping", args: `{}`},
		{name: "empty arguments", input: `{"Ping":{}}`, tag: "Ping", args: `{}`},
		{name: "not an object", input: `["Add"]`, wantErr: true},
		{name: "no tag", input: `{}`, wantErr: true},
		{name: "two tags", input: `{"Add":{},"Mul":{}}`, wantErr: true},
		{name: "array arguments", input: `{"Add":[2,3]}`, wantErr: true},
		{name: "garbage", input: `{"Add":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, args, err := DecodeCall([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKind(err, KindDecode), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tag, tag)
			assert.JSONEq(t, tt.args, string(args))
		})
	}
}

func TestResponseRoundTrip(t *testing.T) {
	data, err := EncodeResult(int64(6))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":6}`, string(data))

	var got int64
	require.NoError(t, DecodeResponse(data, &got))
	assert.Equal(t, int64(6), got)

	unit, err := EncodeResult(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":null}`, string(unit))
	assert.NoError(t, DecodeResponse(unit, nil))
}

func TestEncodeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rpc error keeps kind and tag",
			err:  &Error{Kind: KindDecode, Tag: "Add", Message: "missing field b"},
			want: `{"err":{"kind":"decode","tag":"Add","message":"missing field b"}}`,
		},
		{
			name: "plain error is a handler error",
			err:  errors.New("division by zero"),
			want: `{"err":{"kind":"handler","message":"division by zero"}}`,
		},
		{
			name: "cause is appended",
			err:  wrap(KindRejected, ErrInvalidAuth, "verifying contract"),
			want: `{"err":{"kind":"rejected","message":"verifying contract: auth token is invalid"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.JSONEq(t, tt.want, string(EncodeError(tt.err)))
		})
	}
}

func TestDecodeResponseErrors(t *testing.T) {
	err := DecodeResponse([]byte(`{"err":{"kind":"handler","tag":"Div","message":"division by zero"}}`), nil)
	require.Error(t, err)

	var rpcErr *Error
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, KindHandler, rpcErr.Kind)
	assert.Equal(t, "Div", rpcErr.Tag)
	assert.Equal(t, "division by zero", rpcErr.Message)

	tests := []struct {
		name string
		body string
		kind Kind
	}{
		{"not json", `<html>`, KindTransport},
		{"neither ok nor err", `{"result":1}`, KindTransport},
		{"result of wrong type", `{"ok":"six"}`, KindDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			err := DecodeResponse([]byte(tt.body), &got)
			assert.True(t, IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestErrorMatching(t *testing.T) {
	err := &Error{Kind: KindHandler, Tag: "Add", Message: "boom"}

	assert.True(t, errors.Is(err, ErrRPC))
	assert.True(t, errors.Is(err, &Error{Kind: KindHandler}))
	assert.False(t, errors.Is(err, &Error{Kind: KindDecode}))
	assert.True(t, errors.Is(err, &Error{}), "empty kind matches any")
	assert.Equal(t, "handler error in Add: boom", err.Error())

	assert.Equal(t, KindHandler, KindOf(errors.New("plain")))
	assert.Equal(t, KindRejected, KindOf(wrap(KindRejected, ErrMethod, "verifying contract")))
	assert.True(t, errors.Is(wrap(KindRejected, ErrMethod, "verifying contract"), ErrMethod))
}

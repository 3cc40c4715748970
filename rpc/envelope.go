package rpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// The wire envelope is an externally tagged JSON object holding exactly one
// key, the variant tag, whose value is the object of named arguments:
//
//	{"Add": {"a": 2, "b": 3}}
//
// Responses carry either a result or an error:
//
//	{"ok": 5}
//	{"err": {"kind": "handler", "tag": "Div", "message": "division by zero"}}

const (
	responseOK  = "ok"
	responseErr = "err"
)

type wireError struct {
	Kind    Kind   `json:"kind"`
	Tag     string `json:"tag,omitempty"`
	Message string `json:"message"`
}

// EncodeCall serializes a call envelope. A nil args encodes as an empty
// argument object.
func EncodeCall(tag string, args any) ([]byte, error) {
	if tag == "" {
		return nil, fmt.Errorf("encode call: empty tag")
	}
	var raw json.RawMessage
	if args == nil {
		raw = json.RawMessage("{}")
	} else {
		data, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode call %s: %w", tag, err)
		}
		raw = data
	}
	return json.Marshal(map[string]json.RawMessage{tag: raw})
}

// DecodeCall splits a call envelope into its tag and raw argument object.
// Failures are *Error values of KindDecode.
func DecodeCall(data []byte) (string, json.RawMessage, error) {
	var env map[string]json.RawMessage
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, wrap(KindDecode, err, "call envelope is not a JSON object")
	}
	if len(env) != 1 {
		return "", nil, Errorf(KindDecode, "call envelope must hold exactly one tag, got %d", len(env))
	}
	for tag, args := range env {
		trimmed := bytes.TrimSpace(args)
		if bytes.Equal(trimmed, []byte("null")) {
			return tag, json.RawMessage("{}"), nil
		}
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return "", nil, &Error{Kind: KindDecode, Tag: tag, Message: "call arguments must be a JSON object"}
		}
		return tag, trimmed, nil
	}
	panic("unreachable")
}

// EncodeResult serializes a successful response.
func EncodeResult(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return json.Marshal(map[string]json.RawMessage{responseOK: data})
}

// EncodeError serializes a failed response. Errors that are not *Error are
// reported as KindHandler.
func EncodeError(err error) []byte {
	we := wireError{Kind: KindOf(err), Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		we.Tag = e.Tag
		we.Message = e.Message
		if e.Err != nil && e.Err.Error() != e.Message {
			we.Message += ": " + e.Err.Error()
		}
	}
	data, mErr := json.Marshal(map[string]wireError{responseErr: we})
	if mErr != nil {
		// wireError holds only strings, so this cannot fail.
		panic(mErr)
	}
	return data
}

// DecodeResponse reads a response. On {"ok": v} it unmarshals v into result
// unless result is nil. On {"err": ...} it returns the carried *Error. Any
// other body is a KindTransport error.
func DecodeResponse(data []byte, result any) error {
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(data, &resp); err != nil {
		return wrap(KindTransport, err, "malformed response")
	}

	if raw, ok := resp[responseErr]; ok {
		var we wireError
		if err := json.Unmarshal(raw, &we); err != nil {
			return wrap(KindTransport, err, "malformed error response")
		}
		if we.Kind == "" {
			we.Kind = KindHandler
		}
		return &Error{Kind: we.Kind, Tag: we.Tag, Message: we.Message}
	}

	raw, ok := resp[responseOK]
	if !ok {
		return Errorf(KindTransport, "response holds neither %q nor %q", responseOK, responseErr)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return wrap(KindDecode, err, "result does not match the expected type")
	}
	return nil
}

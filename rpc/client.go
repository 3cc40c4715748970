package rpc

import (
	"context"
	"errors"
)

// Outbound is an encoded call ready to be sent.
type Outbound struct {
	Tag     string
	Version string
	Body    []byte
}

// Transport delivers an encoded call and returns the encoded response.
// An error means no response was obtained; failures reported by the server
// travel inside the response body.
type Transport interface {
	Send(ctx context.Context, out Outbound) ([]byte, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, out Outbound) ([]byte, error)

func (f TransportFunc) Send(ctx context.Context, out Outbound) ([]byte, error) {
	return f(ctx, out)
}

// Client encodes calls, sends them and decodes the responses. Generated
// client stubs wrap a Client.
type Client struct {
	transport Transport
	version   string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithVersion stamps every call with the interface version the caller was
// built against, so the server migrates it forward.
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// NewClient creates a client over transport.
func NewClient(transport Transport, opts ...ClientOption) *Client {
	c := &Client{transport: transport}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Version returns the version stamped on outgoing calls.
func (c *Client) Version() string {
	return c.version
}

// Call sends the variant tag with args and decodes the result into result,
// which may be nil for unit operations. Errors are *Error values; the kind
// tells a transport fault apart from a failure reported by the server.
func (c *Client) Call(ctx context.Context, tag string, args, result any) error {
	body, err := EncodeCall(tag, args)
	if err != nil {
		return &Error{Kind: KindDecode, Tag: tag, Message: "encoding call", Err: err}
	}

	resp, err := c.transport.Send(ctx, Outbound{Tag: tag, Version: c.version, Body: body})
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			return e
		}
		return &Error{Kind: KindTransport, Tag: tag, Message: "sending call", Err: err}
	}

	if err := DecodeResponse(resp, result); err != nil {
		var e *Error
		if errors.As(err, &e) && e.Tag == "" {
			e.Tag = tag
		}
		return err
	}
	return nil
}

package rpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
)

// Contract decides whether a request may be dispatched. A non-nil error
// rejects the request; the server then never calls its Dispatcher.
type Contract interface {
	Evaluate(ctx context.Context, req Request) error
}

// ContractFunc adapts a function to Contract.
type ContractFunc func(ctx context.Context, req Request) error

func (f ContractFunc) Evaluate(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// AllowAll accepts every request. It is the contract of in-process calls.
var AllowAll Contract = ContractFunc(func(context.Context, Request) error { return nil })

// Contract rejection reasons for HTTPContract.
var (
	ErrNotHTTP     = errors.New("request did not arrive over HTTP")
	ErrMethod      = errors.New("incorrect method used")
	ErrInvalidAuth = errors.New("auth token is invalid")
)

// HTTPContract accepts POST requests whose auth-key header equals Token.
// An empty Token accepts nothing.
type HTTPContract struct {
	Token string
}

func (c HTTPContract) Evaluate(_ context.Context, req Request) error {
	hr, ok := req.(*HTTPRequest)
	if !ok {
		return ErrNotHTTP
	}
	if hr.HTTP().Method != http.MethodPost {
		return ErrMethod
	}
	values := hr.HTTP().Header.Values(HeaderAuthKey)
	if c.Token == "" || len(values) != 1 || subtle.ConstantTimeCompare([]byte(values[0]), []byte(c.Token)) != 1 {
		return ErrInvalidAuth
	}
	return nil
}

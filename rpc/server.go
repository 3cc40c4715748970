package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
)

// Dispatcher routes a decoded call to exactly one operation. version is the
// caller's origin version (empty for latest); args is the raw argument
// object. Implementations are generated per interface or built at run time
// by the dispatch package.
type Dispatcher interface {
	Dispatch(ctx context.Context, version, tag string, args json.RawMessage) (any, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, version, tag string, args json.RawMessage) (any, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, version, tag string, args json.RawMessage) (any, error) {
	return f(ctx, version, tag, args)
}

// Server evaluates a Contract and then hands the call to a Dispatcher.
// It holds only read-only state after construction and is safe for
// concurrent use.
type Server struct {
	contract   Contract
	dispatcher Dispatcher
	logger     *slog.Logger
	hooks      []DispatchHook
	ids        IDGenerator
	serverID   string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithHook adds a dispatch hook. Hooks start in the order added and end in
// reverse.
func WithHook(hook DispatchHook) ServerOption {
	return func(s *Server) {
		s.hooks = append(s.hooks, hook)
	}
}

// WithRequestIDs sets the request ID generator. The default is UUIDv7Generator.
func WithRequestIDs(gen IDGenerator) ServerOption {
	return func(s *Server) {
		s.ids = gen
	}
}

// WithServerID names the server in DispatchInfo.
func WithServerID(id string) ServerOption {
	return func(s *Server) {
		s.serverID = id
	}
}

// NewServer creates a server. contract and dispatcher must be non-nil.
func NewServer(contract Contract, dispatcher Dispatcher, opts ...ServerOption) *Server {
	if contract == nil {
		panic("rpc: nil contract")
	}
	if dispatcher == nil {
		panic("rpc: nil dispatcher")
	}
	s := &Server{
		contract:   contract,
		dispatcher: dispatcher,
		logger:     slog.Default(),
		ids:        UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept runs one request through the server. On success it returns the
// encoded {"ok": ...} response. Every failure is an *Error: KindRejected when
// the contract refuses the request, KindDecode for a malformed envelope,
// KindHandler when the operation fails and KindTransport when ctx ends before
// dispatch.
//
// The dispatcher is invoked at most once, and never for a rejected request.
func (s *Server) Accept(ctx context.Context, req Request) ([]byte, error) {
	requestID := s.ids.Generate()
	logger := s.logger.With("request_id", requestID)

	if err := ctx.Err(); err != nil {
		return nil, wrap(KindTransport, err, "request abandoned")
	}

	if err := s.contract.Evaluate(ctx, req); err != nil {
		logger.Warn("request rejected", "error", err)
		return nil, wrap(KindRejected, err, "verifying contract")
	}

	tag, args, err := DecodeCall(req.Body())
	if err != nil {
		logger.Debug("decode failed", "error", err)
		return nil, err
	}

	info := DispatchInfo{
		Tag:       tag,
		Version:   req.Version(),
		ServerID:  s.serverID,
		RequestID: requestID,
		Metadata:  req.Metadata(),
	}
	ctx, calls := startHooks(ctx, s.hooks, info)
	stats := CallStats{RequestBytes: int64(len(req.Body()))}

	resp, err := s.dispatch(ctx, logger, info, args)
	stats.ResponseBytes = int64(len(resp))
	endHooks(ctx, calls, info, stats, err)
	return resp, err
}

func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, info DispatchInfo, args json.RawMessage) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		logger.Debug("request abandoned before dispatch", "tag", info.Tag, "error", err)
		return nil, &Error{Kind: KindTransport, Tag: info.Tag, Message: "request abandoned", Err: err}
	}

	logger.Debug("dispatching", "tag", info.Tag, "version", info.Version)
	result, err := s.dispatcher.Dispatch(ctx, info.Version, info.Tag, args)
	if err != nil {
		rpcErr := asCallError(info.Tag, err)
		logger.Debug("dispatch failed", "tag", info.Tag, "kind", rpcErr.Kind, "error", err)
		return nil, rpcErr
	}

	resp, err := EncodeResult(result)
	if err != nil {
		return nil, &Error{Kind: KindHandler, Tag: info.Tag, Message: "result is not serializable", Err: err}
	}
	return resp, nil
}

// asCallError classifies a dispatcher error. Errors that are already *Error
// keep their kind; anything else came from the operation itself.
func asCallError(tag string, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		if e.Tag == tag {
			return e
		}
		tagged := *e
		tagged.Tag = tag
		return &tagged
	}
	return &Error{Kind: KindHandler, Tag: tag, Message: err.Error(), Err: err}
}

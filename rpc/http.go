package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// HTTP header names.
const (
	HeaderAuthKey     = "auth-key"
	HeaderVersion     = "X-Arrpc-Version"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

const (
	// DefaultPrefix is the path the Handler serves calls on.
	DefaultPrefix = "/rpc"
	// DefaultMaxBodyBytes caps request bodies read by the Handler.
	DefaultMaxBodyBytes int64 = 1 << 20
)

// Handler serves a Server over net/http. Every method is routed to the
// server so its Contract decides what is acceptable.
type Handler struct {
	server   *Server
	mux      *http.ServeMux
	prefix   string
	maxBytes int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithPrefix sets the path calls are served on.
func WithPrefix(prefix string) HandlerOption {
	return func(h *Handler) {
		h.prefix = prefix
	}
}

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) HandlerOption {
	return func(h *Handler) {
		h.maxBytes = n
	}
}

// NewHandler creates an HTTP handler for server.
func NewHandler(server *Server, opts ...HandlerOption) *Handler {
	h := &Handler{
		server:   server,
		mux:      http.NewServeMux(),
		prefix:   DefaultPrefix,
		maxBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.mux.HandleFunc(h.prefix, h.handleCall)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, wrap(KindDecode, err, "request body too large"))
			return
		}
		writeError(w, http.StatusBadRequest, wrap(KindDecode, err, "reading request body"))
		return
	}

	resp, err := h.server.Accept(r.Context(), NewHTTPRequest(r, body))
	if err != nil {
		writeError(w, statusFor(KindOf(err)), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps an error kind to an HTTP status. Handler errors are a
// successful exchange whose payload is an error, so they use 200.
func statusFor(kind Kind) int {
	switch kind {
	case KindRejected:
		return http.StatusForbidden
	case KindDecode:
		return http.StatusBadRequest
	case KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, EncodeError(err))
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// HTTPTransport posts calls to a Handler.
type HTTPTransport struct {
	URL    string       // full URL of the handler, including its prefix
	Token  string       // sent in the auth-key header when non-empty
	Client *http.Client // nil means http.DefaultClient
}

func (t *HTTPTransport) Send(ctx context.Context, out Outbound) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(out.Body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Tag: out.Tag, Message: "building request", Err: err}
	}
	req.Header.Set(headerContentType, contentTypeJSON)
	if t.Token != "" {
		req.Header.Set(HeaderAuthKey, t.Token)
	}
	if out.Version != "" {
		req.Header.Set(HeaderVersion, out.Version)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Tag: out.Tag, Message: "sending request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Tag: out.Tag, Message: "reading response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Server-side failures carry an {"err": ...} body; anything else is
		// a fault between client and server.
		if rerr := DecodeResponse(body, nil); rerr != nil && !IsKind(rerr, KindTransport) {
			return body, nil
		}
		return nil, &Error{Kind: KindTransport, Tag: out.Tag, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return body, nil
}

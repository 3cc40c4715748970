package rpc

import "net/http"

// Request is an inbound call as seen by a Contract and a Server.
type Request interface {
	// Version is the interface version the caller was built against.
	// Empty means the latest version.
	Version() string
	// Body is the encoded call envelope.
	Body() []byte
	// Metadata holds transport-level key/value pairs, such as HTTP headers.
	Metadata() map[string]string
}

// Message is a transport-neutral Request.
type Message struct {
	OriginVersion string
	Payload       []byte
	Meta          map[string]string
}

func (m Message) Version() string             { return m.OriginVersion }
func (m Message) Body() []byte                { return m.Payload }
func (m Message) Metadata() map[string]string { return m.Meta }

// HTTPRequest is a Request received over HTTP. The body has already been read.
type HTTPRequest struct {
	req  *http.Request
	body []byte
}

// NewHTTPRequest pairs an HTTP request with its fully read body.
func NewHTTPRequest(r *http.Request, body []byte) *HTTPRequest {
	return &HTTPRequest{req: r, body: body}
}

// HTTP returns the underlying request.
func (r *HTTPRequest) HTTP() *http.Request { return r.req }

func (r *HTTPRequest) Version() string { return r.req.Header.Get(HeaderVersion) }

func (r *HTTPRequest) Body() []byte { return r.body }

// Metadata returns the first value of each header. The auth header is
// omitted so it never reaches hooks or logs.
func (r *HTTPRequest) Metadata() map[string]string {
	meta := make(map[string]string, len(r.req.Header))
	for key, values := range r.req.Header {
		if http.CanonicalHeaderKey(key) == http.CanonicalHeaderKey(HeaderAuthKey) || len(values) == 0 {
			continue
		}
		meta[key] = values[0]
	}
	return meta
}

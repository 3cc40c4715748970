package rpc

import "context"

// LocalTransport calls a Server in the same process. The request still goes
// through the wire codec, so local and remote calls behave alike.
type LocalTransport struct {
	server *Server
}

// NewLocalTransport serves dispatcher in-process under the AllowAll contract.
func NewLocalTransport(dispatcher Dispatcher, opts ...ServerOption) *LocalTransport {
	return &LocalTransport{server: NewServer(AllowAll, dispatcher, opts...)}
}

// LocalTransportFor sends calls to an existing server, keeping its contract.
func LocalTransportFor(server *Server) *LocalTransport {
	return &LocalTransport{server: server}
}

func (t *LocalTransport) Send(ctx context.Context, out Outbound) ([]byte, error) {
	resp, err := t.server.Accept(ctx, Message{OriginVersion: out.Version, Payload: out.Body})
	if err != nil {
		if IsKind(err, KindTransport) {
			return nil, err
		}
		return EncodeError(err), nil
	}
	return resp, nil
}

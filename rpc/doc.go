// Package rpc is the run-time half of arrpc: the contract evaluated before
// any call is dispatched, the JSON wire envelope, a Server that validates and
// then dispatches, a Client used by generated stubs, and HTTP and in-process
// transports.
//
// A request moves from unvalidated to dispatched only when the server's
// Contract accepts it:
//
//	srv := rpc.NewServer(rpc.HTTPContract{Token: secret}, dispatcher)
//	http.Handle("/rpc", rpc.NewHandler(srv))
//
//	client := rpc.NewClient(&rpc.HTTPTransport{URL: url, Token: secret})
//	var sum int64
//	err := client.Call(ctx, "Add", map[string]any{"a": 2, "b": 3}, &sum)
package rpc

// Package client connects a terminal host to a remote terminal server.
//
// The endpoint is always built explicitly from a configured base URL:
//
//	stream: ws://host:port/termsocket?rows=24&cols=80
//	rpc:    ws://host:port/rpc/token/<token>?rows=24&cols=80
//
// RPC tokens are requested from POST /sessions before dialing.
package client

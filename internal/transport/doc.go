// Package transport carries terminal traffic between a session controller and
// the remote process over WebSocket.
//
// Two interchangeable protocols are provided:
//
//   - Stream: a single always-open channel. Outbound frames are raw input
//     bytes, inbound frames are raw paint content. No framing, no
//     correlation, no ready signal.
//   - RPC: a channel carrying JSON envelopes. Fire-and-forget events (Emit),
//     correlated calls that resolve a Future with the remote reply
//     (EmitForce), handlers for unsolicited named events (On) and a one-shot
//     ready notification once the remote session is established.
//
// Envelope Format (RPC):
//
//	{"type": "event", "event": "enter", "payload": "ls\n"}
//	{"type": "call",  "event": "start", "marker": 1}
//	{"type": "reply", "marker": 1, "payload": "<pre>...</pre>"}
//	{"type": "reply", "marker": 2, "error": "unknown call"}
//
// Closing a channel, locally or because a read failed, rejects every pending
// Future with ErrClosed before Close (or the OnClose callback) returns.
//
// Example Usage:
//
//	rpc := transport.NewRPC("ws://host/rpc/token/abc", transport.WithLogger(logger))
//	rpc.OnReady(func() {
//		rpc.EmitForce(ctx, transport.EventStart, nil).Then(func(reply json.RawMessage, err error) {
//			// paint reply
//		})
//	})
//	if err := rpc.Connect(ctx); err != nil {
//		return err
//	}
package transport

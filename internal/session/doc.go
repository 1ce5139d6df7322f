// Package session implements the terminal session controller.
//
// A Controller binds four collaborators: a Screen (the outer container), a
// Display (the character surface), an Input (keyboard and paste capture) and
// exactly one transport. It performs three jobs:
//
//   - Fit: once the Display reports its cell metrics are measurable, the
//     pixel size of the grid is computed and applied to the Screen. This
//     happens at most once.
//   - Handshake: with the RPC transport, the controller waits for both the
//     remote "ready" event and the fit, issues a single "start" call, paints
//     its reply, and only then starts sending input as "enter" events.
//   - Relay: input goes to the transport, remote output is painted.
//
// Input produced before the session is interactive is queued and flushed in
// order once it becomes interactive.
//
// State Machine:
//
//	Disconnected → Connecting → AwaitingStart → Interactive → Closed   (RPC)
//	Disconnected → Connecting → Interactive → Closed                   (stream)
//
// Every failure is terminal and observable through Done and Err: connection
// failures wrap ErrConnection, a failed or timed-out start wraps
// ErrHandshake, and a channel lost mid-session wraps ErrChannelClosed. The
// display keeps whatever was painted last.
//
// Example Usage:
//
//	ctrl, err := session.New(ctx, host, session.Config{
//		Grid:      geometry.DefaultGrid,
//		Transport: session.RPC(transport.NewRPC(endpoint)),
//	})
//	if err != nil {
//		return err
//	}
//	<-ctrl.Done()
//	return ctrl.Err()
package session

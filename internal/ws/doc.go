// Package ws serves the two terminal wire protocols over WebSocket.
//
// Stream protocol (GET /termsocket?rows=&cols=):
//   - the server spawns a shell on upgrade
//   - every chunk of shell output produces one text frame holding the whole
//     rendered screen
//   - every inbound frame is written to the shell verbatim
//
// RPC protocol (GET /rpc/token/:token?rows=&cols=):
//   - the token must come from POST /sessions and is consumed on use
//   - the server emits the ready event right after the upgrade
//   - call start spawns the shell and replies with the rendered screen; later
//     output arrives as output events
//   - event enter carries a string written to the shell
//
// Either side closing the connection kills the shell, and a shell exiting
// closes the connection.
package ws

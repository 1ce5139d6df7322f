// Package pty runs shell sessions behind pseudo-terminals for the remote side.
//
// A Manager starts one shell per session with creack/pty, pumps its output to
// a caller-supplied sink and tears the process down on Kill or exit. Sessions
// are addressed by id.SessionID so handlers and the listing endpoint share
// one registry.
package pty

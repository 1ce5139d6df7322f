// Command webterm attaches the current console to a remote webterm server.
//
// The console is switched to raw mode for the duration of the session so
// every keystroke reaches the remote shell. Press Ctrl-] to detach.
//
// Usage:
//
//	webterm --url http://127.0.0.1:8000
//	webterm --url https://term.example --mode stream --rows 40 --cols 120
//	webterm --config webterm.toml --log-file /tmp/webterm.log
//
// Logs are discarded unless --log-file is given, since the console is busy
// showing the remote screen.
package main

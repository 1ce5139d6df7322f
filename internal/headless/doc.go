// Package headless is a terminal host for a text console.
//
// The Screen records the pixel size the controller fits it to, the Display
// turns painted markup back into plain lines and redraws the console, and the
// Input forwards what the user types. When the input is a terminal it is put
// into raw mode so keystrokes reach the remote shell unprocessed; Ctrl-]
// detaches.
package headless

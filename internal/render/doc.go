// Package render turns raw PTY output into the markup a terminal display
// paints.
//
// A Screen is a fixed rows x cols character grid with a cursor. Output is
// decoded to UTF-8 (detecting legacy charsets when the bytes are not UTF-8),
// stripped of escape sequences and interpreted for the basic control
// characters: newline, carriage return, backspace and tab. HTML renders the
// grid as
//
//	<pre class="screen"><div class="line">...</div>...</pre>
//
// with the cell under the cursor wrapped in <span class="cursor">.
package render

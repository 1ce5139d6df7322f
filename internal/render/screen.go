package render

import (
	"html"
	"strings"
	"sync"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/charmbracelet/x/ansi"
)

const tabWidth = 8

// Screen is a character grid fed with PTY output. It is safe for concurrent
// use.
type Screen struct {
	mu    sync.Mutex
	grid  geometry.Grid
	lines [][]rune
	row   int
	col   int
	dec   *decoder
}

// NewScreen returns an empty screen of the given size.
func NewScreen(grid geometry.Grid) (*Screen, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	s := &Screen{grid: grid, dec: newDecoder()}
	s.lines = blankLines(grid.Rows)
	return s, nil
}

// Write feeds raw output to the screen. It never fails.
func (s *Screen) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := ansi.Strip(s.dec.decode(p))
	for _, r := range text {
		s.put(r)
	}
	return len(p), nil
}

func (s *Screen) put(r rune) {
	switch r {
	case '\n':
		s.newline()
	case '\r':
		s.col = 0
	case '\b':
		if s.col > 0 {
			s.col--
		}
	case '\t':
		next := min((s.col/tabWidth+1)*tabWidth, s.grid.Cols-1)
		for s.col < next {
			s.set(' ')
			s.col++
		}
	default:
		if r < 0x20 || r == 0x7f {
			return
		}
		if s.col >= s.grid.Cols {
			s.newline()
		}
		s.set(r)
		s.col++
	}
}

func (s *Screen) set(r rune) {
	line := s.lines[s.row]
	for len(line) <= s.col {
		line = append(line, ' ')
	}
	line[s.col] = r
	s.lines[s.row] = line
}

func (s *Screen) newline() {
	s.col = 0
	if s.row < s.grid.Rows-1 {
		s.row++
		return
	}
	copy(s.lines, s.lines[1:])
	s.lines[len(s.lines)-1] = nil
}

// Resize changes the grid, keeping the bottom-most lines.
func (s *Screen) Resize(grid geometry.Grid) error {
	if err := grid.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop lines below the cursor first so the prompt stays visible.
	used := s.lines[:s.row+1]
	lines := blankLines(grid.Rows)
	if len(used) > grid.Rows {
		used = used[len(used)-grid.Rows:]
	}
	for i, line := range used {
		if len(line) > grid.Cols {
			line = line[:grid.Cols]
		}
		lines[i] = line
	}

	s.row = len(used) - 1
	s.col = min(s.col, grid.Cols)
	s.grid = grid
	s.lines = lines
	return nil
}

// Grid returns the screen size.
func (s *Screen) Grid() geometry.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid
}

// Text returns the visible lines with trailing blanks trimmed.
func (s *Screen) Text() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.lines))
	for i, line := range s.lines {
		out[i] = strings.TrimRight(string(line), " ")
	}
	return out
}

// HTML renders the screen as paint content.
func (s *Screen) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	b.WriteString(`<pre class="screen">`)
	for i, line := range s.lines {
		b.WriteString(`<div class="line">`)
		if i == s.row {
			writeCursorLine(&b, line, min(s.col, s.grid.Cols-1))
		} else {
			b.WriteString(html.EscapeString(strings.TrimRight(string(line), " ")))
		}
		b.WriteString(`</div>`)
	}
	b.WriteString(`</pre>`)
	return b.String()
}

func writeCursorLine(b *strings.Builder, line []rune, col int) {
	under := ' '
	if col < len(line) {
		under = line[col]
	}
	before := line[:min(col, len(line))]
	var after []rune
	if col+1 < len(line) {
		after = line[col+1:]
	}

	b.WriteString(html.EscapeString(string(before)))
	b.WriteString(`<span class="cursor">`)
	b.WriteString(html.EscapeString(string(under)))
	b.WriteString(`</span>`)
	b.WriteString(html.EscapeString(strings.TrimRight(string(after), " ")))
}

func blankLines(n int) [][]rune {
	return make([][]rune, n)
}

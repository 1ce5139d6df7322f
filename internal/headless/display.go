package headless

import (
	"strings"
	"sync"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"
)

// redraw homes the cursor and clears the console.
const redraw = "\x1b[H\x1b[2J"

// Display paints remote content onto the console as plain text.
type Display struct {
	console *Console
	grid    geometry.Grid
	cell    geometry.CellMetrics
	log     *zap.Logger

	readyOnce sync.Once

	mu    sync.Mutex
	lines []string
}

// OnReady fires fn once, asynchronously. A console has nothing to measure so
// the metrics are available immediately.
func (d *Display) OnReady(fn func()) {
	d.readyOnce.Do(func() { go fn() })
}

// CellMetrics returns the configured cell size.
func (d *Display) CellMetrics() geometry.CellMetrics {
	return d.cell
}

// Paint replaces the console contents with the text of markup.
func (d *Display) Paint(markup string) {
	lines := d.textLines(markup)

	d.mu.Lock()
	d.lines = lines
	d.mu.Unlock()

	if err := d.console.write(redraw + strings.Join(lines, "\r\n")); err != nil {
		d.log.Warn("Console write failed", zap.Error(err))
	}
}

// Lines returns the last painted lines.
func (d *Display) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// textLines extracts one string per rendered line, truncated to the grid
// width and limited to the last grid rows.
func (d *Display) textLines(markup string) []string {
	var lines []string

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		d.log.Debug("Painting unparsed content", zap.Error(err))
		lines = strings.Split(ansi.Strip(markup), "\n")
	} else if rows := doc.Find("div.line"); rows.Length() > 0 {
		rows.Each(func(_ int, s *goquery.Selection) {
			lines = append(lines, s.Text())
		})
	} else {
		lines = strings.Split(strings.Trim(doc.Text(), "\n"), "\n")
	}

	if len(lines) > d.grid.Rows {
		lines = lines[len(lines)-d.grid.Rows:]
	}
	for i, line := range lines {
		lines[i] = strings.TrimRight(ansi.Truncate(line, d.grid.Cols, ""), " \r")
	}
	return lines
}

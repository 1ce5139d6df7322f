package headless

import (
	"io"
	"os"
	"sync"

	"github.com/GriffinCanCode/webterm/internal/geometry"
	"github.com/GriffinCanCode/webterm/internal/session"
	"go.uber.org/zap"
)

// DefaultCellMetrics is the cell size reported when none is configured.
var DefaultCellMetrics = geometry.CellMetrics{Width: 8, Height: 16}

// DefaultEscape detaches the console (Ctrl-]).
const DefaultEscape byte = 0x1d

// Config configures a Host.
type Config struct {
	In  io.Reader
	Out io.Writer
	// Cell is the cell size the Display reports.
	Cell geometry.CellMetrics
	// Escape ends the session when typed. Zero selects DefaultEscape.
	Escape byte
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	if c.Cell == (geometry.CellMetrics{}) {
		c.Cell = DefaultCellMetrics
	}
	if c.Escape == 0 {
		c.Escape = DefaultEscape
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Host creates console-backed collaborators. It implements session.Host.
type Host struct {
	cfg  Config
	log  *zap.Logger
	done chan struct{}

	mu       sync.Mutex
	console  *Console
	screen   *Screen
	display  *Display
	input    *Input
	doneOnce sync.Once
}

// NewHost creates a host writing to cfg.Out and reading cfg.In.
func NewHost(cfg Config) *Host {
	cfg = cfg.withDefaults()
	return &Host{
		cfg:     cfg,
		log:     cfg.Logger.Named("headless"),
		done:    make(chan struct{}),
		console: &Console{out: cfg.Out},
	}
}

// Console is the render target shared by the collaborators.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func (c *Console) write(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.out, p)
	return err
}

// Screen is the outer container. It records the size it was fitted to.
type Screen struct {
	console *Console

	mu   sync.Mutex
	size geometry.PixelSize
}

// Target returns the console.
func (s *Screen) Target() session.Target { return s.console }

// Resize records the applied size.
func (s *Screen) Resize(size geometry.PixelSize) {
	s.mu.Lock()
	s.size = size
	s.mu.Unlock()
}

// Size returns the last applied size.
func (s *Screen) Size() geometry.PixelSize {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// NewScreen implements session.Host.
func (h *Host) NewScreen() session.Screen {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.screen = &Screen{console: h.console}
	return h.screen
}

// NewDisplay implements session.Host.
func (h *Host) NewDisplay(target session.Target, grid geometry.Grid) session.Display {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.display = &Display{
		console: consoleOf(target, h.console),
		grid:    grid,
		cell:    h.cfg.Cell,
		log:     h.log,
	}
	return h.display
}

// NewInput implements session.Host.
func (h *Host) NewInput(target session.Target) session.Input {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.input = newInput(h.cfg.In, h.cfg.Escape, h.log, h.finish)
	return h.input
}

// Screen returns the screen created last, nil before NewScreen.
func (h *Host) Screen() *Screen {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.screen
}

// Display returns the display created last, nil before NewDisplay.
func (h *Host) Display() *Display {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.display
}

// Done is closed when the user detaches or the input ends.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

// Close restores the terminal mode.
func (h *Host) Close() error {
	h.mu.Lock()
	input := h.input
	h.mu.Unlock()

	h.finish()
	if input != nil {
		return input.restore()
	}
	return nil
}

func (h *Host) finish() {
	h.doneOnce.Do(func() { close(h.done) })
}

func consoleOf(target session.Target, fallback *Console) *Console {
	if c, ok := target.(*Console); ok && c != nil {
		return c
	}
	return fallback
}

package geometry

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGrid    = errors.New("grid rows and cols must be positive")
	ErrInvalidMetrics = errors.New("cell metrics must be positive")
)

// Grid is the character grid of a terminal.
type Grid struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// DefaultGrid is the classic 24x80 terminal.
var DefaultGrid = Grid{Rows: 24, Cols: 80}

// NewGrid returns a validated grid.
func NewGrid(rows, cols int) (Grid, error) {
	g := Grid{Rows: rows, Cols: cols}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// Validate rejects zero or negative dimensions.
func (g Grid) Validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidGrid, g.Rows, g.Cols)
	}
	return nil
}

// IsZero reports whether the grid was left unset.
func (g Grid) IsZero() bool {
	return g.Rows == 0 && g.Cols == 0
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d", g.Rows, g.Cols)
}

// CellMetrics is the pixel size of one character cell.
type CellMetrics struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate rejects zero or negative metrics.
func (m CellMetrics) Validate() error {
	if m.Width <= 0 || m.Height <= 0 {
		return fmt.Errorf("%w: %gx%g", ErrInvalidMetrics, m.Width, m.Height)
	}
	return nil
}

// PixelSize is the pixel size of a whole surface.
type PixelSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (p PixelSize) String() string {
	return fmt.Sprintf("%gx%g", p.Width, p.Height)
}

// Fit computes the surface size for a grid rendered with the given cells.
func Fit(g Grid, m CellMetrics) PixelSize {
	return PixelSize{
		Width:  float64(g.Cols) * m.Width,
		Height: float64(g.Rows) * m.Height,
	}
}

// Package geometry converts a character grid into pixel dimensions.
//
// A terminal surface is described by a Grid (rows and columns) and the
// CellMetrics of the font it is rendered with. Fit multiplies the two to
// obtain the PixelSize applied to the outer container.
//
// Example Usage:
//
//	grid, err := geometry.NewGrid(24, 80)
//	size := geometry.Fit(grid, geometry.CellMetrics{Width: 8, Height: 16})
//	// size == PixelSize{Width: 640, Height: 384}
package geometry

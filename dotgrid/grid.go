// Package dotgrid walks a regular grid over a render surface and keeps
// the intersections that fall on land.
//
// Points are expressed in logical surface coordinates. The device pixel
// ratio of a Surface only matters when painting to a physical canvas.
package dotgrid

import "math"

// Point is a grid intersection in surface coordinates.
type Point struct {
	X, Y float64
}

// LandFunc classifies the surface point (x, y) of a width x height
// surface. (*mask.Mask).IsLand and (*mask.Sampler).IsLand satisfy it.
type LandFunc func(x, y, width, height float64) bool

// Grid is the outcome of one grid walk.
type Grid struct {
	Spacing int     // distance between intersections
	Checked int     // intersections tested against the mask
	Points  []Point // retained intersections, in walk order
}

// Spacing returns the grid step for a density: max(2, floor(25 - 1.5*density)).
// Higher densities give tighter grids.
func Spacing(density int) int {
	s := int(math.Floor(25 - float64(density)*1.5))
	if s < 2 {
		return 2
	}
	return s
}

// axisCount returns how many of spacing/2 + k*spacing lie below limit.
func axisCount(limit float64, spacing int) int {
	start := float64(spacing) / 2
	if !(limit > start) {
		return 0
	}
	return int(math.Ceil((limit - start) / float64(spacing)))
}

// Count returns the number of intersections a walk over a
// width x height surface tests.
func Count(width, height float64, spacing int) int {
	return axisCount(width, spacing) * axisCount(height, spacing)
}

// Generate walks the grid row by row, starting half a step in from the
// top left corner, and keeps the intersections for which land holds.
// A nil land function keeps nothing.
func Generate(land LandFunc, width, height float64, density int) Grid {
	spacing := Spacing(density)
	cols, rows := axisCount(width, spacing), axisCount(height, spacing)
	grid := Grid{Spacing: spacing, Checked: cols * rows}
	if land == nil {
		return grid
	}

	half, step := float64(spacing)/2, float64(spacing)
	for j := 0; j < rows; j++ {
		y := half + float64(j)*step
		for i := 0; i < cols; i++ {
			x := half + float64(i)*step
			if land(x, y, width, height) {
				grid.Points = append(grid.Points, Point{X: x, Y: y})
			}
		}
	}
	return grid
}

package svgdots

import "image/color"

// Given a parsed dot map, implements how to
// draw it on a device.
// This requires a driver implementing the actual draw operations,
// such as a rasterizer to output .png images or a pdf writer.

// Driver knows how to do the actual draw operations
// but doesn't need any SVG knowledge.
// In particular, the Transform is already applied to the circles
// before sending them to the Driver.
type Driver interface {
	// Clear must reset the internal state (used before starting a new path painting)
	Clear()

	// Circle adds a full circle to the current path.
	Circle(cx, cy, r float64)

	// SetColor set the color for the current path
	SetColor(c color.Color)

	// Draw fills the accumulated path with the current color.
	Draw()
}

// Transform maps document coordinates to device coordinates:
// device = (doc + Offset) * Scale.
type Transform struct {
	Scale            float64
	OffsetX, OffsetY float64
}

// Identity leaves coordinates untouched.
var Identity = Transform{Scale: 1}

// Apply maps a document point.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return (x + t.OffsetX) * t.Scale, (y + t.OffsetY) * t.Scale
}

// Draw sends the circles to the driver, one path per run of circles
// sharing the same fill. Fully transparent runs are skipped.
func (icon *Icon) Draw(d Driver, t Transform) {
	for start := 0; start < len(icon.Circles); {
		fill := icon.Circles[start].Fill
		end := start + 1
		for end < len(icon.Circles) && icon.Circles[end].Fill == fill {
			end++
		}
		if fill.A != 0 {
			d.Clear()
			for _, c := range icon.Circles[start:end] {
				x, y := t.Apply(c.CX, c.CY)
				d.Circle(x, y, c.R*t.Scale)
			}
			d.SetColor(fill)
			d.Draw()
		}
		start = end
	}
}

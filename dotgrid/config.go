package dotgrid

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Bounds of the render parameters.
const (
	MinDensity = 1
	MaxDensity = 15
	MinDotSize = 1.0
	MaxDotSize = 8.0
)

// ErrInvalidConfig wraps every Config validation failure.
var ErrInvalidConfig = errors.New("invalid render config")

// Config holds the user tunable render parameters.
type Config struct {
	Density int     `json:"density"` // inverse grid spacing, in [1, 15]
	DotSize float64 `json:"dotSize"` // dot diameter, in [1, 8]
	Color   string  `json:"color"`   // fill color, any SVG color value
}

// DefaultConfig returns the parameters used before any user change.
func DefaultConfig() Config {
	return Config{Density: 8, DotSize: 3, Color: "#34d399"}
}

// Validate reports the first out of range parameter.
func (c Config) Validate() error {
	if c.Density < MinDensity || c.Density > MaxDensity {
		return fmt.Errorf("%w: density %d not in [%d, %d]", ErrInvalidConfig, c.Density, MinDensity, MaxDensity)
	}
	if math.IsNaN(c.DotSize) || c.DotSize < MinDotSize || c.DotSize > MaxDotSize {
		return fmt.Errorf("%w: dot size %g not in [%g, %g]", ErrInvalidConfig, c.DotSize, MinDotSize, MaxDotSize)
	}
	if strings.TrimSpace(c.Color) == "" {
		return fmt.Errorf("%w: empty color", ErrInvalidConfig)
	}
	return nil
}

// Clamp brings Density and DotSize into range and replaces an empty
// color with the default one.
func (c Config) Clamp() Config {
	def := DefaultConfig()
	if c.Density < MinDensity {
		c.Density = MinDensity
	} else if c.Density > MaxDensity {
		c.Density = MaxDensity
	}
	switch {
	case math.IsNaN(c.DotSize):
		c.DotSize = def.DotSize
	case c.DotSize < MinDotSize:
		c.DotSize = MinDotSize
	case c.DotSize > MaxDotSize:
		c.DotSize = MaxDotSize
	}
	c.Color = strings.TrimSpace(c.Color)
	if c.Color == "" {
		c.Color = def.Color
	}
	return c
}

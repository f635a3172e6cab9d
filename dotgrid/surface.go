package dotgrid

// Surface is the logical area the grid is walked over, placed inside a
// container. PixelRatio is the number of physical pixels per logical unit.
type Surface struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	OffsetX    float64 `json:"offsetX"`
	OffsetY    float64 `json:"offsetY"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Fit places a maskW x maskH mask inside a container keeping its aspect
// ratio ("object-contain"): a mask wider than the container fills its
// width and is centered vertically, otherwise it fills the height and is
// centered horizontally. Without a mask the surface is the container.
func Fit(maskW, maskH int, containerW, containerH, pixelRatio float64) Surface {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	s := Surface{Width: containerW, Height: containerH, PixelRatio: pixelRatio}
	if maskW <= 0 || maskH <= 0 || containerW <= 0 || containerH <= 0 {
		return s
	}

	maskAspect := float64(maskW) / float64(maskH)
	containerAspect := containerW / containerH
	if maskAspect > containerAspect {
		s.Height = containerW / maskAspect
		s.OffsetY = (containerH - s.Height) / 2
	} else {
		s.Width = containerH * maskAspect
		s.OffsetX = (containerW - s.Width) / 2
	}
	return s
}

// Ratio returns PixelRatio, defaulting to 1.
func (s Surface) Ratio() float64 {
	if s.PixelRatio <= 0 {
		return 1
	}
	return s.PixelRatio
}

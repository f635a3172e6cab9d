// Package svgraster implements a raster backend to paint dot maps,
// by wrapping rasterx.
package svgraster

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/srwiley/rasterx"
	"golang.org/x/image/draw"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/svgdots"
)

var _ svgdots.Driver = (*Renderer)(nil) // assert interface conformance

// DefaultMaskOpacity is the opacity of the reference mask when shown
// under the dots.
const DefaultMaskOpacity = 0.5

type Renderer struct {
	filler *rasterx.Filler
}

// NewRenderer returns a renderer painting with the given scanner.
// If scanner is nil, a rasterx.ScannerGV drawing on dst is used.
func NewRenderer(dst draw.Image, scanner rasterx.Scanner) *Renderer {
	b := dst.Bounds()
	if scanner == nil {
		scanner = rasterx.NewScannerGV(b.Dx(), b.Dy(), dst, b)
	}
	return &Renderer{filler: rasterx.NewFiller(b.Dx(), b.Dy(), scanner)}
}

func (rd *Renderer) Clear() { rd.filler.Clear() }

func (rd *Renderer) Circle(cx, cy, r float64) { rasterx.AddCircle(cx, cy, r, rd.filler) }

func (rd *Renderer) SetColor(c color.Color) { rd.filler.SetColor(c) }

func (rd *Renderer) Draw() { rd.filler.Draw() }

// Options tunes Paint.
type Options struct {
	Background color.Color // nil leaves the canvas transparent

	// Mask, when not nil, is drawn under the dots, scaled to the surface.
	Mask        *mask.Mask
	MaskOpacity float64 // in [0, 1]; 0 uses DefaultMaskOpacity
}

// canvasSize returns the physical size of a logical length.
func canvasSize(logical, ratio float64) int {
	return int(math.Ceil(logical * ratio))
}

// Paint renders the icon on a canvas of the container size multiplied by
// the surface pixel ratio. Dots are placed at
// ((x + OffsetX) * ratio, (y + OffsetY) * ratio) with radius r * ratio.
func Paint(icon *svgdots.Icon, s dotgrid.Surface, containerW, containerH float64, opts Options) *image.RGBA {
	ratio := s.Ratio()
	img := image.NewRGBA(image.Rect(0, 0, canvasSize(containerW, ratio), canvasSize(containerH, ratio)))
	if opts.Background != nil {
		draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	}
	if opts.Mask != nil {
		drawMask(img, opts.Mask, s, opts.MaskOpacity)
	}
	if icon != nil && !img.Bounds().Empty() {
		icon.Draw(NewRenderer(img, nil), svgdots.Transform{Scale: ratio, OffsetX: s.OffsetX, OffsetY: s.OffsetY})
	}
	return img
}

func drawMask(dst draw.Image, m *mask.Mask, s dotgrid.Surface, opacity float64) {
	if opacity <= 0 {
		opacity = DefaultMaskOpacity
	}
	if opacity > 1 {
		opacity = 1
	}
	ratio := s.Ratio()
	target := image.Rect(
		int(math.Floor(s.OffsetX*ratio)), int(math.Floor(s.OffsetY*ratio)),
		int(math.Ceil((s.OffsetX+s.Width)*ratio)), int(math.Ceil((s.OffsetY+s.Height)*ratio)),
	)
	src := m.Image()
	if target.Empty() || src.Bounds().Empty() {
		return
	}
	alpha := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	draw.CatmullRom.Scale(dst, target, src, src.Bounds(), draw.Over, &draw.Options{SrcMask: alpha})
}

// RasterSVGToImage reads a dot map and paints it at its own size
// multiplied by ratio.
func RasterSVGToImage(svg io.Reader, ratio float64) (*image.RGBA, error) {
	icon, err := svgdots.Read(svg, svgdots.IgnoreErrorMode)
	if err != nil {
		return nil, err
	}
	s := dotgrid.Surface{Width: icon.Width, Height: icon.Height, PixelRatio: ratio}
	return Paint(icon, s, icon.Width, icon.Height, Options{}), nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

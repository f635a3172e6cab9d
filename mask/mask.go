// Package mask decodes reference mask images and answers point
// containment queries against them.
//
// A mask marks "land" with opaque, near black pixels. Everything else,
// including pixels outside the image, is water.
package mask

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF masks
	_ "image/jpeg" // register JPEG masks
	_ "image/png"  // register PNG masks
	"io"
	"math"

	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"  // register BMP masks
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // register TIFF masks
	_ "golang.org/x/image/webp" // register WebP masks
)

// Land classification thresholds, on 8 bit channels.
// A pixel is land when R, G and B are all below LandMaxChannel
// and its alpha is above LandMinAlpha.
const (
	LandMaxChannel = 100
	LandMinAlpha   = 200
)

var errNotImage = errors.New("mask: data URI is not an image")

// Mask is an immutable, non premultiplied RGBA raster.
type Mask struct {
	width, height int
	pix           []uint8 // 4 bytes per pixel, row stride is 4*width
}

// New copies img into a Mask.
func New(img image.Image) *Mask {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return &Mask{width: b.Dx(), height: b.Dy(), pix: dst.Pix}
}

// Decode reads a PNG, JPEG, GIF, WebP, BMP or TIFF image.
func Decode(r io.Reader) (*Mask, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("mask: decoding image: %w", err)
	}
	return New(img), nil
}

// DecodeDataURI decodes a base64 or percent encoded image data URI,
// the format used to persist user supplied masks.
func DecodeDataURI(uri string) (*Mask, error) {
	data, err := dataURIBytes(uri)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data))
}

// EncodeDataURI returns a base64 data URI for the image bytes. The media
// type is sniffed from the content.
func EncodeDataURI(data []byte) string {
	return dataurl.EncodeBytes(data)
}

func dataURIBytes(uri string) ([]byte, error) {
	du, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, fmt.Errorf("mask: invalid data URI: %w", err)
	}
	if du.MediaType.Type != "image" {
		return nil, errNotImage
	}
	return du.Data, nil
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.width }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.height }

// Bounds returns the mask dimensions as an image.Rectangle.
func (m *Mask) Bounds() image.Rectangle { return image.Rect(0, 0, m.width, m.height) }

// At returns the pixel at (x, y), or transparent black outside the mask.
func (m *Mask) At(x, y int) color.NRGBA {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return color.NRGBA{}
	}
	i := (y*m.width + x) * 4
	return color.NRGBA{R: m.pix[i], G: m.pix[i+1], B: m.pix[i+2], A: m.pix[i+3]}
}

// Image returns a copy of the mask as an image, used for previews.
func (m *Mask) Image() *image.NRGBA {
	img := image.NewNRGBA(m.Bounds())
	copy(img.Pix, m.pix)
	return img
}

// IsLandPixel reports whether c is an opaque, near black pixel.
func IsLandPixel(c color.NRGBA) bool {
	return c.R < LandMaxChannel && c.G < LandMaxChannel && c.B < LandMaxChannel &&
		c.A > LandMinAlpha
}

// IsLand maps the surface point (x, y) of a surfaceWidth x surfaceHeight
// render area onto the mask by linear scaling and classifies that pixel.
// A nil mask, an empty surface and out of bounds points are never land.
func (m *Mask) IsLand(x, y, surfaceWidth, surfaceHeight float64) bool {
	if m == nil || surfaceWidth <= 0 || surfaceHeight <= 0 {
		return false
	}
	imgX := math.Floor(x / surfaceWidth * float64(m.width))
	imgY := math.Floor(y / surfaceHeight * float64(m.height))
	// comparing as floats also rejects NaN
	if !(imgX >= 0 && imgX < float64(m.width) && imgY >= 0 && imgY < float64(m.height)) {
		return false
	}
	return IsLandPixel(m.At(int(imgX), int(imgY)))
}

// Package svgdots serializes and parses dot map SVG documents.
// Dots are written as one circle per grid point and can be read back
// into an abstract representation, which can then be consumed by
// painting drivers.
// See for example worlddots/svgraster or worlddots/svgpdf .
package svgdots

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benoitkugler/worlddots/dotgrid"
)

// Namespace is the SVG XML namespace declared on the root element.
const Namespace = "http://www.w3.org/2000/svg"

// MediaType is the MIME type of serialized documents.
const MediaType = "image/svg+xml"

// Document is a dot map ready to be serialized.
type Document struct {
	Width, Height float64 // surface dimensions, in logical units
	Radius        float64 // circle radius, half the dot size
	Fill          string  // fill attribute, written verbatim (escaped)
	Dots          []dotgrid.Point
}

// NewDocument binds grid points to their style.
func NewDocument(points []dotgrid.Point, dotSize float64, color string, width, height float64) Document {
	return Document{Width: width, Height: height, Radius: dotSize / 2, Fill: color, Dots: points}
}

// Serialize returns the SVG text for points drawn as circles of diameter
// dotSize filled with color on a width x height canvas.
func Serialize(points []dotgrid.Point, dotSize float64, color string, width, height float64) string {
	return NewDocument(points, dotSize, color, width, height).String()
}

// formatNumber writes v in its shortest decimal form: 800, 6.5, 1.5.
func formatNumber(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;")

// String returns the serialized document. The output only depends on the
// document content, so serializing the same dots twice is byte identical.
func (doc Document) String() string {
	var sb strings.Builder
	doc.writeTo(&sb)
	return sb.String()
}

func (doc Document) writeTo(sb *strings.Builder) {
	r := formatNumber(doc.Radius)
	fill := attrEscaper.Replace(doc.Fill)

	fmt.Fprintf(sb, `<svg width="%s" height="%s" xmlns="%s">`, formatNumber(doc.Width), formatNumber(doc.Height), Namespace)
	sb.WriteByte('\n')
	for i, p := range doc.Dots {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(sb, `  <circle cx="%s" cy="%s" r="%s" fill="%s"/>`, formatNumber(p.X), formatNumber(p.Y), r, fill)
	}
	sb.WriteString("\n</svg>")
}

// Icon converts the document to its parsed form without a serialization
// round trip.
func (doc Document) Icon() (*Icon, error) {
	col, err := ParseColor(doc.Fill)
	if err != nil {
		return nil, err
	}
	icon := &Icon{Width: doc.Width, Height: doc.Height, Circles: make([]Circle, len(doc.Dots))}
	for i, p := range doc.Dots {
		icon.Circles[i] = Circle{CX: p.X, CY: p.Y, R: doc.Radius, Fill: col}
	}
	return icon, nil
}

// SizeKB returns the UTF-8 byte length of text in kilobytes (bytes/1024).
func SizeKB(text string) float64 {
	return float64(len(text)) / 1024
}

// FormatSize renders a size for humans: bytes under 1 KB,
// one decimal KB under 1 MB, one decimal MB above.
func FormatSize(kb float64) string {
	switch {
	case kb < 1:
		return fmt.Sprintf("%d B", int(math.Round(kb*1024)))
	case kb >= 1024:
		return fmt.Sprintf("%.1f MB", kb/1024)
	default:
		return fmt.Sprintf("%.1f KB", kb)
	}
}

// Savings compares the original and optimized sizes. ok is false until
// both sizes are known.
func Savings(originalKB, optimizedKB float64) (kb, percent float64, ok bool) {
	if originalKB <= 0 || optimizedKB <= 0 {
		return 0, 0, false
	}
	kb = originalKB - optimizedKB
	return kb, kb / originalKB * 100, true
}

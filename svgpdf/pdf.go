// Package svgpdf implements a PDF backend to render dot maps,
// by wrapping github.com/jung-kurt/gofpdf.
package svgpdf

import (
	"errors"
	"image/color"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/benoitkugler/worlddots/svgdots"
)

var _ svgdots.Driver = (*Renderer)(nil) // assert interface conformance

type circle struct{ cx, cy, r float64 }

// Renderer paints on a gofpdf document. gofpdf fills shapes as soon as
// they are added, so circles are buffered until Draw.
type Renderer struct {
	pdf     *gofpdf.Fpdf
	fill    color.NRGBA
	pending []circle
}

// NewRenderer return a renderer which will
// write to the given `pdf`.
func NewRenderer(pdf *gofpdf.Fpdf) *Renderer {
	return &Renderer{pdf: pdf, fill: color.NRGBA{A: 0xff}}
}

func (rd *Renderer) Clear() { rd.pending = rd.pending[:0] }

func (rd *Renderer) Circle(cx, cy, r float64) {
	rd.pending = append(rd.pending, circle{cx, cy, r})
}

func (rd *Renderer) SetColor(c color.Color) {
	rd.fill = color.NRGBAModel.Convert(c).(color.NRGBA)
}

func (rd *Renderer) Draw() {
	rd.pdf.SetFillColor(int(rd.fill.R), int(rd.fill.G), int(rd.fill.B))
	rd.pdf.SetAlpha(float64(rd.fill.A)/0xff, "Normal")
	for _, c := range rd.pending {
		rd.pdf.Circle(c.cx, c.cy, c.r, "F")
	}
	rd.pdf.SetAlpha(1, "Normal")
}

var errEmptyPage = errors.New("dot map has no size")

// NewDocument returns a one page document sized to width x height points.
func NewDocument(width, height float64) *gofpdf.Fpdf {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("worlddots", false)
	pdf.AddPage()
	return pdf
}

// Write renders the icon on a page of its size, one point per user unit.
func Write(icon *svgdots.Icon, w io.Writer) error {
	if icon.Width <= 0 || icon.Height <= 0 {
		return errEmptyPage
	}
	pdf := NewDocument(icon.Width, icon.Height)
	icon.Draw(NewRenderer(pdf), svgdots.Identity)
	return pdf.Output(w)
}

// RenderSVGToPDF reads a dot map and writes it as PDF.
func RenderSVGToPDF(svg io.Reader, w io.Writer) error {
	icon, err := svgdots.Read(svg, svgdots.WarnErrorMode)
	if err != nil {
		return err
	}
	return Write(icon, w)
}

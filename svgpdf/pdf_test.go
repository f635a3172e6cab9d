package svgpdf

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/svgdots"
)

func TestNewDocumentPageSize(t *testing.T) {
	pdf := NewDocument(800, 400)
	require.True(t, pdf.Ok())
	w, h, unit := pdf.PageSize(1)
	assert.Equal(t, 800.0, w)
	assert.Equal(t, 400.0, h)
	assert.Equal(t, "pt", unit)
}

func TestRendererColors(t *testing.T) {
	icon := &svgdots.Icon{Width: 20, Height: 10, Circles: []svgdots.Circle{
		{CX: 5, CY: 5, R: 2, Fill: color.NRGBA{R: 255, A: 255}},
		{CX: 15, CY: 5, R: 2, Fill: color.NRGBA{B: 255, A: 255}},
	}}
	pdf := NewDocument(icon.Width, icon.Height)
	pdf.SetCompression(false)
	icon.Draw(NewRenderer(pdf), svgdots.Identity)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "%PDF-"))
	assert.Contains(t, out, "1.000 0.000 0.000 rg")
	assert.Contains(t, out, "0.000 0.000 1.000 rg")
}

func TestWrite(t *testing.T) {
	always := func(x, y, w, h float64) bool { return true }
	g := dotgrid.Generate(always, 800, 400, 8)
	icon, err := svgdots.NewDocument(g.Points, 3, "#34d399", 800, 400).Icon()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(icon, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	err = Write(&svgdots.Icon{}, &buf)
	assert.ErrorIs(t, err, errEmptyPage)
}

func TestRenderSVGToPDF(t *testing.T) {
	text := svgdots.Serialize([]dotgrid.Point{{X: 5, Y: 5}}, 4, "red", 20, 10)
	var buf bytes.Buffer
	require.NoError(t, RenderSVGToPDF(strings.NewReader(text), &buf))
	assert.NotZero(t, buf.Len())

	assert.Error(t, RenderSVGToPDF(strings.NewReader(""), &buf))
}

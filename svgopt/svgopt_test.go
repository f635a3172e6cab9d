package svgopt

import (
	"errors"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benoitkugler/worlddots/dotgrid"
	"github.com/benoitkugler/worlddots/svgdots"
)

func scenarioDocument() string {
	always := func(x, y, w, h float64) bool { return true }
	g := dotgrid.Generate(always, 800, 400, 8)
	return svgdots.Serialize(g.Points, 3, "#34d399", 800, 400)
}

var emerald = color.NRGBA{R: 0x34, G: 0xd3, B: 0x99, A: 0xff}

func TestHoistFill(t *testing.T) {
	in := svgdots.Serialize([]dotgrid.Point{{X: 6.5, Y: 6.5}, {X: 19.5, Y: 6.5}}, 3, "#34d399", 800, 400)
	out, err := hoistFill(in)
	require.NoError(t, err)
	assert.Contains(t, out, `<g fill="#34d399">`)
	assert.Equal(t, 1, strings.Count(out, "fill="))

	icon, err := svgdots.ReadString(out, svgdots.StrictErrorMode)
	require.NoError(t, err)
	require.Len(t, icon.Circles, 2)
	for _, c := range icon.Circles {
		assert.Equal(t, emerald, c.Fill)
		assert.Equal(t, 1.5, c.R)
	}
	assert.Equal(t, 800.0, icon.Width)
}

func TestHoistFillKeepsMixedFills(t *testing.T) {
	for _, in := range []string{
		`<svg width="4" height="4"><circle cx="1" cy="1" r="1" fill="red"/><circle cx="2" cy="2" r="1" fill="blue"/></svg>`,
		`<svg width="4" height="4"><circle cx="1" cy="1" r="1" fill="red"/><circle cx="2" cy="2" r="1"/></svg>`,
		`<svg width="4" height="4" fill="red"><circle cx="1" cy="1" r="1" fill="red"/></svg>`,
		`<svg width="4" height="4"></svg>`,
	} {
		out, err := hoistFill(in)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}

	_, err := hoistFill(`<svg><circle`)
	assert.Error(t, err)
}

func TestOptimizeScenario(t *testing.T) {
	in := scenarioDocument()
	res := New().Optimize(in)
	require.NoError(t, res.Err)
	assert.False(t, res.Fallback)
	assert.Less(t, len(res.Text), len(in))
	assert.True(t, strings.HasPrefix(res.Text, "<svg"))

	icon, err := svgdots.ReadString(res.Text, svgdots.StrictErrorMode)
	require.NoError(t, err)
	require.Len(t, icon.Circles, 62*31)
	for _, c := range icon.Circles {
		assert.Equal(t, emerald, c.Fill)
		assert.Equal(t, 1.5, c.R)
	}
	assert.Equal(t, dotgrid.Point{X: 6.5, Y: 6.5}, dotgrid.Point{X: icon.Circles[0].CX, Y: icon.Circles[0].CY})
}

func TestOptimizeHSLColor(t *testing.T) {
	always := func(x, y, w, h float64) bool { return true }
	g := dotgrid.Generate(always, 800, 400, 8)
	in := svgdots.Serialize(g.Points, 3, "hsl(160, 64%, 52%)", 800, 400)

	res := New().Optimize(in)
	require.NoError(t, res.Err)
	assert.False(t, res.Fallback)
	assert.Less(t, len(res.Text), len(in))

	icon, err := svgdots.ReadString(res.Text, svgdots.StrictErrorMode)
	require.NoError(t, err)
	require.Len(t, icon.Circles, 62*31)
	fill := icon.Circles[0].Fill
	assert.Equal(t, uint8(0xff), fill.A)
	assert.InDelta(t, 54, int(fill.R), 1)
	assert.InDelta(t, 211, int(fill.G), 1)
	assert.InDelta(t, 159, int(fill.B), 1)
	for _, c := range icon.Circles {
		assert.Equal(t, fill, c.Fill)
	}
}

func TestOptimizeFallback(t *testing.T) {
	in := scenarioDocument()
	boom := errors.New("boom")
	tests := []struct {
		name string
		pass Pass
	}{
		{"error", Pass{Name: "fail", Apply: func(string) (string, error) { return "", boom }}},
		{"panic", Pass{Name: "panic", Apply: func(string) (string, error) { panic("bad pass") }}},
		{"invalid output", Pass{Name: "rect", Apply: func(string) (string, error) {
			return `<svg width="1" height="1"><rect width="1" height="1"/></svg>`, nil
		}}},
		{"lost circles", Pass{Name: "truncate", Apply: func(string) (string, error) {
			return `<svg width="800" height="400"><circle cx="1" cy="1" r="1"/></svg>`, nil
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt := &Optimizer{Passes: []Pass{HoistFill(), tt.pass}}
			res := opt.Optimize(in)
			assert.True(t, res.Fallback)
			assert.Error(t, res.Err)
			assert.Equal(t, in, res.Text)
		})
	}

	res := (&Optimizer{Passes: []Pass{{Name: "fail", Apply: func(string) (string, error) { return "", boom }}}}).Optimize(in)
	assert.ErrorIs(t, res.Err, boom)

	res = (&Optimizer{Passes: []Pass{{Name: "truncate", Apply: func(string) (string, error) {
		return `<svg width="800" height="400"></svg>`, nil
	}}}}).Optimize(in)
	assert.ErrorIs(t, res.Err, errLostCircles)
}

func TestOptimizeInvalidInput(t *testing.T) {
	res := New().Optimize("not an svg")
	assert.True(t, res.Fallback)
	assert.Equal(t, "not an svg", res.Text)
}

func TestOptimizeWithoutPasses(t *testing.T) {
	in := scenarioDocument()
	res := (&Optimizer{}).Optimize(in)
	assert.False(t, res.Fallback)
	assert.Equal(t, in, res.Text)
}

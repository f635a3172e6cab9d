package svgdots

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor reads a CSS color as accepted by the fill attribute:
// #rgb, #rgba, #rrggbb, #rrggbbaa, rgb(), rgba(), hsl(), hsla(), none,
// transparent and the SVG color keywords.
func ParseColor(s string) (color.NRGBA, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "":
		return color.NRGBA{}, fmt.Errorf("empty color")
	case "none", "transparent":
		return color.NRGBA{}, nil
	case "currentcolor":
		return color.NRGBA{A: 0xff}, nil
	}
	if strings.HasPrefix(v, "#") {
		return parseHex(v[1:])
	}
	if strings.HasPrefix(v, "rgb") {
		return parseRGBFunc(v)
	}
	if strings.HasPrefix(v, "hsl") {
		return parseHSLFunc(v)
	}
	if c, ok := colornames.Map[v]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color %q", s)
}

func parseHex(h string) (color.NRGBA, error) {
	switch len(h) {
	case 3, 4: // short form: each digit is doubled
		var expanded strings.Builder
		for _, r := range h {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		h = expanded.String()
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", h)
	}
	if len(h) == 6 {
		h += "ff"
	}
	n, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color: %w", err)
	}
	return color.NRGBA{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, nil
}

// colorFuncArgs splits "name(a, b, c / d)" into its 3 or 4 arguments,
// checking that name is one of names.
func colorFuncArgs(v string, names ...string) ([]string, error) {
	open, end := strings.IndexByte(v, '('), strings.LastIndexByte(v, ')')
	if open < 0 || end < open {
		return nil, fmt.Errorf("invalid color function %q", v)
	}
	name := strings.TrimSpace(v[:open])
	known := false
	for _, n := range names {
		known = known || n == name
	}
	if !known {
		return nil, fmt.Errorf("unsupported color function %q", name)
	}
	args := strings.FieldsFunc(v[open+1:end], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(args) != 3 && len(args) != 4 {
		return nil, fmt.Errorf("invalid color function %q", v)
	}
	return args, nil
}

func parseRGBFunc(v string) (color.NRGBA, error) {
	args, err := colorFuncArgs(v, "rgb", "rgba")
	if err != nil {
		return color.NRGBA{}, err
	}
	var out [4]uint8
	out[3] = 0xff
	for i, arg := range args {
		f, err := parseChannel(arg, i == 3)
		if err != nil {
			return color.NRGBA{}, err
		}
		out[i] = f
	}
	return color.NRGBA{R: out[0], G: out[1], B: out[2], A: out[3]}, nil
}

// parseChannel reads a color channel; alpha is in [0, 1], the others in
// [0, 255]. Both accept percentages.
func parseChannel(arg string, alpha bool) (uint8, error) {
	scale := 255.
	if alpha {
		scale = 1
	}
	if strings.HasSuffix(arg, "%") {
		arg = strings.TrimSuffix(arg, "%")
		scale = 100
	}
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid color channel %q", arg)
	}
	f = f / scale * 255
	if f < 0 {
		f = 0
	} else if f > 255 {
		f = 255
	}
	return uint8(f + 0.5), nil
}

func parseHSLFunc(v string) (color.NRGBA, error) {
	args, err := colorFuncArgs(v, "hsl", "hsla")
	if err != nil {
		return color.NRGBA{}, err
	}
	hue, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "deg"), 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hue %q", args[0])
	}
	hue = math.Mod(hue, 360)
	if hue < 0 {
		hue += 360
	}
	var sl [2]float64
	for i, arg := range args[1:3] {
		f, err := strconv.ParseFloat(strings.TrimSuffix(arg, "%"), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color channel %q", arg)
		}
		sl[i] = math.Max(0, math.Min(f, 100)) / 100
	}
	alpha := uint8(0xff)
	if len(args) == 4 {
		if alpha, err = parseChannel(args[3], true); err != nil {
			return color.NRGBA{}, err
		}
	}

	// CSS Color 4 hsl-to-rgb
	s, l := sl[0], sl[1]
	a := s * math.Min(l, 1-l)
	channel := func(n float64) uint8 {
		k := math.Mod(n+hue/30, 12)
		f := l - a*math.Max(-1, math.Min(math.Min(k-3, 9-k), 1))
		return uint8(f*255 + 0.5)
	}
	return color.NRGBA{R: channel(0), G: channel(8), B: channel(4), A: alpha}, nil
}

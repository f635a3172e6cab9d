package svgdots

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/benoitkugler/worlddots/logging"
)

// ErrorMode determines how unsupported elements are handled.
type ErrorMode uint8

const (
	// IgnoreErrorMode skips unsupported elements silently.
	IgnoreErrorMode ErrorMode = iota
	// WarnErrorMode logs unsupported elements and skips them.
	WarnErrorMode
	// StrictErrorMode fails on the first unsupported element.
	StrictErrorMode
)

var errNoRoot = errors.New("invalid svg document: no root element")

// Bounds defines a bounding box, such as a viewport.
type Bounds struct{ X, Y, W, H float64 }

// Circle is a filled disk.
type Circle struct {
	CX, CY, R float64
	Fill      color.NRGBA
}

// Icon holds data from a parsed dot map.
// See the `Draw` method to use it.
type Icon struct {
	Width, Height float64 // top level width and height, or the viewBox size
	ViewBox       Bounds
	Titles        []string // Title elements collect here
	Descriptions  []string // Description elements collect here
	Circles       []Circle
}

// iconCursor is used while parsing documents
type iconCursor struct {
	icon                    *Icon
	fillStack               []color.NRGBA
	errorMode               ErrorMode
	inTitleText, inDescText bool
}

// Read reads a dot map from the given io.Reader.
// Only the root, groups, circles, titles and descriptions are understood.
// errMode determines if the reader ignores, errors out, or logs a warning
// when it meets another element.
func Read(stream io.Reader, errMode ErrorMode) (*Icon, error) {
	icon := &Icon{}
	cursor := &iconCursor{fillStack: []color.NRGBA{{A: 0xff}}, icon: icon, errorMode: errMode}
	decoder := xml.NewDecoder(stream)
	decoder.CharsetReader = charset.NewReaderLabel
	seenTag := false
	for {
		t, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				if !seenTag {
					return nil, errNoRoot
				}
				break
			}
			return icon, err
		}
		switch se := t.(type) {
		case xml.StartElement:
			seenTag = true
			if err = cursor.pushFill(se.Attr); err != nil {
				return icon, err
			}
			if err = cursor.readStartElement(se); err != nil {
				return icon, err
			}
		case xml.EndElement:
			cursor.fillStack = cursor.fillStack[:len(cursor.fillStack)-1]
			switch se.Name.Local {
			case "title":
				cursor.inTitleText = false
			case "desc":
				cursor.inDescText = false
			}
		case xml.CharData:
			if cursor.inTitleText {
				icon.Titles[len(icon.Titles)-1] += string(se)
			}
			if cursor.inDescText {
				icon.Descriptions[len(icon.Descriptions)-1] += string(se)
			}
		}
	}
	if icon.Width == 0 {
		icon.Width = icon.ViewBox.W
	}
	if icon.Height == 0 {
		icon.Height = icon.ViewBox.H
	}
	return icon, nil
}

// ReadString is a convenience wrapper around Read.
func ReadString(text string, errMode ErrorMode) (*Icon, error) {
	return Read(strings.NewReader(text), errMode)
}

// ReadFile reads a dot map from the named file.
func ReadFile(file string, errMode ErrorMode) (*Icon, error) {
	fin, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer fin.Close()
	return Read(fin, errMode)
}

// pushFill reads the fill of the element, either from the attribute or
// from the style attribute, and pushes it on the fill stack.
// Elements without fill inherit it from their parent.
func (c *iconCursor) pushFill(attrs []xml.Attr) error {
	current := c.fillStack[len(c.fillStack)-1]
	var pairs []string
	for _, attr := range attrs {
		switch strings.ToLower(attr.Name.Local) {
		case "style":
			pairs = append(pairs, strings.Split(attr.Value, ";")...)
		case "fill":
			pairs = append(pairs, "fill:"+attr.Value)
		}
	}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, ":")
		if !ok || strings.ToLower(strings.TrimSpace(k)) != "fill" {
			continue
		}
		col, err := ParseColor(v)
		if err != nil {
			return err
		}
		current = col
	}
	c.fillStack = append(c.fillStack, current)
	return nil
}

func (c *iconCursor) handleError(msg string) error {
	switch c.errorMode {
	case StrictErrorMode:
		return errors.New(msg)
	case WarnErrorMode:
		logging.Logger().Warn(msg)
	}
	return nil
}

func (c *iconCursor) readStartElement(se xml.StartElement) error {
	df, ok := drawFuncs[se.Name.Local]
	if !ok {
		return c.handleError("cannot process svg element " + se.Name.Local)
	}
	return df(c, se.Attr)
}

type svgFunc func(c *iconCursor, attrs []xml.Attr) error

var drawFuncs = map[string]svgFunc{
	"svg":    svgF,
	"g":      gF,
	"circle": circleF,
	"title":  titleF,
	"desc":   descF,
}

func svgF(c *iconCursor, attrs []xml.Attr) error {
	var err error
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "viewBox":
			var pts []float64
			pts, err = parsePoints(attr.Value)
			if err == nil && len(pts) != 4 {
				err = fmt.Errorf("invalid viewBox %q", attr.Value)
			}
			if err == nil {
				c.icon.ViewBox = Bounds{X: pts[0], Y: pts[1], W: pts[2], H: pts[3]}
			}
		case "width":
			c.icon.Width, err = parseLength(attr.Value)
		case "height":
			c.icon.Height, err = parseLength(attr.Value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func gF(*iconCursor, []xml.Attr) error { return nil } // g does nothing but push the fill

func circleF(c *iconCursor, attrs []xml.Attr) error {
	var cx, cy, r float64
	var err error
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "cx":
			cx, err = parseLength(attr.Value)
		case "cy":
			cy, err = parseLength(attr.Value)
		case "r":
			r, err = parseLength(attr.Value)
		}
		if err != nil {
			return err
		}
	}
	if r <= 0 { // not drawn, but not an error
		return nil
	}
	fill := c.fillStack[len(c.fillStack)-1]
	c.icon.Circles = append(c.icon.Circles, Circle{CX: cx, CY: cy, R: r, Fill: fill})
	return nil
}

func titleF(c *iconCursor, _ []xml.Attr) error {
	c.icon.Titles = append(c.icon.Titles, "")
	c.inTitleText = true
	return nil
}

func descF(c *iconCursor, _ []xml.Attr) error {
	c.icon.Descriptions = append(c.icon.Descriptions, "")
	c.inDescText = true
	return nil
}

// parseLength parses a user unit length, with an optional px suffix.
func parseLength(s string) (float64, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	return strconv.ParseFloat(s, 64)
}

// parsePoints reads a list of numbers separated by commas or spaces.
func parsePoints(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

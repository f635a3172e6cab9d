package svgopt

import (
	"encoding/xml"
	"io"
	"strings"
)

// HoistFill moves a fill shared by every circle to a single group
// wrapping the content of the root element. Documents where circles
// disagree, or where another element carries a fill, are left untouched.
func HoistFill() Pass {
	return Pass{Name: "hoist-fill", Apply: hoistFill}
}

func isFill(attr xml.Attr) bool { return attr.Name.Space == "" && attr.Name.Local == "fill" }

func hoistFill(text string) (string, error) {
	var tokens []xml.Token
	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		tokens = append(tokens, xml.CopyToken(tok))
	}

	fill, ok := sharedFill(tokens)
	if !ok {
		return text, nil
	}

	var sb strings.Builder
	enc := xml.NewEncoder(&sb)
	group := xml.Name{Local: "g"}
	depth := 0
	for _, tok := range tokens {
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if t.Name.Local == "circle" {
				t.Attr = withoutFill(t.Attr)
			}
			if err := enc.EncodeToken(t); err != nil {
				return "", err
			}
			if depth == 1 {
				g := xml.StartElement{Name: group, Attr: []xml.Attr{{Name: xml.Name{Local: "fill"}, Value: fill}}}
				if err := enc.EncodeToken(g); err != nil {
					return "", err
				}
			}
			continue
		case xml.EndElement:
			if depth == 1 {
				if err := enc.EncodeToken(xml.EndElement{Name: group}); err != nil {
					return "", err
				}
			}
			depth--
		}
		if err := enc.EncodeToken(tok); err != nil {
			return "", err
		}
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// sharedFill returns the fill common to every circle.
func sharedFill(tokens []xml.Token) (string, bool) {
	var (
		fill    string
		circles int
	)
	for _, tok := range tokens {
		se, isStart := tok.(xml.StartElement)
		if !isStart {
			continue
		}
		var (
			value string
			has   bool
		)
		for _, attr := range se.Attr {
			if isFill(attr) {
				value, has = attr.Value, true
			}
		}
		if se.Name.Local != "circle" {
			if has {
				return "", false
			}
			continue
		}
		if !has || (circles > 0 && value != fill) {
			return "", false
		}
		fill = value
		circles++
	}
	return fill, circles > 0
}

func withoutFill(attrs []xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(attrs))
	for _, attr := range attrs {
		if !isFill(attr) {
			out = append(out, attr)
		}
	}
	return out
}

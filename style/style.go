// Package style defines property values, declarations and the per-node
// collection of specified values the cascade writes into.
package style

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"svgcore/qname"
)

var (
	ErrUnknownProperty = errors.New("unknown property")
	ErrInvalidValue    = errors.New("invalid property value")
)

// Value is a parsed property value. String returns CSS text which parses
// back to the same value.
type Value interface {
	String() string
}

// Declaration is a single property assignment.
type Declaration struct {
	Name      qname.Name
	Value     Value
	Important bool
}

func (d Declaration) String() string {
	s := d.Name.Local + ": " + d.Value.String()
	if d.Important {
		s += " !important"
	}
	return s
}

// Inherit is the "inherit" keyword, valid for every property.
type Inherit struct{}

func (Inherit) String() string { return "inherit" }

// PaintKind distinguishes forms of a paint value.
type PaintKind int

const (
	PaintNone PaintKind = iota
	PaintCurrentColor
	PaintColor
	PaintURL
)

// Paint is value of fill and stroke.
type Paint struct {
	Kind     PaintKind
	Color    color.NRGBA
	URL      string // PaintURL only, as written (e.g. "#grad")
	Fallback *Paint // PaintURL only, optional
}

func (p Paint) String() string {
	switch p.Kind {
	case PaintNone:
		return "none"
	case PaintCurrentColor:
		return "currentColor"
	case PaintColor:
		return colorString(p.Color)
	case PaintURL:
		s := "url(" + p.URL + ")"
		if p.Fallback != nil {
			s += " " + p.Fallback.String()
		}
		return s
	}
	return ""
}

// Color is value of color-only properties: a concrete color or currentColor.
type Color struct {
	Current bool
	RGBA    color.NRGBA
}

func (c Color) String() string {
	if c.Current {
		return "currentColor"
	}
	return colorString(c.RGBA)
}

func colorString(c color.NRGBA) string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, formatFloat(float64(c.A)/255))
}

// Length is a number with optional unit, empty unit means user units.
type Length struct {
	Value float64
	Unit  string
}

func (l Length) String() string {
	return formatFloat(l.Value) + l.Unit
}

// Number is a plain number.
type Number float64

func (n Number) String() string {
	return formatFloat(float64(n))
}

// Keyword is one of the identifiers a property accepts.
type Keyword string

func (k Keyword) String() string {
	return string(k)
}

// IRI references another element, empty IRI is "none".
type IRI string

func (i IRI) String() string {
	if i == "" {
		return "none"
	}
	return "url(" + string(i) + ")"
}

// FontFamily is a prioritized list of family names.
type FontFamily []string

func (f FontFamily) String() string {
	parts := make([]string, len(f))
	for i, name := range f {
		if strings.ContainsAny(name, " ,'\"") {
			parts[i] = `"` + cssEscapeDoubleQuoted(name) + `"`
		} else {
			parts[i] = name
		}
	}
	return strings.Join(parts, ", ")
}

// DashArray is stroke-dasharray, nil means "none".
type DashArray []Length

func (d DashArray) String() string {
	if len(d) == 0 {
		return "none"
	}
	parts := make([]string, len(d))
	for i, l := range d {
		parts[i] = l.String()
	}
	return strings.Join(parts, ",")
}

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

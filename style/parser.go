package style

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode"

	"github.com/srwiley/oksvg"
	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"

	"svgcore/qname"
)

// PropertyParser turns raw declaration text into a Value. inDeclList is true
// for declarations coming from stylesheets or style attribute and false for
// presentation attributes.
type PropertyParser interface {
	ParseProperty(name qname.Name, raw string, inDeclList bool) (Value, error)
}

type valueParser func(toks []token) (Value, bool)

type property struct {
	parse valueParser
	// shorthand properties may not be used as presentation attributes
	declListOnly bool
}

// DefaultParser knows the subset of SVG properties the cascade works with.
type DefaultParser struct{}

// ParseProperty implements PropertyParser.
func (DefaultParser) ParseProperty(name qname.Name, raw string, inDeclList bool) (Value, error) {
	if name.Space != qname.NsNone {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name)
	}
	prop, ok := properties[name.Local]
	if !ok || (prop.declListOnly && !inDeclList) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProperty, name.Local)
	}

	toks := lexValue(raw)
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: %s: empty value", ErrInvalidValue, name.Local)
	}
	if len(toks) == 1 && toks[0].isIdent("inherit") {
		return Inherit{}, nil
	}
	v, ok := prop.parse(toks)
	if !ok {
		return nil, fmt.Errorf("%w: %s: %q", ErrInvalidValue, name.Local, raw)
	}
	return v, nil
}

// IsProperty reports whether name is a property known to DefaultParser, used
// to tell presentation attributes from regular ones.
func IsProperty(name qname.Name) bool {
	if name.Space != qname.NsNone {
		return false
	}
	prop, ok := properties[name.Local]
	return ok && !prop.declListOnly
}

var properties = map[string]property{
	"fill":   {parse: parsePaint},
	"stroke": {parse: parsePaint},

	"color":          {parse: parseColor},
	"stop-color":     {parse: parseColor},
	"flood-color":    {parse: parseColor},
	"lighting-color": {parse: parseColor},

	"opacity":        {parse: parseOpacity},
	"fill-opacity":   {parse: parseOpacity},
	"stroke-opacity": {parse: parseOpacity},
	"stop-opacity":   {parse: parseOpacity},
	"flood-opacity":  {parse: parseOpacity},

	"stroke-width":      {parse: lengthParser(false)},
	"stroke-dashoffset": {parse: lengthParser(true)},
	"font-size":         {parse: fontSizeParser},
	"letter-spacing":    {parse: spacingParser},
	"word-spacing":      {parse: spacingParser},
	"stroke-miterlimit": {parse: parseMiterLimit},
	"stroke-dasharray":  {parse: parseDashArray},

	"fill-rule":                   {parse: keywords("nonzero", "evenodd")},
	"clip-rule":                   {parse: keywords("nonzero", "evenodd")},
	"display":                     {parse: keywords("inline", "block", "list-item", "run-in", "compact", "marker", "table", "inline-table", "table-row-group", "table-header-group", "table-footer-group", "table-row", "table-column-group", "table-column", "table-cell", "table-caption", "none")},
	"visibility":                  {parse: keywords("visible", "hidden", "collapse")},
	"overflow":                    {parse: keywords("visible", "hidden", "scroll", "auto")},
	"stroke-linecap":              {parse: keywords("butt", "round", "square")},
	"stroke-linejoin":             {parse: keywords("miter", "miter-clip", "round", "bevel", "arcs")},
	"font-style":                  {parse: keywords("normal", "italic", "oblique")},
	"font-variant":                {parse: keywords("normal", "small-caps")},
	"font-weight":                 {parse: keywords("normal", "bold", "bolder", "lighter", "100", "200", "300", "400", "500", "600", "700", "800", "900")},
	"font-stretch":                {parse: keywords("normal", "wider", "narrower", "ultra-condensed", "extra-condensed", "condensed", "semi-condensed", "semi-expanded", "expanded", "extra-expanded", "ultra-expanded")},
	"text-anchor":                 {parse: keywords("start", "middle", "end")},
	"text-decoration":             {parse: keywords("none", "underline", "overline", "line-through")},
	"direction":                   {parse: keywords("ltr", "rtl")},
	"unicode-bidi":                {parse: keywords("normal", "embed", "isolate", "bidi-override", "isolate-override", "plaintext")},
	"writing-mode":                {parse: keywords("lr-tb", "rl-tb", "tb-rl", "lr", "rl", "tb", "horizontal-tb", "vertical-rl", "vertical-lr")},
	"shape-rendering":             {parse: keywords("auto", "optimizeSpeed", "crispEdges", "geometricPrecision")},
	"text-rendering":              {parse: keywords("auto", "optimizeSpeed", "optimizeLegibility", "geometricPrecision")},
	"image-rendering":             {parse: keywords("auto", "optimizeSpeed", "optimizeQuality")},
	"color-interpolation-filters": {parse: keywords("auto", "sRGB", "linearRGB")},
	"mix-blend-mode":              {parse: keywords("normal", "multiply", "screen", "overlay", "darken", "lighten", "color-dodge", "color-burn", "hard-light", "soft-light", "difference", "exclusion", "hue", "saturation", "color", "luminosity")},
	"isolation":                   {parse: keywords("auto", "isolate")},

	"clip-path":    {parse: parseIRI},
	"mask":         {parse: parseIRI},
	"filter":       {parse: parseIRI},
	"marker-start": {parse: parseIRI},
	"marker-mid":   {parse: parseIRI},
	"marker-end":   {parse: parseIRI},
	"marker":       {parse: parseIRI, declListOnly: true},

	"font-family": {parse: parseFontFamily},
}

type token struct {
	tt   css.TokenType
	data string
}

func (t token) isIdent(name string) bool {
	return t.tt == css.IdentToken && strings.EqualFold(t.data, name)
}

// lexValue splits raw value text into tokens, dropping whitespace and comments.
func lexValue(raw string) []token {
	l := css.NewLexer(parse.NewInputString(raw))
	var toks []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return toks
		case css.WhitespaceToken, css.CommentToken:
			continue
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

func joinTokens(toks []token) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.data)
	}
	return sb.String()
}

func parsePaint(toks []token) (Value, bool) {
	if len(toks) == 1 {
		switch {
		case toks[0].isIdent("none"):
			return Paint{Kind: PaintNone}, true
		case toks[0].isIdent("currentcolor"):
			return Paint{Kind: PaintCurrentColor}, true
		}
	}
	if toks[0].tt == css.URLToken {
		p := Paint{Kind: PaintURL, URL: extractURL(toks[0].data)}
		if p.URL == "" {
			return nil, false
		}
		if len(toks) > 1 {
			fb, ok := parsePaint(toks[1:])
			if !ok || fb.(Paint).Kind == PaintURL {
				return nil, false
			}
			fallback := fb.(Paint)
			p.Fallback = &fallback
		}
		return p, true
	}
	c, ok := parseColorTokens(toks)
	if !ok {
		return nil, false
	}
	return Paint{Kind: PaintColor, Color: c}, true
}

func parseColor(toks []token) (Value, bool) {
	if len(toks) == 1 && toks[0].isIdent("currentcolor") {
		return Color{Current: true}, true
	}
	c, ok := parseColorTokens(toks)
	if !ok {
		return nil, false
	}
	return Color{RGBA: c}, true
}

func parseColorTokens(toks []token) (color.NRGBA, bool) {
	s := strings.ToLower(joinTokens(toks))
	if s == "" || s == "none" || strings.HasPrefix(s, "url") {
		return color.NRGBA{}, false
	}
	c, err := oksvg.ParseSVGColor(s)
	if err != nil || c == nil {
		return color.NRGBA{}, false
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA), true
}

func parseOpacity(toks []token) (Value, bool) {
	if len(toks) != 1 {
		return nil, false
	}
	var f float64
	switch toks[0].tt {
	case css.NumberToken:
		v, err := strconv.ParseFloat(toks[0].data, 64)
		if err != nil {
			return nil, false
		}
		f = v
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(toks[0].data, "%"), 64)
		if err != nil {
			return nil, false
		}
		f = v / 100
	default:
		return nil, false
	}
	return Number(min(max(f, 0), 1)), true
}

func parseMiterLimit(toks []token) (Value, bool) {
	if len(toks) != 1 || toks[0].tt != css.NumberToken {
		return nil, false
	}
	v, err := strconv.ParseFloat(toks[0].data, 64)
	if err != nil || v < 1 {
		return nil, false
	}
	return Number(v), true
}

var lengthUnits = map[string]bool{
	"": true, "px": true, "pt": true, "pc": true, "in": true, "cm": true,
	"mm": true, "em": true, "ex": true, "%": true,
}

func lengthParser(allowNegative bool) valueParser {
	return func(toks []token) (Value, bool) {
		if len(toks) != 1 {
			return nil, false
		}
		l, ok := parseLengthToken(toks[0])
		if !ok || (!allowNegative && l.Value < 0) {
			return nil, false
		}
		return l, true
	}
}

func parseLengthToken(t token) (Length, bool) {
	var l Length
	switch t.tt {
	case css.NumberToken:
		v, err := strconv.ParseFloat(t.data, 64)
		if err != nil {
			return l, false
		}
		l.Value = v
	case css.PercentageToken:
		v, err := strconv.ParseFloat(strings.TrimSuffix(t.data, "%"), 64)
		if err != nil {
			return l, false
		}
		l.Value, l.Unit = v, "%"
	case css.DimensionToken:
		l.Value, l.Unit = parseDimension(t.data)
	default:
		return l, false
	}
	return l, lengthUnits[l.Unit]
}

// parseDimension extracts numeric value and unit from dimension token.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else if (r == 'e' || r == 'E') && i+1 < len(s) && (unicode.IsDigit(rune(s[i+1])) || s[i+1] == '-' || s[i+1] == '+') {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, "?"
	}
	num, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return 0, "?"
	}
	return num, strings.ToLower(s[numEnd:])
}

var fontSizeKeywords = keywords("xx-small", "x-small", "small", "medium", "large", "x-large", "xx-large", "larger", "smaller")

func fontSizeParser(toks []token) (Value, bool) {
	if v, ok := fontSizeKeywords(toks); ok {
		return v, true
	}
	return lengthParser(false)(toks)
}

func spacingParser(toks []token) (Value, bool) {
	if len(toks) == 1 && toks[0].isIdent("normal") {
		return Keyword("normal"), true
	}
	return lengthParser(true)(toks)
}

func keywords(allowed ...string) valueParser {
	set := make(map[string]string, len(allowed))
	for _, k := range allowed {
		set[strings.ToLower(k)] = k
	}
	return func(toks []token) (Value, bool) {
		if len(toks) != 1 || (toks[0].tt != css.IdentToken && toks[0].tt != css.NumberToken) {
			return nil, false
		}
		k, ok := set[strings.ToLower(toks[0].data)]
		if !ok {
			return nil, false
		}
		return Keyword(k), true
	}
}

func parseIRI(toks []token) (Value, bool) {
	if len(toks) != 1 {
		return nil, false
	}
	switch {
	case toks[0].isIdent("none"):
		return IRI(""), true
	case toks[0].tt == css.URLToken:
		if u := extractURL(toks[0].data); u != "" {
			return IRI(u), true
		}
	}
	return nil, false
}

func parseFontFamily(toks []token) (Value, bool) {
	var (
		families FontFamily
		idents   []string
	)
	flush := func() bool {
		if len(idents) == 0 {
			return false
		}
		families = append(families, strings.Join(idents, " "))
		idents = idents[:0]
		return true
	}
	expectComma := false
	for _, t := range toks {
		switch t.tt {
		case css.StringToken:
			if expectComma || len(idents) > 0 {
				return nil, false
			}
			families = append(families, unquote(t.data))
			expectComma = true
		case css.IdentToken:
			if expectComma {
				return nil, false
			}
			idents = append(idents, t.data)
		case css.CommaToken:
			if !expectComma && !flush() {
				return nil, false
			}
			expectComma = false
		default:
			return nil, false
		}
	}
	if !expectComma && !flush() {
		return nil, false
	}
	return families, true
}

func parseDashArray(toks []token) (Value, bool) {
	if len(toks) == 1 && toks[0].isIdent("none") {
		return DashArray(nil), true
	}
	var (
		dashes    DashArray
		lastComma = true
	)
	for _, t := range toks {
		if t.tt == css.CommaToken {
			if lastComma {
				return nil, false
			}
			lastComma = true
			continue
		}
		l, ok := parseLengthToken(t)
		if !ok || l.Value < 0 {
			return nil, false
		}
		dashes = append(dashes, l)
		lastComma = false
	}
	if lastComma || len(dashes) == 0 {
		return nil, false
	}
	return dashes, true
}

// extractURL returns reference from url(...) token data.
func extractURL(s string) string {
	if len(s) >= 4 && strings.EqualFold(s[:4], "url(") {
		s = s[4:]
	}
	s = strings.TrimSuffix(s, ")")
	return unquote(strings.TrimSpace(s))
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}

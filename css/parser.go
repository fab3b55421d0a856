package css

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"
	"unicode/utf8"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"svgcore/allowed"
	"svgcore/qname"
	"svgcore/resource"
	"svgcore/selectors"
	"svgcore/style"
)

// Parser parses CSS stylesheets into qualified rules, loading imported
// stylesheets through the security boundary.
type Parser struct {
	log       *zap.Logger
	resolver  allowed.Resolver
	fetcher   resource.Fetcher
	props     style.PropertyParser
	defaultNS string
}

// Option configures Parser.
type Option func(*Parser)

// WithResolver sets security boundary used for @import and FromHref.
func WithResolver(r allowed.Resolver) Option {
	return func(p *Parser) { p.resolver = r }
}

// WithFetcher sets how allowed stylesheet URLs are fetched.
func WithFetcher(f resource.Fetcher) Option {
	return func(p *Parser) { p.fetcher = f }
}

// WithPropertyParser sets property value parser.
func WithPropertyParser(pp style.PropertyParser) Option {
	return func(p *Parser) { p.props = pp }
}

// PropertyParser returns parser used for declaration values.
func (p *Parser) PropertyParser() style.PropertyParser {
	return p.props
}

// WithDefaultNamespace sets namespace unprefixed type selectors match,
// SVG by default.
func WithDefaultNamespace(ns string) Option {
	return func(p *Parser) { p.defaultNS = ns }
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger, opts ...Option) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Parser{
		log:       log.Named("css-parser"),
		props:     style.DefaultParser{},
		defaultNS: qname.NsSVG,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.resolver == nil {
		p.resolver = allowed.DefaultPolicy()
	}
	if p.fetcher == nil {
		p.fetcher = resource.NewDefaultMux(0, log)
	}
	return p
}

// load tracks stylesheets being loaded during a single top-level call so
// import cycles terminate.
type load struct {
	*Parser
	base     *url.URL
	inFlight map[string]bool
}

func (p *Parser) newLoad(base *url.URL) *load {
	return &load{Parser: p, base: base, inFlight: make(map[string]bool)}
}

// FromData parses stylesheet text. base is used to resolve @import
// references, imports are parsed relative to the same base. Invalid rules,
// declarations and imports are dropped, the only error is text which is not
// valid UTF-8.
func (p *Parser) FromData(text string, base *url.URL) (*Stylesheet, error) {
	if !utf8.ValidString(text) {
		return nil, ErrBadCSS
	}
	sheet := &Stylesheet{}
	p.newLoad(base).parse(sheet, text, "")
	return sheet, nil
}

// FromHref fetches stylesheet through the security boundary and parses it.
func (p *Parser) FromHref(href string, base *url.URL) (*Stylesheet, error) {
	sheet := &Stylesheet{}
	if err := p.newLoad(base).load(sheet, href); err != nil {
		return nil, err
	}
	return sheet, nil
}

// load fetches stylesheet from href and appends its rules to sheet.
func (l *load) load(sheet *Stylesheet, href string) error {
	aurl, err := l.resolver.Resolve(href, l.base)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrBadURL, href, err)
	}
	key := aurl.String()
	if l.inFlight[key] {
		return fmt.Errorf("%w: %s: import cycle", ErrBadCSS, key)
	}
	l.inFlight[key] = true
	defer delete(l.inFlight, key)

	data, err := l.fetcher.Fetch(aurl)
	if err != nil {
		return fmt.Errorf("unable to load stylesheet %s: %w", key, err)
	}
	if !isCSS(data.ContentType) {
		l.log.Debug("Stylesheet is not of type text/css, ignoring", zap.String("url", key), zap.String("type", data.ContentType))
		return fmt.Errorf("%w: %s has content type %q", ErrBadCSS, key, data.ContentType)
	}
	if !utf8.Valid(data.Bytes) {
		l.log.Debug("Stylesheet does not contain valid UTF-8 data, ignoring", zap.String("url", key))
		return fmt.Errorf("%w: %s is not valid UTF-8", ErrBadCSS, key)
	}
	text, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), data.Bytes)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBadCSS, key, err)
	}
	l.parse(sheet, string(text), key)
	return nil
}

// isCSS compares media type essence, parameters such as charset are ignored.
func isCSS(contentType string) bool {
	if contentType == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "text/css"
}

func (l *load) parse(sheet *Stylesheet, text, source string) {
	l.log.Debug("Parsing CSS", zap.String("source", source), zap.Int("bytes", len(text)))

	parser := css.NewParser(parse.NewInputString(text), false)

	var prelude strings.Builder
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) {
				return
			}
			l.log.Debug("CSS parse error", zap.Error(parser.Err()))
			prelude.Reset()

		case css.AtRuleGrammar:
			// @-rule without block
			if atRule := string(data); atRule == "@import" {
				l.importRule(sheet, parser.Values())
			} else {
				l.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginAtRuleGrammar:
			p := string(data)
			skipAtRuleBlock(parser)
			l.log.Debug("Skipping @-rule", zap.String("rule", p))

		case css.QualifiedRuleGrammar:
			// one part of comma separated selector group
			writeTokens(&prelude, parser.Values())
			prelude.WriteString(",")

		case css.BeginRulesetGrammar:
			writeTokens(&prelude, parser.Values())
			selText := prelude.String()
			prelude.Reset()

			decls := l.parseDeclarations(parser)
			sels, err := selectors.Parse(selText, l.defaultNS)
			if err != nil {
				l.log.Debug("Skipping rule with invalid selector", zap.String("selector", selText), zap.Error(err))
				continue
			}
			sheet.rules = append(sheet.rules, &QualifiedRule{Selectors: sels, Declarations: decls, Source: source})
		}
	}
}

// importRule handles @import "url" [media]; Media queries are ignored.
func (l *load) importRule(sheet *Stylesheet, tokens []css.Token) {
	href, ok := extractImportURL(tokens)
	if !ok {
		l.log.Debug("Skipping malformed @import")
		return
	}
	if err := l.load(sheet, href); err != nil {
		l.log.Debug("Skipping @import", zap.String("url", href), zap.Error(err))
	}
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) (string, bool) {
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			continue
		case css.StringToken:
			return unquote(string(t.Data)), true
		case css.URLToken:
			s := string(t.Data)
			s = s[strings.IndexByte(s, '(')+1:]
			s = strings.TrimSuffix(s, ")")
			return unquote(strings.TrimSpace(s)), true
		}
		return "", false
	}
	return "", false
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (l *load) parseDeclarations(parser *css.Parser) DeclarationList {
	var decls DeclarationList
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.EndRulesetGrammar:
			return decls

		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) {
				return decls
			}
			l.log.Debug("Skipping malformed declaration", zap.Error(parser.Err()))

		case css.DeclarationGrammar:
			if d, ok := l.declaration(string(data), parser.Values(), true); ok {
				decls.add(d)
			}

		case css.BeginAtRuleGrammar:
			skipAtRuleBlock(parser)

		case css.CustomPropertyGrammar:
			// CSS custom properties (--var) are not supported
			continue
		}
	}
}

// ParseDeclarations parses contents of a style attribute.
func (p *Parser) ParseDeclarations(text string) DeclarationList {
	var decls DeclarationList
	l := p.newLoad(nil)
	parser := css.NewParser(parse.NewInputString(text), true)
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) {
				return decls
			}
			p.log.Debug("Skipping malformed declaration", zap.Error(parser.Err()))
		case css.DeclarationGrammar:
			if d, ok := l.declaration(string(data), parser.Values(), true); ok {
				decls.add(d)
			}
		case css.BeginAtRuleGrammar:
			skipAtRuleBlock(parser)
		}
	}
}

// declaration converts name and value tokens to a parsed declaration,
// recognizing trailing !important.
func (l *load) declaration(name string, values []css.Token, inDeclList bool) (style.Declaration, bool) {
	values, important := stripImportant(values)

	var raw strings.Builder
	writeTokens(&raw, values)

	pname := qname.Local(name)
	v, err := l.props.ParseProperty(pname, raw.String(), inDeclList)
	if err != nil {
		l.log.Debug("Skipping declaration", zap.String("property", name), zap.Error(err))
		return style.Declaration{}, false
	}
	return style.Declaration{Name: pname, Value: v, Important: important}, true
}

func stripImportant(values []css.Token) ([]css.Token, bool) {
	end := trimWS(values)
	if end < 2 {
		return values, false
	}
	last, bang := values[end-1], values[:end-1]
	if last.TokenType != css.IdentToken || !strings.EqualFold(string(last.Data), "important") {
		return values, false
	}
	end = trimWS(bang)
	if end == 0 || bang[end-1].TokenType != css.DelimToken || string(bang[end-1].Data) != "!" {
		return values, false
	}
	return values[:end-1], true
}

// trimWS returns length of tokens without trailing whitespace.
func trimWS(tokens []css.Token) int {
	end := len(tokens)
	for end > 0 && tokens[end-1].TokenType == css.WhitespaceToken {
		end--
	}
	return end
}

func writeTokens(sb *strings.Builder, tokens []css.Token) {
	for _, t := range tokens {
		sb.Write(t.Data)
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if errors.Is(parser.Err(), io.EOF) {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
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

// Package document loads SVG documents: builds element tree, registers ids,
// collects stylesheets and cascades them.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/beevik/etree"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"svgcore/allowed"
	"svgcore/css"
	"svgcore/defs"
	"svgcore/dom"
	"svgcore/qname"
	"svgcore/resource"
	"svgcore/style"
)

// ErrNoRoot is returned for documents without root element.
var ErrNoRoot = errors.New("document has no root element")

// Options controls document loading. Zero value is usable: default security
// policy, local files and data: URLs, no logging.
type Options struct {
	// BaseURL is used to resolve references to stylesheets and other documents.
	BaseURL  *url.URL
	Resolver allowed.Resolver
	Fetcher  resource.Fetcher
	Log      *zap.Logger
	// StrictXML disables etree permissive mode.
	StrictXML bool
	// DefaultStylesheet is cascaded before stylesheets of the document.
	DefaultStylesheet string
	// Properties parses presentation attributes and declarations,
	// style.DefaultParser when nil.
	Properties style.PropertyParser
}

func (o Options) withDefaults() Options {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.Resolver == nil {
		o.Resolver = allowed.DefaultPolicy()
	}
	if o.Fetcher == nil {
		o.Fetcher = resource.NewDefaultMux(0, o.Log)
	}
	if o.Properties == nil {
		o.Properties = style.DefaultParser{}
	}
	return o
}

// Document is a loaded and styled SVG document.
type Document struct {
	ID uuid.UUID

	opts  Options
	log   *zap.Logger
	root  *dom.Node
	defs  *defs.Defs
	sheet *css.Stylesheet
}

// Load reads document from r.
func Load(r io.Reader, opts Options) (*Document, error) {
	opts = opts.withDefaults()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("unable to generate document id: %w", err)
	}
	log := opts.Log.Named("document").With(zap.Stringer("id", id))

	xdoc := etree.NewDocument()
	xdoc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    !opts.StrictXML,
	}
	if _, err := xdoc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to read document: %w", err)
	}
	if xdoc.Root() == nil {
		return nil, ErrNoRoot
	}

	d := &Document{
		ID:    id,
		opts:  opts,
		log:   log,
		root:  dom.Build(xdoc.Root()),
		defs:  defs.New(log),
		sheet: &css.Stylesheet{},
	}
	for n := range d.root.Elements() {
		if nid := n.ID(); nid != "" {
			d.defs.Insert(nid, n)
		}
	}

	parser := css.NewParser(log,
		css.WithResolver(opts.Resolver),
		css.WithFetcher(opts.Fetcher),
		css.WithPropertyParser(opts.Properties))
	if opts.DefaultStylesheet != "" {
		sheet, err := parser.FromData(opts.DefaultStylesheet, opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("unable to parse default stylesheet: %w", err)
		}
		d.sheet.Append(sheet)
	}
	d.collectStyles(parser, &xdoc.Element)
	d.cascade(parser)

	log.Debug("Document loaded",
		zap.Stringer("base", opts.BaseURL),
		zap.Int("ids", d.defs.Len()),
		zap.Int("rules", d.sheet.Len()))
	return d, nil
}

// LoadURL fetches document through configured fetcher. Unless set, base URL
// is the document URL.
func LoadURL(u *allowed.URL, opts Options) (*Document, error) {
	opts = opts.withDefaults()
	data, err := opts.Fetcher.Fetch(u)
	if err != nil {
		return nil, fmt.Errorf("unable to load document %s: %w", u, err)
	}
	if opts.BaseURL == nil {
		opts.BaseURL = u.URL()
	}
	return Load(bytes.NewReader(data.Bytes), opts)
}

// LoadFile loads local file, which becomes base for all its references.
func LoadFile(name string, opts Options) (*Document, error) {
	opts = opts.withDefaults()
	base, err := allowed.FileURL(name)
	if err != nil {
		return nil, fmt.Errorf("unable to build URL for %s: %w", name, err)
	}
	u, err := opts.Resolver.Resolve(base.String(), base)
	if err != nil {
		return nil, fmt.Errorf("unable to load document %s: %w", name, err)
	}
	opts.BaseURL = u.URL()
	return LoadURL(u, opts)
}

// Root returns root element.
func (d *Document) Root() *dom.Node { return d.root }

// Stylesheet returns all rules cascaded over the document.
func (d *Document) Stylesheet() *css.Stylesheet { return d.sheet }

// BaseURL implements defs.Handle.
func (d *Document) BaseURL() *url.URL { return d.opts.BaseURL }

// Resolver implements defs.Handle.
func (d *Document) Resolver() allowed.Resolver { return d.opts.Resolver }

// Defs implements defs.Handle.
func (d *Document) Defs() *defs.Defs { return d.defs }

// LoadExtern implements defs.Handle, external document is loaded with the
// same options and its own URL as base.
func (d *Document) LoadExtern(u *allowed.URL) (defs.Handle, error) {
	opts := d.opts
	opts.BaseURL = nil
	ext, err := LoadURL(u, opts)
	if err != nil {
		return nil, err
	}
	d.log.Debug("External document loaded", zap.Stringer("url", u), zap.Stringer("extern", ext.ID))
	return ext, nil
}

// Lookup resolves reference such as "#id" or "other.svg#id" made from this
// document, nil when it cannot be resolved.
func (d *Document) Lookup(ref string) *dom.Node {
	return d.defs.LookupString(d, ref)
}

// StyledXML serializes document with specified values materialized as
// presentation attributes.
func (d *Document) StyledXML() ([]byte, error) {
	doc := dom.ToDocument(d.root, true)
	doc.Indent(2)
	return doc.WriteToBytes()
}

// collectStyles walks document in order picking xml-stylesheet processing
// instructions and <style> elements.
func (d *Document) collectStyles(parser *css.Parser, e *etree.Element) {
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.ProcInst:
			if t.Target == "xml-stylesheet" {
				d.stylesheetPI(parser, t.Inst)
			}
		case *etree.Element:
			if dom.ElementName(t) == qname.SVG("style") {
				d.styleElement(parser, t)
				continue
			}
			d.collectStyles(parser, t)
		}
	}
}

func (d *Document) stylesheetPI(parser *css.Parser, inst string) {
	attrs, err := pseudoAttrs(inst)
	if err != nil {
		d.log.Warn("Malformed xml-stylesheet processing instruction", zap.String("data", inst), zap.Error(err))
		return
	}
	href, ok := attrs["href"]
	if !ok || attrs["type"] != "text/css" {
		return
	}
	if alt, ok := attrs["alternate"]; ok && alt != "no" {
		return
	}
	sheet, err := parser.FromHref(href, d.opts.BaseURL)
	if err != nil {
		d.log.Warn("Unable to load stylesheet", zap.String("href", href), zap.Error(err))
		return
	}
	d.sheet.Append(sheet)
}

func (d *Document) styleElement(parser *css.Parser, e *etree.Element) {
	if typ := e.SelectAttrValue("type", ""); typ != "" && typ != "text/css" {
		d.log.Debug("Ignoring style element", zap.String("type", typ))
		return
	}
	sheet, err := parser.FromData(e.Text(), d.opts.BaseURL)
	if err != nil {
		d.log.Warn("Unable to parse style element", zap.Error(err))
		return
	}
	d.sheet.Append(sheet)
}

// cascade applies presentation attributes, then stylesheets, then style
// attribute to every element.
func (d *Document) cascade(parser *css.Parser) {
	props := parser.PropertyParser()
	for n := range d.root.Elements() {
		for _, a := range n.Attrs() {
			v, err := props.ParseProperty(a.Name, a.Value, false)
			if err != nil {
				if !errors.Is(err, style.ErrUnknownProperty) {
					d.log.Warn("Invalid presentation attribute", zap.Stringer("node", n), zap.Stringer("attr", a.Name), zap.Error(err))
				}
				continue
			}
			n.ApplyStyleDeclaration(style.Declaration{Name: a.Name, Value: v})
		}

		d.sheet.ApplyMatchesToNode(n)

		if text, ok := n.Attr(qname.Local("style")); ok {
			decls := parser.ParseDeclarations(text)
			css.ApplyDeclarations(n, &decls)
		}
	}
}

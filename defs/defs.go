// Package defs keeps elements addressable by id and resolves references to
// them, loading external documents on demand.
package defs

import (
	"net/url"
	"sort"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"svgcore/allowed"
	"svgcore/dom"
	"svgcore/href"
)

// Handle is a loaded document as seen by the registry.
type Handle interface {
	// BaseURL is used to resolve references to other documents, may be nil.
	BaseURL() *url.URL
	Resolver() allowed.Resolver
	Defs() *Defs
	// LoadExtern loads document referenced from this one.
	LoadExtern(u *allowed.URL) (Handle, error)
}

type externState int

const (
	loading externState = iota
	loaded
	failed
)

type extern struct {
	state  externState
	handle Handle
}

// Defs maps element ids to nodes of a single document and caches external
// documents referenced from it by canonical URL.
type Defs struct {
	log     *zap.Logger
	nodes   map[string]*dom.Node
	externs map[string]*extern
}

// New creates empty registry.
func New(log *zap.Logger) *Defs {
	if log == nil {
		log = zap.NewNop()
	}
	return &Defs{
		log:     log.Named("defs"),
		nodes:   make(map[string]*dom.Node),
		externs: make(map[string]*extern),
	}
}

// Insert registers node under id. First registration wins, later duplicates
// are ignored.
func (d *Defs) Insert(id string, n *dom.Node) {
	if _, ok := d.nodes[id]; ok {
		d.log.Debug("Duplicate id ignored", zap.String("id", id), zap.Stringer("node", n))
		return
	}
	d.nodes[id] = n
}

// Len returns number of registered ids.
func (d *Defs) Len() int {
	return len(d.nodes)
}

// IDs returns registered ids in natural order.
func (d *Defs) IDs() []string {
	ids := make([]string, 0, len(d.nodes))
	for id := range d.nodes {
		ids = append(ids, id)
	}
	sort.Sort(natural.StringSlice(ids))
	return ids
}

// Lookup resolves reference made from document h. Plain URIs never resolve
// to an element. Any failure results in nil.
func (d *Defs) Lookup(h Handle, ref href.Href) *dom.Node {
	switch ref.Kind {
	case href.FragmentID:
		return d.nodes[ref.Fragment]
	case href.URIWithFragmentID:
		ext := d.externHandle(h, ref.URI)
		if ext == nil {
			return nil
		}
		return ext.Defs().nodes[ref.Fragment]
	default:
		return nil
	}
}

// LookupString parses s and resolves it, see Lookup.
func (d *Defs) LookupString(h Handle, s string) *dom.Node {
	ref, err := href.Parse(s)
	if err != nil {
		d.log.Debug("Unable to parse reference", zap.String("href", s), zap.Error(err))
		return nil
	}
	return d.Lookup(h, ref)
}

func (d *Defs) externHandle(h Handle, uri string) Handle {
	aurl, err := h.Resolver().Resolve(uri, h.BaseURL())
	if err != nil {
		d.log.Debug("Reference is not allowed", zap.String("uri", uri), zap.Error(err))
		return nil
	}
	key := aurl.String()

	if e, ok := d.externs[key]; ok {
		switch e.state {
		case loaded:
			return e.handle
		case loading:
			d.log.Debug("Reference to document being loaded", zap.String("url", key))
		}
		return nil
	}

	e := &extern{state: loading}
	d.externs[key] = e

	handle, err := h.LoadExtern(aurl)
	if err != nil || handle == nil {
		d.log.Debug("Unable to load external document", zap.String("url", key), zap.Error(err))
		e.state = failed
		return nil
	}
	e.state, e.handle = loaded, handle
	return handle
}

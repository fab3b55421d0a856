package css

import (
	"strings"

	"svgcore/dom"
	"svgcore/selectors"
)

// Element adapts a document tree node to selector matching.
type Element struct {
	n *dom.Node
}

// NewElement wraps element node n.
func NewElement(n *dom.Node) Element {
	return Element{n: n}
}

// wrap never returns typed nil, so callers can compare result with nil.
func wrap(n *dom.Node) selectors.Element {
	if n == nil {
		return nil
	}
	return Element{n: n}
}

func (e Element) Node() *dom.Node { return e.n }

func (e Element) Opaque() any { return e.n }

func (e Element) Parent() selectors.Element {
	return wrap(e.n.Parent())
}

func (e Element) PrevSiblingElement() selectors.Element {
	s := e.n.PrevSibling()
	for s != nil && s.IsChars() {
		s = s.PrevSibling()
	}
	return wrap(s)
}

func (e Element) NextSiblingElement() selectors.Element {
	s := e.n.NextSibling()
	for s != nil && s.IsChars() {
		s = s.NextSibling()
	}
	return wrap(s)
}

func (e Element) HasLocalName(name string) bool {
	return e.n.Name().Local == name
}

func (e Element) HasNamespace(ns string) bool {
	return e.n.Name().Space == ns
}

func (e Element) IsSameType(other selectors.Element) bool {
	o, ok := other.(Element)
	return ok && o.n.Name() == e.n.Name()
}

func (e Element) HasID(id string) bool {
	v := e.n.ID()
	return v != "" && v == id
}

func (e Element) HasClass(name string) bool {
	return e.n.HasClass(name)
}

func (e Element) IsRoot() bool {
	return e.n.Parent() == nil
}

// IsEmpty reports whether node has no children other than text consisting
// only of whitespace.
func (e Element) IsEmpty() bool {
	for c := range e.n.Children() {
		if !c.IsChars() || strings.TrimSpace(c.Text()) != "" {
			return false
		}
	}
	return true
}

func (e Element) IsLink() bool {
	return e.n.Type() == dom.Link
}

// Attribute selectors, non-structural pseudo-classes, pseudo-elements and
// shadow trees are not supported and never match.

func (e Element) AttrMatches(*selectors.AttrSelector) bool { return false }
func (e Element) MatchNonTSPseudoClass(string) bool        { return false }
func (e Element) IsPseudoElement() bool                    { return false }
func (e Element) IsHTMLSlotElement() bool                  { return false }
func (e Element) IsPart(string) bool                       { return false }
func (e Element) ContainingShadowHost() selectors.Element  { return nil }
func (e Element) ParentIsShadowRoot() bool                 { return false }

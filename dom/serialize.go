package dom

import (
	"fmt"

	"github.com/beevik/etree"

	"svgcore/qname"
	"svgcore/style"
)

// ToElement converts tree back to etree. When styled is set every element
// gets its specified values written as presentation attributes, style
// attributes and <style> elements are dropped since their effect is already
// materialized.
func ToElement(root *Node, styled bool) *etree.Element {
	s := &serializer{styled: styled, prefixes: map[string]string{}}
	e := s.element(root)
	e.CreateAttr("xmlns", qname.NsSVG)
	for space, prefix := range s.prefixes {
		e.CreateAttr("xmlns:"+prefix, space)
	}
	e.SortAttrs()
	return e
}

// ToDocument wraps ToElement result into document with XML declaration.
func ToDocument(root *Node, styled bool) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	doc.SetRoot(ToElement(root, styled))
	return doc
}

type serializer struct {
	styled   bool
	prefixes map[string]string // namespace -> prefix
}

func (s *serializer) prefix(space string) string {
	if p, ok := s.prefixes[space]; ok {
		return p
	}
	p := qname.Prefix(space)
	if p == "" {
		p = fmt.Sprintf("ns%d", len(s.prefixes)+1)
	}
	s.prefixes[space] = p
	return p
}

func (s *serializer) name(n qname.Name, isAttr bool) string {
	switch {
	case n.Space == qname.NsXML:
		return "xml:" + n.Local
	case n.Space == qname.NsNone && isAttr, n.Space == qname.NsSVG && !isAttr:
		return n.Local
	}
	return s.prefix(n.Space) + ":" + n.Local
}

func (s *serializer) element(n *Node) *etree.Element {
	e := etree.NewElement(s.name(n.name, false))

	var values *style.SpecifiedValues
	if s.styled {
		values = n.SpecifiedValues()
	}
	for _, a := range n.attrs {
		if values != nil {
			if a.Name == qname.Local("style") {
				continue
			}
			if _, ok := values.Get(a.Name); ok {
				continue
			}
		}
		e.CreateAttr(s.name(a.Name, true), a.Value)
	}
	if values != nil {
		for _, d := range values.Declarations() {
			if _, ok := d.Value.(style.Inherit); ok {
				continue
			}
			e.CreateAttr(s.name(d.Name, true), d.Value.String())
		}
	}

	for c := range n.Children() {
		switch {
		case c.IsChars():
			e.CreateText(c.text)
		case s.styled && c.typ == Style:
			continue
		default:
			e.AddChild(s.element(c))
		}
	}
	return e
}

package dom

import (
	"github.com/beevik/etree"

	"svgcore/qname"
)

// Build converts etree element and its subtree into a detached tree.
// Elements with no namespace are placed into SVG namespace, adjacent
// character data is merged into a single chars node, comments, processing
// instructions and directives are dropped.
func Build(root *etree.Element) *Node {
	n := NewElement(ElementName(root), attrs(root))
	for _, tok := range root.Child {
		switch t := tok.(type) {
		case *etree.Element:
			n.AppendChild(Build(t))
		case *etree.CharData:
			if last := n.lastChild; last != nil && last.IsChars() {
				last.AppendText(t.Data)
				continue
			}
			n.AppendChild(NewChars(t.Data))
		}
	}
	return n
}

// ElementName returns namespace qualified name Build assigns to e.
func ElementName(e *etree.Element) qname.Name {
	space := e.NamespaceURI()
	if space == "" {
		space = wellKnownPrefix(e.Space, qname.NsSVG)
	}
	return qname.New(space, e.Tag)
}

func attrs(e *etree.Element) []Attr {
	res := make([]Attr, 0, len(e.Attr))
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		space := a.NamespaceURI()
		if space == "" && a.Space != "" {
			space = wellKnownPrefix(a.Space, "")
		}
		res = append(res, Attr{Name: qname.New(space, a.Key), Value: a.Value})
	}
	return res
}

// wellKnownPrefix maps undeclared conventional prefixes to their namespaces,
// sloppy documents often use xlink: without declaring it.
func wellKnownPrefix(prefix, dflt string) string {
	switch prefix {
	case "":
		return dflt
	case "xml":
		return qname.NsXML
	case "xlink":
		return qname.NsXLink
	case "svg":
		return qname.NsSVG
	default:
		return dflt
	}
}

// Package dom is the document tree the cascade and reference registry work
// on: element and character nodes with parent/sibling links and per-element
// specified style values.
package dom

import (
	"iter"
	"strings"

	"svgcore/qname"
	"svgcore/style"
)

// NodeType classifies tree nodes.
type NodeType int

const (
	Chars NodeType = iota
	Element
	Link  // <a> element
	Style // <style> element
)

func (t NodeType) String() string {
	switch t {
	case Chars:
		return "chars"
	case Element:
		return "element"
	case Link:
		return "link"
	case Style:
		return "style"
	default:
		return "unknown"
	}
}

// Attr is a single element attribute.
type Attr struct {
	Name  qname.Name
	Value string
}

// Node is either an element (of any element type) or a run of character data.
type Node struct {
	typ   NodeType
	name  qname.Name
	attrs []Attr
	text  string

	parent      *Node
	firstChild  *Node
	lastChild   *Node
	prevSibling *Node
	nextSibling *Node

	values style.SpecifiedValues
}

// NewElement creates detached element node. Element type is derived from name.
func NewElement(name qname.Name, attrs []Attr) *Node {
	typ := Element
	if name.Space == qname.NsSVG {
		switch name.Local {
		case "a":
			typ = Link
		case "style":
			typ = Style
		}
	}
	return &Node{typ: typ, name: name, attrs: attrs}
}

// NewChars creates detached character data node.
func NewChars(text string) *Node {
	return &Node{typ: Chars, text: text}
}

func (n *Node) Type() NodeType { return n.typ }

// IsElement reports whether node is an element of any type.
func (n *Node) IsElement() bool { return n.typ != Chars }

func (n *Node) IsChars() bool { return n.typ == Chars }

// Name returns element name, zero for character nodes.
func (n *Node) Name() qname.Name { return n.name }

func (n *Node) Attrs() []Attr { return n.attrs }

// Attr returns value of the attribute.
func (n *Node) Attr(name qname.Name) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces value of existing attribute or adds a new one.
func (n *Node) SetAttr(name qname.Name, value string) {
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
}

// ID returns value of the "id" attribute, empty if there is none.
func (n *Node) ID() string {
	id, _ := n.Attr(qname.Local("id"))
	return id
}

// Class returns value of the "class" attribute, empty if there is none.
func (n *Node) Class() string {
	class, _ := n.Attr(qname.Local("class"))
	return class
}

// HasClass reports whether whitespace separated class list contains class.
func (n *Node) HasClass(class string) bool {
	for c := range strings.FieldsSeq(n.Class()) {
		if c == class {
			return true
		}
	}
	return false
}

// Text returns character data of a chars node.
func (n *Node) Text() string { return n.text }

// AppendText adds text to character node.
func (n *Node) AppendText(s string) { n.text += s }

// TextContent returns concatenated character data of all descendants.
func (n *Node) TextContent() string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.IsChars() {
			sb.WriteString(d.text)
		}
	}
	return sb.String()
}

func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) FirstChild() *Node  { return n.firstChild }
func (n *Node) LastChild() *Node   { return n.lastChild }
func (n *Node) PrevSibling() *Node { return n.prevSibling }
func (n *Node) NextSibling() *Node { return n.nextSibling }
func (n *Node) HasChildren() bool  { return n.firstChild != nil }

// AppendChild adds child as the last child of n. Child must be detached.
func (n *Node) AppendChild(child *Node) {
	if child.parent != nil {
		panic("dom: AppendChild of attached node")
	}
	child.parent = n
	child.prevSibling = n.lastChild
	if n.lastChild != nil {
		n.lastChild.nextSibling = child
	} else {
		n.firstChild = child
	}
	n.lastChild = child
}

// Children iterates over direct children.
func (n *Node) Children() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if !yield(c) {
				return
			}
		}
	}
}

// Descendants iterates over n and all its descendants in document order.
func (n *Node) Descendants() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		n.walk(yield)
	}
}

func (n *Node) walk(yield func(*Node) bool) bool {
	if !yield(n) {
		return false
	}
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if !c.walk(yield) {
			return false
		}
	}
	return true
}

// Elements iterates over n and its element descendants in document order.
func (n *Node) Elements() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for d := range n.Descendants() {
			if d.IsElement() && !yield(d) {
				return
			}
		}
	}
}

// ApplyStyleDeclaration merges declaration into element's specified values.
func (n *Node) ApplyStyleDeclaration(d style.Declaration) {
	n.values.Apply(d)
}

// SpecifiedValues returns element's specified style values.
func (n *Node) SpecifiedValues() *style.SpecifiedValues {
	return &n.values
}

func (n *Node) String() string {
	if n.IsChars() {
		return "#text"
	}
	if id := n.ID(); id != "" {
		return n.name.Local + "#" + id
	}
	return n.name.Local
}

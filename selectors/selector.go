// Package selectors implements CSS selector parsing and matching independent
// of any particular tree: documents plug in by implementing Element.
package selectors

import (
	"strings"
)

// Element is the capability set matching needs from a tree node. Methods
// returning Element must return untyped nil when there is no such element.
type Element interface {
	// Opaque returns identity of the underlying node, equal for adapters
	// wrapping the same node.
	Opaque() any

	Parent() Element
	PrevSiblingElement() Element
	NextSiblingElement() Element

	HasLocalName(name string) bool
	HasNamespace(ns string) bool
	IsSameType(other Element) bool
	HasID(id string) bool
	HasClass(name string) bool

	IsRoot() bool
	IsEmpty() bool
	IsLink() bool

	AttrMatches(sel *AttrSelector) bool
	MatchNonTSPseudoClass(name string) bool
	IsPseudoElement() bool
	IsHTMLSlotElement() bool
	IsPart(name string) bool
	ContainingShadowHost() Element
	ParentIsShadowRoot() bool
}

// Same reports whether a and b wrap the same node.
func Same(a, b Element) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Opaque() == b.Opaque()
}

// Combinator joins compound selectors.
type Combinator int

const (
	Descendant        Combinator = iota // whitespace
	Child                               // >
	NextSibling                         // +
	SubsequentSibling                   // ~
)

func (c Combinator) String() string {
	switch c {
	case Child:
		return " > "
	case NextSibling:
		return " + "
	case SubsequentSibling:
		return " ~ "
	default:
		return " "
	}
}

// List is a comma separated group of selectors.
type List []*Selector

func (l List) String() string {
	parts := make([]string, len(l))
	for i, s := range l {
		parts[i] = s.String()
	}
	return strings.Join(parts, ", ")
}

// MatchesList reports whether any selector in the list matches element.
func MatchesList(l List, e Element) bool {
	for _, s := range l {
		if s.Matches(e) {
			return true
		}
	}
	return false
}

// Selector is a complex selector: compounds joined by combinators, leftmost
// first.
type Selector struct {
	compounds   []compound
	combinators []Combinator // combinators[i] sits between compounds[i] and compounds[i+1]
}

func (s *Selector) String() string {
	var sb strings.Builder
	for i, c := range s.compounds {
		if i > 0 {
			sb.WriteString(s.combinators[i-1].String())
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// Matches reports whether selector matches element. Matching goes right to
// left, backtracking over ancestors and siblings for the loose combinators.
func (s *Selector) Matches(e Element) bool {
	return s.matchFrom(len(s.compounds)-1, e)
}

func (s *Selector) matchFrom(i int, e Element) bool {
	if !s.compounds[i].matches(e) {
		return false
	}
	if i == 0 {
		return true
	}
	switch s.combinators[i-1] {
	case Child:
		p := e.Parent()
		return p != nil && s.matchFrom(i-1, p)
	case Descendant:
		for p := e.Parent(); p != nil; p = p.Parent() {
			if s.matchFrom(i-1, p) {
				return true
			}
		}
	case NextSibling:
		p := e.PrevSiblingElement()
		return p != nil && s.matchFrom(i-1, p)
	case SubsequentSibling:
		for p := e.PrevSiblingElement(); p != nil; p = p.PrevSiblingElement() {
			if s.matchFrom(i-1, p) {
				return true
			}
		}
	}
	return false
}

type compound []simple

func (c compound) matches(e Element) bool {
	for _, s := range c {
		if !s.matches(e) {
			return false
		}
	}
	return true
}

func (c compound) String() string {
	var sb strings.Builder
	for _, s := range c {
		sb.WriteString(s.String())
	}
	return sb.String()
}

type simple interface {
	matches(e Element) bool
	String() string
}

// typeSelector matches element name. nil space matches any namespace, "*"
// local name matches any element.
type typeSelector struct {
	space *string
	local string
	text  string
}

func (t typeSelector) matches(e Element) bool {
	if t.space != nil && !e.HasNamespace(*t.space) {
		return false
	}
	return t.local == "*" || e.HasLocalName(t.local)
}

func (t typeSelector) String() string { return t.text }

type idSelector string

func (s idSelector) matches(e Element) bool { return e.HasID(string(s)) }
func (s idSelector) String() string         { return "#" + string(s) }

type classSelector string

func (s classSelector) matches(e Element) bool { return e.HasClass(string(s)) }
func (s classSelector) String() string         { return "." + string(s) }

// AttrOp is attribute selector operator.
type AttrOp int

const (
	AttrExists    AttrOp = iota // [a]
	AttrEquals                  // [a=v]
	AttrIncludes                // [a~=v]
	AttrDashMatch               // [a|=v]
	AttrPrefix                  // [a^=v]
	AttrSuffix                  // [a$=v]
	AttrSubstring               // [a*=v]
)

var attrOpText = [...]string{"", "=", "~=", "|=", "^=", "$=", "*="}

// AttrSelector is a parsed attribute selector. Trees decide how (and if) to
// match it through Element.AttrMatches.
type AttrSelector struct {
	Name            string
	Op              AttrOp
	Value           string
	CaseInsensitive bool
}

// MatchValue reports whether attribute value satisfies the selector, for
// Element implementations that support attribute matching.
func (a *AttrSelector) MatchValue(actual string) bool {
	want := a.Value
	if a.CaseInsensitive {
		actual, want = strings.ToLower(actual), strings.ToLower(want)
	}
	switch a.Op {
	case AttrExists:
		return true
	case AttrEquals:
		return actual == want
	case AttrIncludes:
		if want == "" || strings.ContainsAny(want, " \t\n\r\f") {
			return false
		}
		for f := range strings.FieldsSeq(actual) {
			if f == want {
				return true
			}
		}
		return false
	case AttrDashMatch:
		return actual == want || strings.HasPrefix(actual, want+"-")
	case AttrPrefix:
		return want != "" && strings.HasPrefix(actual, want)
	case AttrSuffix:
		return want != "" && strings.HasSuffix(actual, want)
	case AttrSubstring:
		return want != "" && strings.Contains(actual, want)
	}
	return false
}

func (a *AttrSelector) matches(e Element) bool { return e.AttrMatches(a) }

func (a *AttrSelector) String() string {
	if a.Op == AttrExists {
		return "[" + a.Name + "]"
	}
	s := "[" + a.Name + attrOpText[a.Op] + `"` + a.Value + `"`
	if a.CaseInsensitive {
		s += " i"
	}
	return s + "]"
}

// pseudoClass covers both structural pseudo-classes evaluated here and
// everything else delegated to the tree.
type pseudoClass struct {
	name string
	args string // functional pseudo-classes only
}

func (p pseudoClass) matches(e Element) bool {
	switch p.name {
	case "root":
		return e.IsRoot()
	case "empty":
		return e.IsEmpty()
	case "first-child":
		return e.PrevSiblingElement() == nil
	case "last-child":
		return e.NextSiblingElement() == nil
	case "only-child":
		return e.PrevSiblingElement() == nil && e.NextSiblingElement() == nil
	case "first-of-type":
		return !hasSameType(e, Element.PrevSiblingElement)
	case "last-of-type":
		return !hasSameType(e, Element.NextSiblingElement)
	case "only-of-type":
		return !hasSameType(e, Element.PrevSiblingElement) && !hasSameType(e, Element.NextSiblingElement)
	case "link", "any-link":
		return e.IsLink()
	case "host":
		return e.ContainingShadowHost() != nil && e.ParentIsShadowRoot()
	}
	return e.MatchNonTSPseudoClass(p.name)
}

func hasSameType(e Element, next func(Element) Element) bool {
	for s := next(e); s != nil; s = next(s) {
		if s.IsSameType(e) {
			return true
		}
	}
	return false
}

func (p pseudoClass) String() string {
	if p.args != "" {
		return ":" + p.name + "(" + p.args + ")"
	}
	return ":" + p.name
}

type pseudoElement struct {
	name string
	args string
}

func (p pseudoElement) matches(e Element) bool {
	switch p.name {
	case "part":
		return e.IsPart(p.args)
	case "slotted":
		return e.IsHTMLSlotElement()
	}
	return e.IsPseudoElement()
}

func (p pseudoElement) String() string {
	if p.args != "" {
		return "::" + p.name + "(" + p.args + ")"
	}
	return "::" + p.name
}

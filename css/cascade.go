package css

import (
	"svgcore/dom"
	"svgcore/selectors"
)

// Matches reports whether rule selectors match element node n.
func (r *QualifiedRule) Matches(n *dom.Node) bool {
	if n == nil || !n.IsElement() {
		return false
	}
	return selectors.MatchesList(r.Selectors, NewElement(n))
}

// ApplyMatchesToNode applies declarations of every rule matching n, in rule
// order.
func (s *Stylesheet) ApplyMatchesToNode(n *dom.Node) {
	for _, r := range s.rules {
		if r.Matches(n) {
			ApplyDeclarations(n, &r.Declarations)
		}
	}
}

// Apply cascades sheet over every element of the tree rooted at root.
func Apply(sheet *Stylesheet, root *dom.Node) {
	if sheet == nil || root == nil {
		return
	}
	for n := range root.Elements() {
		sheet.ApplyMatchesToNode(n)
	}
}

// ApplyDeclarations merges declarations into node specified values.
func ApplyDeclarations(n *dom.Node, decls *DeclarationList) {
	for d := range decls.All() {
		n.ApplyStyleDeclaration(d)
	}
}

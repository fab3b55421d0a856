package style

import (
	"slices"
	"strings"

	"svgcore/qname"
)

type specified struct {
	value     Value
	important bool
}

// SpecifiedValues holds the winning declaration for every property set on a
// node. Zero value is ready to use.
type SpecifiedValues struct {
	values map[qname.Name]specified
}

// Apply merges declaration: later declarations replace earlier ones unless
// the earlier one is important and the new one is not.
func (s *SpecifiedValues) Apply(d Declaration) {
	if s.values == nil {
		s.values = make(map[qname.Name]specified)
	}
	if cur, ok := s.values[d.Name]; ok && cur.important && !d.Important {
		return
	}
	s.values[d.Name] = specified{value: d.Value, important: d.Important}
}

// Get returns specified value of a property.
func (s *SpecifiedValues) Get(name qname.Name) (Value, bool) {
	v, ok := s.values[name]
	return v.value, ok
}

func (s *SpecifiedValues) IsImportant(name qname.Name) bool {
	return s.values[name].important
}

// Names returns names of all specified properties in lexical order.
func (s *SpecifiedValues) Names() []qname.Name {
	names := make([]qname.Name, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b qname.Name) int {
		return strings.Compare(a.String(), b.String())
	})
	return names
}

func (s *SpecifiedValues) Len() int {
	return len(s.values)
}

// Declarations returns specified values as declarations ordered by name.
func (s *SpecifiedValues) Declarations() []Declaration {
	decls := make([]Declaration, 0, len(s.values))
	for _, name := range s.Names() {
		v := s.values[name]
		decls = append(decls, Declaration{Name: name, Value: v.value, Important: v.important})
	}
	return decls
}

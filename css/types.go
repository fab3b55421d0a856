package css

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"svgcore/qname"
	"svgcore/selectors"
	"svgcore/style"
)

var (
	// ErrBadURL is returned when stylesheet URL is rejected by the security
	// boundary.
	ErrBadURL = errors.New("stylesheet URL is not allowed")
	// ErrBadCSS is returned when fetched data is not a CSS stylesheet or is
	// not valid UTF-8.
	ErrBadCSS = errors.New("not a valid CSS stylesheet")
)

// DeclarationList holds declarations of a single block. Last declaration of
// a property wins, iteration follows order in which properties first
// appeared.
type DeclarationList struct {
	decls []style.Declaration
	index map[qname.Name]int
}

func (l *DeclarationList) add(d style.Declaration) {
	if l.index == nil {
		l.index = make(map[qname.Name]int)
	}
	if i, ok := l.index[d.Name]; ok {
		l.decls[i] = d
		return
	}
	l.index[d.Name] = len(l.decls)
	l.decls = append(l.decls, d)
}

// Get returns declaration of the property.
func (l *DeclarationList) Get(name qname.Name) (style.Declaration, bool) {
	i, ok := l.index[name]
	if !ok {
		return style.Declaration{}, false
	}
	return l.decls[i], true
}

func (l *DeclarationList) Len() int {
	return len(l.decls)
}

// All iterates over declarations.
func (l *DeclarationList) All() iter.Seq[style.Declaration] {
	return func(yield func(style.Declaration) bool) {
		for _, d := range l.decls {
			if !yield(d) {
				return
			}
		}
	}
}

// QualifiedRule is a selector list with its declaration block.
type QualifiedRule struct {
	Selectors    selectors.List
	Declarations DeclarationList
	// Source is canonical URL of the stylesheet the rule came from, empty
	// for inline text.
	Source string
}

// Stylesheet is ordered list of rules with imports already expanded in place.
type Stylesheet struct {
	rules []*QualifiedRule
}

// Rules returns rules in cascade order.
func (s *Stylesheet) Rules() []*QualifiedRule {
	return s.rules
}

func (s *Stylesheet) Len() int {
	return len(s.rules)
}

// Append adds all rules of other after rules of s.
func (s *Stylesheet) Append(other *Stylesheet) {
	s.rules = append(s.rules, other.rules...)
}

// WriteTo writes the stylesheet to w in cascade order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	source := ""
	for i, rule := range s.rules {
		if rule.Source != source {
			source = rule.Source
			if source != "" {
				n, err := fmt.Fprintf(w, "/* %s */\n", source)
				total += int64(n)
				if err != nil {
					return total, err
				}
			}
		}
		n, err := writeRule(w, rule)
		total += int64(n)
		if err != nil {
			return total, err
		}
		if i < len(s.rules)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the CSS text of the stylesheet.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

// writeRule writes a single CSS rule to w.
func writeRule(w io.Writer, rule *QualifiedRule) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s {\n", rule.Selectors)
	total += n
	if err != nil {
		return total, err
	}
	for d := range rule.Declarations.All() {
		n, err = fmt.Fprintf(w, "  %s;\n", d)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}

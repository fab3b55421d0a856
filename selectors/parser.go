package selectors

import (
	"errors"
	"fmt"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

var ErrInvalidSelector = errors.New("invalid selector")

// legacy pseudo-elements which may be written with a single colon
var legacyPseudoElements = map[string]bool{
	"before": true, "after": true, "first-line": true, "first-letter": true,
}

type token struct {
	tt   css.TokenType
	data string
}

type parser struct {
	toks      []token
	pos       int
	defaultNS string
}

// Parse parses comma separated selector list. Unprefixed type and universal
// selectors are restricted to defaultNS (any namespace when it is empty).
// Namespace prefixes other than "*" and empty are not supported.
func Parse(text string, defaultNS string) (List, error) {
	p := &parser{toks: lex(text), defaultNS: defaultNS}

	var list List
	for {
		p.skipWS()
		sel, err := p.selector()
		if err != nil {
			return nil, err
		}
		list = append(list, sel)
		p.skipWS()
		if p.done() {
			return list, nil
		}
		if p.peek().tt != css.CommaToken {
			return nil, p.errorf("unexpected %q", p.peek().data)
		}
		p.pos++
	}
}

func lex(text string) []token {
	l := css.NewLexer(parse.NewInputString(text))
	var toks []token
	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			return toks
		case css.CommentToken:
			continue
		}
		toks = append(toks, token{tt: tt, data: string(data)})
	}
}

func (p *parser) done() bool { return p.pos >= len(p.toks) }

func (p *parser) peek() token {
	if p.done() {
		return token{tt: css.ErrorToken}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) isDelim(c string) bool {
	t := p.peek()
	return t.tt == css.DelimToken && t.data == c
}

func (p *parser) skipWS() bool {
	skipped := false
	for !p.done() && p.peek().tt == css.WhitespaceToken {
		p.pos++
		skipped = true
	}
	return skipped
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelector, fmt.Sprintf(format, args...))
}

func (p *parser) selector() (*Selector, error) {
	sel := &Selector{}
	for {
		c, err := p.compound()
		if err != nil {
			return nil, err
		}
		sel.compounds = append(sel.compounds, c)

		ws := p.skipWS()
		comb := Descendant
		switch {
		case p.isDelim(">"):
			comb = Child
		case p.isDelim("+"):
			comb = NextSibling
		case p.isDelim("~"):
			comb = SubsequentSibling
		case p.done() || p.peek().tt == css.CommaToken:
			return sel, nil
		case !ws:
			return nil, p.errorf("unexpected %q", p.peek().data)
		}
		if comb != Descendant {
			p.pos++
			p.skipWS()
		}
		sel.combinators = append(sel.combinators, comb)
	}
}

func (p *parser) compound() (compound, error) {
	var c compound

	if t, ok, err := p.typeSelector(); err != nil {
		return nil, err
	} else if ok {
		c = append(c, t)
	}

	for !p.done() {
		t := p.peek()
		switch {
		case t.tt == css.HashToken:
			p.pos++
			id := t.data[1:]
			if id == "" || (id[0] >= '0' && id[0] <= '9') {
				return nil, p.errorf("bad id selector %q", t.data)
			}
			c = append(c, idSelector(id))
		case p.isDelim("."):
			p.pos++
			name := p.next()
			if name.tt != css.IdentToken {
				return nil, p.errorf("expected class name after '.'")
			}
			c = append(c, classSelector(name.data))
		case t.tt == css.LeftBracketToken:
			p.pos++
			a, err := p.attrSelector()
			if err != nil {
				return nil, err
			}
			c = append(c, a)
		case t.tt == css.ColonToken:
			p.pos++
			s, err := p.pseudo()
			if err != nil {
				return nil, err
			}
			c = append(c, s)
		default:
			if len(c) == 0 {
				return nil, p.errorf("expected selector, got %q", t.data)
			}
			return c, nil
		}
	}
	if len(c) == 0 {
		return nil, p.errorf("empty selector")
	}
	return c, nil
}

// typeSelector parses [ns|](name|*).
func (p *parser) typeSelector() (simple, bool, error) {
	start := p.pos
	var (
		space    *string
		explicit bool
	)

	switch {
	case p.isDelim("|"):
		p.pos++
		none := ""
		space, explicit = &none, true
	case p.isDelim("*") && p.lookDelim(1, "|"):
		p.pos += 2
		explicit = true
	case p.peek().tt == css.IdentToken && p.lookDelim(1, "|"):
		return nil, false, p.errorf("namespace prefix %q is not supported", p.peek().data)
	}

	name := p.peek()
	var local string
	switch {
	case name.tt == css.IdentToken:
		local = name.data
	case name.tt == css.DelimToken && name.data == "*":
		local = "*"
	default:
		if explicit {
			return nil, false, p.errorf("expected element name after namespace")
		}
		return nil, false, nil
	}
	p.pos++

	if !explicit && p.defaultNS != "" {
		ns := p.defaultNS
		space = &ns
	}

	var text strings.Builder
	for _, t := range p.toks[start:p.pos] {
		text.WriteString(t.data)
	}
	return typeSelector{space: space, local: local, text: text.String()}, true, nil
}

func (p *parser) lookDelim(off int, c string) bool {
	i := p.pos + off
	return i < len(p.toks) && p.toks[i].tt == css.DelimToken && p.toks[i].data == c
}

func (p *parser) attrSelector() (*AttrSelector, error) {
	p.skipWS()
	name := p.next()
	if name.tt != css.IdentToken {
		return nil, p.errorf("expected attribute name")
	}
	a := &AttrSelector{Name: name.data}
	p.skipWS()

	op := p.next()
	switch {
	case op.tt == css.RightBracketToken:
		return a, nil
	case op.tt == css.DelimToken && op.data == "=":
		a.Op = AttrEquals
	case op.tt == css.IncludeMatchToken:
		a.Op = AttrIncludes
	case op.tt == css.DashMatchToken:
		a.Op = AttrDashMatch
	case op.tt == css.PrefixMatchToken:
		a.Op = AttrPrefix
	case op.tt == css.SuffixMatchToken:
		a.Op = AttrSuffix
	case op.tt == css.SubstringMatchToken:
		a.Op = AttrSubstring
	default:
		return nil, p.errorf("unexpected %q in attribute selector", op.data)
	}

	p.skipWS()
	v := p.next()
	switch v.tt {
	case css.IdentToken:
		a.Value = v.data
	case css.StringToken:
		a.Value = v.data[1 : len(v.data)-1]
	default:
		return nil, p.errorf("expected attribute value")
	}
	p.skipWS()
	if t := p.peek(); t.tt == css.IdentToken && (strings.EqualFold(t.data, "i") || strings.EqualFold(t.data, "s")) {
		a.CaseInsensitive = strings.EqualFold(t.data, "i")
		p.pos++
		p.skipWS()
	}
	if p.next().tt != css.RightBracketToken {
		return nil, p.errorf("unterminated attribute selector")
	}
	return a, nil
}

// pseudo parses what follows the first colon.
func (p *parser) pseudo() (simple, error) {
	element := false
	if p.peek().tt == css.ColonToken {
		p.pos++
		element = true
	}

	t := p.next()
	var name, args string
	switch t.tt {
	case css.IdentToken:
		name = strings.ToLower(t.data)
	case css.FunctionToken:
		name = strings.ToLower(strings.TrimSuffix(t.data, "("))
		a, err := p.functionArgs()
		if err != nil {
			return nil, err
		}
		args = a
	default:
		return nil, p.errorf("expected pseudo-class name")
	}

	if element || legacyPseudoElements[name] {
		return pseudoElement{name: name, args: args}, nil
	}
	return pseudoClass{name: name, args: args}, nil
}

// functionArgs consumes tokens up to the matching right parenthesis and
// returns them as text.
func (p *parser) functionArgs() (string, error) {
	var sb strings.Builder
	depth := 1
	for !p.done() {
		t := p.next()
		switch t.tt {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return strings.TrimSpace(sb.String()), nil
			}
		}
		sb.WriteString(t.data)
	}
	return "", p.errorf("unterminated function")
}

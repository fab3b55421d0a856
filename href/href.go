// Package href classifies element references found in `href`, `xlink:href`
// and `url(...)` values.
//
// A reference is either a plain URI naming a resource ("foo.png"), a fragment
// naming an element of the current document ("#foo"), or both ("foo.svg#bar").
package href

import (
	"errors"
	"strings"

	"svgcore/qname"
)

var (
	// ErrParse is returned when href is empty or has an empty component.
	ErrParse = errors.New("invalid href")
	// ErrFragmentForbidden is returned when fragment identifier is not allowed,
	// for example <image> may only reference whole resources.
	ErrFragmentForbidden = errors.New("fragment identifier not allowed")
	// ErrFragmentRequired is returned when fragment identifier is mandatory,
	// for example <use xlink:href="foo.svg#bar">.
	ErrFragmentRequired = errors.New("fragment identifier required")
)

// Kind is the shape of a reference.
type Kind int

const (
	PlainURI          Kind = iota // "uri"
	FragmentID                    // "#fragment"
	URIWithFragmentID             // "uri#fragment"
)

func (k Kind) String() string {
	switch k {
	case PlainURI:
		return "PlainURI"
	case FragmentID:
		return "FragmentID"
	case URIWithFragmentID:
		return "URIWithFragmentID"
	default:
		return "Unknown"
	}
}

// Href is a classified reference. Use Parse to construct one, zero value is
// not a valid reference.
type Href struct {
	Kind     Kind
	URI      string
	Fragment string
}

// Parse splits href on the last '#' and classifies it.
func Parse(href string) (Href, error) {
	p := strings.LastIndexByte(href, '#')
	switch {
	case p < 0:
		if len(href) == 0 {
			return Href{}, ErrParse
		}
		return Href{Kind: PlainURI, URI: href}, nil
	case p == 0:
		if len(href) == 1 {
			return Href{}, ErrParse
		}
		return Href{Kind: FragmentID, Fragment: href[1:]}, nil
	default:
		uri, fragment := href[:p], href[p+1:]
		if len(fragment) == 0 {
			return Href{}, ErrParse
		}
		return Href{Kind: URIWithFragmentID, URI: uri, Fragment: fragment}, nil
	}
}

// WithoutFragment parses href which must not have a fragment identifier.
func WithoutFragment(href string) (Href, error) {
	r, err := Parse(href)
	if err != nil {
		return Href{}, err
	}
	if r.Kind != PlainURI {
		return Href{}, ErrFragmentForbidden
	}
	return r, nil
}

// WithFragment parses href which must have a fragment identifier.
func WithFragment(href string) (Href, error) {
	r, err := Parse(href)
	if err != nil {
		return Href{}, err
	}
	if r.Kind == PlainURI {
		return Href{}, ErrFragmentRequired
	}
	return r, nil
}

// String returns textual form of the reference, Parse(h.String()) == h.
func (h Href) String() string {
	switch h.Kind {
	case FragmentID:
		return "#" + h.Fragment
	case URIWithFragmentID:
		return h.URI + "#" + h.Fragment
	default:
		return h.URI
	}
}

// IsHref reports whether attribute name is either `xlink:href` or `href`.
func IsHref(name qname.Name) bool {
	return name.Local == "href" && (name.Space == qname.NsNone || name.Space == qname.NsXLink)
}

// Set stores value into dst honouring SVG2 rules: plain `href` always wins,
// `xlink:href` is only used when nothing has been set yet.
func Set(name qname.Name, dst *string, value string) {
	if len(*dst) == 0 || name.Space != qname.NsXLink {
		*dst = value
	}
}

// Package qname defines qualified XML names used for elements, attributes and
// style properties.
package qname

// Well known namespaces.
const (
	NsNone  = ""
	NsSVG   = "http://www.w3.org/2000/svg"
	NsXLink = "http://www.w3.org/1999/xlink"
	NsXML   = "http://www.w3.org/XML/1998/namespace"
)

// Name is an expanded name: namespace URI plus local name.
type Name struct {
	Space string
	Local string
}

// New returns name in the given namespace.
func New(space, local string) Name {
	return Name{Space: space, Local: local}
}

// SVG returns name in SVG namespace.
func SVG(local string) Name {
	return Name{Space: NsSVG, Local: local}
}

// Local returns name with no namespace, as used by most attributes.
func Local(local string) Name {
	return Name{Local: local}
}

// IsZero reports whether name is empty.
func (n Name) IsZero() bool {
	return n.Space == "" && n.Local == ""
}

// String returns name in Clark notation: {space}local, or just local name when
// there is no namespace.
func (n Name) String() string {
	if n.Space == "" {
		return n.Local
	}
	return "{" + n.Space + "}" + n.Local
}

// Prefix returns conventional prefix for well known namespaces.
func Prefix(space string) string {
	switch space {
	case NsXLink:
		return "xlink"
	case NsXML:
		return "xml"
	default:
		return ""
	}
}

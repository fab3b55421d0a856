package defs_test

import (
	"errors"
	"net/url"
	"slices"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"svgcore/allowed"
	"svgcore/defs"
	"svgcore/dom"
	"svgcore/href"
	"svgcore/qname"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

// library is a set of fake documents keyed by canonical URL.
type library struct {
	t      *testing.T
	policy *allowed.Policy
	docs   map[string]*fakeDoc
	loads  []string
}

type fakeDoc struct {
	lib  *library
	base *url.URL
	defs *defs.Defs
	// lookup performed while document is being loaded
	onLoad string
}

func (d *fakeDoc) BaseURL() *url.URL          { return d.base }
func (d *fakeDoc) Resolver() allowed.Resolver { return d.lib.policy }
func (d *fakeDoc) Defs() *defs.Defs           { return d.defs }

var errNotFound = errors.New("not found")

func (d *fakeDoc) LoadExtern(u *allowed.URL) (defs.Handle, error) {
	key := u.String()
	d.lib.loads = append(d.lib.loads, key)
	ext, ok := d.lib.docs[key]
	if !ok {
		return nil, errNotFound
	}
	if ext.onLoad != "" {
		// re-entrant lookup, must not recurse
		if n := ext.defs.LookupString(ext, ext.onLoad); n != nil {
			d.lib.t.Errorf("re-entrant lookup of %q returned %v", ext.onLoad, n)
		}
	}
	return ext, nil
}

func newLibrary(t *testing.T) *library {
	return &library{
		t:      t,
		policy: &allowed.Policy{Schemes: []string{"https"}},
		docs:   make(map[string]*fakeDoc),
	}
}

func (l *library) add(t *testing.T, rawURL string, ids ...string) *fakeDoc {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	d := &fakeDoc{lib: l, base: u, defs: defs.New(testLogger(t))}
	for _, id := range ids {
		d.defs.Insert(id, dom.NewElement(qname.SVG("g"), []dom.Attr{{Name: qname.Local("id"), Value: id}}))
	}
	l.docs[rawURL] = d
	return d
}

func TestDefs_LocalLookup(t *testing.T) {
	lib := newLibrary(t)
	doc := lib.add(t, "https://example.com/img/doc.svg", "a", "b")

	dup := dom.NewElement(qname.SVG("rect"), nil)
	doc.defs.Insert("a", dup)

	tests := []struct {
		href string
		want string
	}{
		{"#a", "g#a"},
		{"#b", "g#b"},
		{"#missing", ""},
		{"other.svg", ""},
		{"#", ""},
		{"", ""},
	}
	for _, tt := range tests {
		n := doc.defs.LookupString(doc, tt.href)
		got := ""
		if n != nil {
			got = n.String()
		}
		if got != tt.want {
			t.Errorf("LookupString(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
	if len(lib.loads) != 0 {
		t.Errorf("loads = %v, want none", lib.loads)
	}
}

func TestDefs_ExternLookup(t *testing.T) {
	lib := newLibrary(t)
	doc := lib.add(t, "https://example.com/img/doc.svg", "local")
	lib.add(t, "https://example.com/img/sub/shapes.svg", "star", "moon")

	if n := doc.defs.Lookup(doc, href.Href{Kind: href.URIWithFragmentID, URI: "sub/shapes.svg", Fragment: "star"}); n == nil || n.ID() != "star" {
		t.Errorf("Lookup(sub/shapes.svg#star) = %v", n)
	}
	// same document through a different spelling is served from cache
	if n := doc.defs.LookupString(doc, "./sub/../sub/shapes.svg#moon"); n == nil || n.ID() != "moon" {
		t.Errorf("LookupString(moon) = %v", n)
	}
	if n := doc.defs.LookupString(doc, "sub/shapes.svg#local"); n != nil {
		t.Errorf("fragment resolved in wrong document: %v", n)
	}
	if want := []string{"https://example.com/img/sub/shapes.svg"}; !slices.Equal(lib.loads, want) {
		t.Errorf("loads = %v, want %v", lib.loads, want)
	}
}

func TestDefs_ExternFailures(t *testing.T) {
	lib := newLibrary(t)
	doc := lib.add(t, "https://example.com/img/doc.svg")

	tests := []string{
		"../secret.svg#x",                // outside base directory
		"http://example.com/img/a.svg#x", // different scheme
		"https://other.com/img/a.svg#x",  // different host
		"missing.svg#x",                  // load failure
		"missing.svg#y",                  // failure is remembered
	}
	for _, s := range tests {
		if n := doc.defs.LookupString(doc, s); n != nil {
			t.Errorf("LookupString(%q) = %v, want nil", s, n)
		}
	}
	if want := []string{"https://example.com/img/missing.svg"}; !slices.Equal(lib.loads, want) {
		t.Errorf("loads = %v, want %v", lib.loads, want)
	}
}

func TestDefs_ReentrantLoad(t *testing.T) {
	lib := newLibrary(t)
	self := lib.add(t, "https://example.com/self.svg", "z")
	self.onLoad = "self.svg#z"

	// inner lookup made while loading is checked in LoadExtern
	if n := self.defs.LookupString(self, "self.svg#z"); n == nil {
		t.Error("LookupString(self.svg#z) = nil after load")
	}
	if n := self.defs.LookupString(self, "self.svg#z"); n == nil {
		t.Error("cached LookupString(self.svg#z) = nil")
	}
	if want := []string{"https://example.com/self.svg"}; !slices.Equal(lib.loads, want) {
		t.Errorf("loads = %v, want %v", lib.loads, want)
	}
}

func TestDefs_IDs(t *testing.T) {
	d := defs.New(nil)
	for _, id := range []string{"item10", "item2", "b", "item1", "a"} {
		d.Insert(id, dom.NewElement(qname.SVG("g"), nil))
	}
	if d.Len() != 5 {
		t.Errorf("Len() = %d, want 5", d.Len())
	}
	want := []string{"a", "b", "item1", "item2", "item10"}
	if got := d.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

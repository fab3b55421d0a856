package allowed

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"testing"
)

// fixture lays out:
//
//	root/doc.svg
//	root/style.css
//	root/sub/child.css
//	outside/secret.css
func fixture(t *testing.T) (root, outside string, base *url.URL) {
	t.Helper()

	root = t.TempDir()
	outside = t.TempDir()
	for _, name := range []string{
		filepath.Join(root, "doc.svg"),
		filepath.Join(root, "style.css"),
		filepath.Join(root, "sub", "child.css"),
		filepath.Join(outside, "secret.css"),
	} {
		if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	base, err := FileURL(filepath.Join(root, "doc.svg"))
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	return root, outside, base
}

func TestResolveFile(t *testing.T) {
	root, _, base := fixture(t)
	p := DefaultPolicy()

	for _, candidate := range []string{"style.css", "sub/child.css", "./sub/../style.css", "style.css#frag"} {
		aurl, err := p.Resolve(candidate, base)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", candidate, err)
		}
		if aurl.Scheme() != "file" {
			t.Errorf("Resolve(%q) scheme = %q", candidate, aurl.Scheme())
		}
		if aurl.URL().Fragment != "" {
			t.Errorf("Resolve(%q) kept fragment", candidate)
		}
		want, _ := filepath.EvalSymlinks(filepath.Join(root, filepath.FromSlash(filepath.ToSlash(candidate))))
		if candidate == "style.css#frag" || candidate == "./sub/../style.css" {
			want, _ = filepath.EvalSymlinks(filepath.Join(root, "style.css"))
		}
		if got := filepath.FromSlash(aurl.Path()); got != want {
			t.Errorf("Resolve(%q) path = %q, want %q", candidate, got, want)
		}
	}
}

func TestResolveCanonicalFormIsStable(t *testing.T) {
	_, _, base := fixture(t)
	p := DefaultPolicy()

	a, err := p.Resolve("style.css", base)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Resolve("sub/../style.css#x", base)
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Fatalf("expected identical canonical forms, got %q and %q", a, b)
	}
}

func TestResolveRejects(t *testing.T) {
	_, outside, base := fixture(t)
	p := DefaultPolicy()

	httpBase, _ := url.Parse("http://example.com/doc/a.svg")

	tests := []struct {
		name      string
		policy    *Policy
		candidate string
		base      *url.URL
		want      error
	}{
		{"no base", p, "style.css", nil, ErrNoBaseURL},
		{"different scheme", p, "http://example.com/a.css", base, ErrDifferentScheme},
		{"disallowed scheme", p, "b.css", httpBase, ErrDisallowedScheme},
		{"parent directory", p, "../secret.css", base, ErrNotSiblingOrChildOfBaseFile},
		{"absolute outside", p, "file://" + filepath.ToSlash(filepath.Join(outside, "secret.css")), base, ErrNotSiblingOrChildOfBaseFile},
		{"missing file", p, "missing.css", base, ErrCanonicalization},
		{"missing outside", p, "sub/../../nothing.css", base, ErrNotSiblingOrChildOfBaseFile},
		{"data forbidden", &Policy{Schemes: []string{"file"}}, "data:text/css,a{}", base, ErrDisallowedScheme},
		{"remote host file", p, "file://server/share/a.css", base, ErrInvalidURL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.policy.Resolve(tt.candidate, tt.base)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Resolve(%q) error = %v, want %v", tt.candidate, err, tt.want)
			}
		})
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	root, outside, base := fixture(t)
	link := filepath.Join(root, "escape.css")
	if err := os.Symlink(filepath.Join(outside, "secret.css"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if _, err := DefaultPolicy().Resolve("escape.css", base); !errors.Is(err, ErrNotSiblingOrChildOfBaseFile) {
		t.Fatalf("expected symlink escape to be rejected, got %v", err)
	}
}

func TestResolveDataWithoutBase(t *testing.T) {
	aurl, err := DefaultPolicy().Resolve("data:text/css,rect%7Bfill:red%7D", nil)
	if err != nil {
		t.Fatalf("Resolve(data:) error = %v", err)
	}
	if aurl.Scheme() != "data" {
		t.Fatalf("scheme = %q", aurl.Scheme())
	}
}

func TestResolveHierarchical(t *testing.T) {
	p := &Policy{Schemes: []string{"bundle", "http"}}

	base, _ := url.Parse("bundle:///doc/main.svg")
	aurl, err := p.Resolve("img/../shapes.svg", base)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if aurl.Path() != "/doc/shapes.svg" {
		t.Fatalf("path = %q", aurl.Path())
	}
	if _, err := p.Resolve("../other/x.svg", base); !errors.Is(err, ErrNotSiblingOrChildOfBaseFile) {
		t.Fatalf("expected rejection, got %v", err)
	}

	httpBase, _ := url.Parse("http://Example.COM/doc/a.svg")
	aurl, err = p.Resolve("http://EXAMPLE.com/doc/b.svg", httpBase)
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if aurl.URL().Host != "example.com" {
		t.Fatalf("host = %q, want example.com", aurl.URL().Host)
	}
	if _, err := p.Resolve("http://evil.example/doc/b.svg", httpBase); !errors.Is(err, ErrNotSiblingOrChildOfBaseFile) {
		t.Fatalf("expected different host to be rejected, got %v", err)
	}
}

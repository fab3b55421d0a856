// Package allowed implements the security boundary consulted before any
// external resource is fetched: it resolves a candidate reference against a
// base URL, decides whether loading it is permitted and returns the canonical
// form used as a cache key.
package allowed

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrInvalidURL                  = errors.New("invalid URL")
	ErrNoBaseURL                   = errors.New("base URL is required to resolve relative reference")
	ErrDifferentScheme             = errors.New("URL scheme differs from base URL scheme")
	ErrDisallowedScheme            = errors.New("URL scheme is not allowed")
	ErrNotSiblingOrChildOfBaseFile = errors.New("URL is not a sibling or child of the base file")
	ErrCanonicalization            = errors.New("unable to canonicalize path")
)

// Resolver is the security boundary contract. Any error means "this
// reference does not exist" to the caller.
type Resolver interface {
	Resolve(candidate string, base *url.URL) (*URL, error)
}

// URL is a canonical URL which passed the security boundary. It never carries
// a fragment.
type URL struct {
	u *url.URL
}

// String returns canonical textual form, suitable as a cache key.
func (a *URL) String() string {
	return a.u.String()
}

// URL returns copy of underlying URL.
func (a *URL) URL() *url.URL {
	u := *a.u
	return &u
}

// Scheme returns lowercase URL scheme.
func (a *URL) Scheme() string {
	return a.u.Scheme
}

// Path returns URL path, empty for opaque URLs.
func (a *URL) Path() string {
	return a.u.Path
}

// Policy is the default Resolver.
//
// data: URLs are allowed from anywhere when AllowDataURLs is set. Everything
// else must be resolved relative to a base URL, keep base's scheme, use one
// of Schemes and stay within base file's directory (or below). For file
// scheme symbolic links are resolved before the check.
type Policy struct {
	AllowDataURLs bool
	Schemes       []string
}

// DefaultPolicy allows data: URLs and local files next to (or under) the
// base document.
func DefaultPolicy() *Policy {
	return &Policy{AllowDataURLs: true, Schemes: []string{"file"}}
}

// Resolve implements Resolver.
func (p *Policy) Resolve(candidate string, base *url.URL) (*URL, error) {
	var (
		u   *url.URL
		err error
	)
	if base != nil {
		u, err = base.Parse(candidate)
	} else {
		u, err = url.Parse(candidate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment, u.RawFragment = "", ""

	if u.Scheme == "data" {
		if !p.AllowDataURLs {
			return nil, ErrDisallowedScheme
		}
		return &URL{u: u}, nil
	}

	if base == nil {
		return nil, ErrNoBaseURL
	}
	if !strings.EqualFold(u.Scheme, base.Scheme) {
		return nil, ErrDifferentScheme
	}
	if !slices.Contains(p.Schemes, u.Scheme) {
		return nil, ErrDisallowedScheme
	}
	if u.Opaque != "" || base.Opaque != "" {
		return nil, ErrInvalidURL
	}

	if u.Scheme == "file" {
		return resolveFile(u, base)
	}
	return resolveHierarchical(u, base)
}

func resolveFile(u, base *url.URL) (*URL, error) {
	if !isLocalHost(u.Host) || !isLocalHost(base.Host) {
		return nil, ErrInvalidURL
	}
	lexTarget := filepath.Clean(filepath.FromSlash(u.Path))
	lexParent := filepath.Dir(filepath.Clean(filepath.FromSlash(base.Path)))
	if !within(lexTarget, lexParent, string(filepath.Separator)) {
		return nil, ErrNotSiblingOrChildOfBaseFile
	}
	// Symlinks may still lead outside, check again on canonical paths.
	target, err := filepath.EvalSymlinks(lexTarget)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanonicalization, err)
	}
	parent, err := filepath.EvalSymlinks(lexParent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCanonicalization, err)
	}
	target, parent = filepath.Clean(target), filepath.Clean(parent)
	if !within(target, parent, string(filepath.Separator)) {
		return nil, ErrNotSiblingOrChildOfBaseFile
	}
	return &URL{u: &url.URL{Scheme: "file", Path: filepath.ToSlash(target)}}, nil
}

func resolveHierarchical(u, base *url.URL) (*URL, error) {
	host, err := canonicalHost(u)
	if err != nil {
		return nil, err
	}
	baseHost, err := canonicalHost(base)
	if err != nil {
		return nil, err
	}
	if host != baseHost {
		return nil, ErrNotSiblingOrChildOfBaseFile
	}
	target := path.Clean("/" + u.Path)
	parent := path.Dir(path.Clean("/" + base.Path))
	if !within(target, parent, "/") {
		return nil, ErrNotSiblingOrChildOfBaseFile
	}
	return &URL{u: &url.URL{Scheme: u.Scheme, Host: host, Path: target, RawQuery: u.RawQuery}}, nil
}

// within reports whether target is parent itself or lives below it.
func within(target, parent, sep string) bool {
	if target == parent {
		return true
	}
	if !strings.HasSuffix(parent, sep) {
		parent += sep
	}
	return strings.HasPrefix(target, parent)
}

func isLocalHost(host string) bool {
	return host == "" || strings.EqualFold(host, "localhost")
}

func canonicalHost(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	ascii = strings.ToLower(ascii)
	if port := u.Port(); port != "" {
		return net.JoinHostPort(ascii, port), nil
	}
	return ascii, nil
}

// FileURL returns file URL for the local path, making it absolute first.
func FileURL(name string) (*url.URL, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return nil, err
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}, nil
}

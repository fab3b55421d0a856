// Package resource implements fetching of external resources (stylesheets,
// referenced documents) which already passed the security boundary.
package resource

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"

	"svgcore/allowed"
)

var (
	ErrUnsupportedScheme = errors.New("no fetcher for URL scheme")
	ErrTooLarge          = errors.New("resource exceeds size limit")
	ErrUnsafePath        = errors.New("unsafe resource path")
	ErrBadDataURL        = errors.New("malformed data URL")
)

// Data is a fetched resource.
type Data struct {
	Bytes       []byte
	ContentType string // may be empty if unknown
}

// Fetcher retrieves resource bytes for an allowed URL.
type Fetcher interface {
	Fetch(u *allowed.URL) (*Data, error)
}

// FetcherFunc is an adapter to allow use of ordinary functions as Fetcher.
type FetcherFunc func(u *allowed.URL) (*Data, error)

// Fetch calls f(u).
func (f FetcherFunc) Fetch(u *allowed.URL) (*Data, error) {
	return f(u)
}

// Mux dispatches fetch requests by URL scheme.
type Mux struct {
	log      *zap.Logger
	fetchers map[string]Fetcher
}

// NewMux creates an empty dispatcher.
func NewMux(log *zap.Logger) *Mux {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mux{log: log.Named("fetch"), fetchers: make(map[string]Fetcher)}
}

// NewDefaultMux creates dispatcher for file and data schemes.
func NewDefaultMux(maxSize int64, log *zap.Logger) *Mux {
	m := NewMux(log)
	m.Handle("file", &FileFetcher{MaxSize: maxSize})
	m.Handle("data", &DataFetcher{MaxSize: maxSize})
	return m
}

// Handle registers fetcher for scheme, replacing previous one.
func (m *Mux) Handle(scheme string, f Fetcher) {
	m.fetchers[strings.ToLower(scheme)] = f
}

// Fetch implements Fetcher.
func (m *Mux) Fetch(u *allowed.URL) (*Data, error) {
	f, ok := m.fetchers[u.Scheme()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme())
	}
	data, err := f.Fetch(u)
	if err != nil {
		m.log.Debug("Unable to fetch resource", zap.Stringer("url", u), zap.Error(err))
		return nil, err
	}
	m.log.Debug("Fetched resource", zap.Stringer("url", u), zap.String("type", data.ContentType), zap.Int("bytes", len(data.Bytes)))
	return data, nil
}

// DetectContentType returns MIME type for resource: extension first (sniffing
// is unreliable for text formats like CSS), then magic numbers.
func DetectContentType(name string, data []byte) string {
	if ct := extToMimeType(path.Ext(name)); ct != "" {
		return ct
	}
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return http.DetectContentType(data)
}

// extToMimeType returns MIME type for extensions we care about
func extToMimeType(ext string) string {
	switch strings.ToLower(ext) {
	case ".css":
		return "text/css"
	case ".svg":
		return "image/svg+xml"
	case ".svgz":
		return "image/svg+xml-compressed"
	case ".xml":
		return "application/xml"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}

func checkSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, size, limit)
	}
	return nil
}

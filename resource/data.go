package resource

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"svgcore/allowed"
)

const defaultDataMediaType = "text/plain;charset=US-ASCII"

// DataFetcher decodes RFC 2397 data: URLs.
type DataFetcher struct {
	MaxSize int64 // 0 - no limit
}

// Fetch implements Fetcher.
func (f *DataFetcher) Fetch(u *allowed.URL) (*Data, error) {
	if u.Scheme() != "data" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme())
	}
	raw := u.URL().Opaque
	if raw == "" {
		// data URL with slashes is still parsed as hierarchical by net/url
		uu := u.URL()
		raw = strings.TrimPrefix(uu.Host+uu.Path, "//")
	}
	return decodeDataURL(raw, f.MaxSize)
}

func decodeDataURL(raw string, limit int64) (*Data, error) {
	meta, payload, found := strings.Cut(raw, ",")
	if !found {
		return nil, ErrBadDataURL
	}
	if err := checkSize(int64(len(payload)), limit); err != nil {
		return nil, err
	}

	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	mediaType := strings.TrimSpace(meta)
	if mediaType == "" || strings.HasPrefix(mediaType, ";") {
		mediaType = defaultDataMediaType
	}

	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDataURL, err)
	}
	if !isBase64 {
		return &Data{Bytes: []byte(unescaped), ContentType: mediaType}, nil
	}

	// tolerate whitespace and missing padding, both are common in the wild
	unescaped = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, unescaped)
	decoded, err := base64.StdEncoding.DecodeString(unescaped)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(unescaped, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadDataURL, err)
		}
	}
	return &Data{Bytes: decoded, ContentType: mediaType}, nil
}

package resource

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"svgcore/allowed"
)

// BundleScheme is URL scheme used to address documents inside a zip bundle,
// e.g. bundle:///icons/main.svg.
const BundleScheme = "bundle"

// ArchiveFetcher serves bundle: URLs from zip archive entries.
type ArchiveFetcher struct {
	MaxSize int64 // 0 - no limit

	r *zip.ReadCloser
}

// OpenArchive opens zip archive for fetching. Caller must Close it.
func OpenArchive(name string) (*ArchiveFetcher, error) {
	r, err := zip.OpenReader(name)
	if err != nil && (r == nil || !errors.Is(err, zip.ErrInsecurePath)) {
		return nil, err
	}
	// insecure entry names are rejected on access, see isSafePath
	return &ArchiveFetcher{r: r}, nil
}

// Close releases the archive.
func (a *ArchiveFetcher) Close() error {
	return a.r.Close()
}

// BundleURL returns bundle: URL for archive entry name.
func BundleURL(name string) string {
	return BundleScheme + ":///" + strings.TrimPrefix(path.Clean("/"+name), "/")
}

// Fetch implements Fetcher.
func (a *ArchiveFetcher) Fetch(u *allowed.URL) (*Data, error) {
	if u.Scheme() != BundleScheme {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme())
	}
	name := strings.TrimPrefix(u.Path(), "/")
	if !isSafePath(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	for _, f := range a.r.File {
		if f.Name != name || f.FileInfo().IsDir() {
			continue
		}
		if err := checkSize(int64(f.UncompressedSize64), a.MaxSize); err != nil {
			return nil, err
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		return &Data{Bytes: data, ContentType: DetectContentType(name, data)}, nil
	}
	return nil, fmt.Errorf("archive entry %q not found", name)
}

// WalkFunc is called for every archive entry visited by Walk.
type WalkFunc func(name string) error

// Walk walks all files in the archive whose names start with prefix and have
// extension ext (any when empty), calling walkFn for each. Entries with path
// traversal components or absolute paths stop the walk to prevent Zip Slip
// style surprises.
func (a *ArchiveFetcher) Walk(prefix, ext string, walkFn WalkFunc) error {
	for _, f := range a.r.File {
		name := f.FileHeader.Name
		if !isSafePath(name) {
			return fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if ext != "" && !strings.EqualFold(path.Ext(name), ext) {
			continue
		}
		if err := walkFn(name); err != nil {
			return err
		}
	}
	return nil
}

// isSafePath returns false for paths that could escape the archive root:
// absolute paths and those containing ".." components.
func isSafePath(name string) bool {
	if name == "" || path.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return false
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}

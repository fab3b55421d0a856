package resource

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	"svgcore/allowed"
)

// FileFetcher reads file: URLs from local file system.
type FileFetcher struct {
	MaxSize int64 // 0 - no limit
}

// Fetch implements Fetcher. Files are read through os.DirFS rooted at the
// containing directory so the name itself can never escape it.
func (f *FileFetcher) Fetch(u *allowed.URL) (*Data, error) {
	if u.Scheme() != "file" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme())
	}
	dir, name := path.Split(u.Path())
	if name == "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePath, u)
	}
	fsys := os.DirFS(dir)

	fi, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrUnsafePath, u)
	}
	if err := checkSize(fi.Size(), f.MaxSize); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrInvalid) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, u)
		}
		return nil, err
	}
	return &Data{Bytes: data, ContentType: DetectContentType(name, data)}, nil
}

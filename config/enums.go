package config

import (
	"fmt"
	"strings"
)

// ImageFormat is the raster output encoding.
type ImageFormat int

const (
	ImageFormatPng ImageFormat = iota
	ImageFormatJpeg
	ImageFormatGif
	ImageFormatBmp
	ImageFormatTiff
)

var imageFormatNames = []string{"png", "jpeg", "gif", "bmp", "tiff"}

// ErrInvalidImageFormat is returned for unknown format names.
var ErrInvalidImageFormat = fmt.Errorf("not a valid ImageFormat, try [%s]", strings.Join(imageFormatNames, ", "))

// ImageFormatNames returns list of possible string values of ImageFormat.
func ImageFormatNames() []string {
	return append([]string(nil), imageFormatNames...)
}

func (f ImageFormat) IsValid() bool {
	return f >= 0 && int(f) < len(imageFormatNames)
}

func (f ImageFormat) String() string {
	if f.IsValid() {
		return imageFormatNames[f]
	}
	return fmt.Sprintf("ImageFormat(%d)", f)
}

// ParseImageFormat converts case insensitive name to ImageFormat. "jpg" and
// "tif" are accepted as aliases.
func ParseImageFormat(name string) (ImageFormat, error) {
	switch n := strings.ToLower(name); n {
	case "jpg":
		return ImageFormatJpeg, nil
	case "tif":
		return ImageFormatTiff, nil
	default:
		for i, s := range imageFormatNames {
			if s == n {
				return ImageFormat(i), nil
			}
		}
	}
	return ImageFormat(0), fmt.Errorf("%s is %w", name, ErrInvalidImageFormat)
}

func (f ImageFormat) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("%d is %w", int(f), ErrInvalidImageFormat)
	}
	return []byte(f.String()), nil
}

func (f *ImageFormat) UnmarshalText(text []byte) error {
	v, err := ParseImageFormat(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Ext returns file name extension for the format.
func (f ImageFormat) Ext() string {
	switch f {
	case ImageFormatJpeg:
		return ".jpg"
	case ImageFormatTiff:
		return ".tif"
	default:
		return "." + f.String()
	}
}

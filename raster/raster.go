// Package raster renders styled SVG documents into images.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"svgcore/config"
)

// Size used when document has no viewBox.
const defaultSize = 512

// maxRasterDim limits width and height of produced images, documents with
// enormous viewBox would otherwise allocate gigabytes.
var maxRasterDim = 8192

// Options controls rasterization.
type Options struct {
	Width  int
	Height int
	// CurrentColor replaces currentColor paint, black when empty.
	CurrentColor string
}

// Rasterize renders SVG data onto transparent canvas.
//
// Size rules:
//   - Width and Height are 0: viewBox size (defaultSize when absent)
//   - only one of them is set: scale by it keeping aspect ratio
//   - both are set: fit into the box keeping aspect ratio
func Rasterize(svg []byte, opts Options) (*image.RGBA, error) {
	cc := opts.CurrentColor
	if cc == "" {
		cc = "black"
	}
	icon, err := oksvg.ReadReplacingCurrentColor(bytes.NewReader(svg), cc)
	if err != nil {
		return nil, fmt.Errorf("unable to parse SVG: %w", err)
	}

	w, h := targetSize(icon.ViewBox.W, icon.ViewBox.H, opts.Width, opts.Height)
	icon.SetTarget(0, 0, float64(w), float64(h))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, dst, dst.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)
	return dst, nil
}

func targetSize(vbW, vbH float64, targetW, targetH int) (int, int) {
	intrW, intrH := int(math.Ceil(vbW)), int(math.Ceil(vbH))
	if intrW <= 0 {
		intrW = defaultSize
	}
	if intrH <= 0 {
		intrH = defaultSize
	}

	w, h := intrW, intrH
	switch {
	case targetW <= 0 && targetH <= 0:
	case targetH <= 0:
		w = targetW
		h = int(math.Round(float64(w) * float64(intrH) / float64(intrW)))
	case targetW <= 0:
		h = targetH
		w = int(math.Round(float64(h) * float64(intrW) / float64(intrH)))
	default:
		scale := math.Min(float64(targetW)/float64(intrW), float64(targetH)/float64(intrH))
		w = int(math.Round(float64(intrW) * scale))
		h = int(math.Round(float64(intrH) * scale))
	}
	w, h = max(w, 1), max(h, 1)

	if w > maxRasterDim || h > maxRasterDim {
		s := min(float64(maxRasterDim)/float64(w), float64(maxRasterDim)/float64(h))
		w = max(int(math.Round(float64(w)*s)), 1)
		h = max(int(math.Round(float64(h)*s)), 1)
	}
	return w, h
}

// Encode writes img in requested format. Formats without transparency get
// white background, grayscale conversion is applied when configured.
func Encode(w io.Writer, img image.Image, cfg *config.RenderConfig) error {
	if cfg.Grayscale {
		img = imaging.Grayscale(img)
	}

	switch cfg.Format {
	case config.ImageFormatPng:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
	case config.ImageFormatJpeg:
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, flatten(img), imaging.JPEG, imaging.JPEGQuality(cfg.JPEGQuality)); err != nil {
			return err
		}
		data, err := ensureJFIF(buf.Bytes(), dpiPxPerInch, 96, 96)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case config.ImageFormatGif:
		return imaging.Encode(w, img, imaging.GIF)
	case config.ImageFormatBmp:
		return bmp.Encode(w, flatten(img))
	case config.ImageFormatTiff:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return fmt.Errorf("unsupported image format %s", cfg.Format)
	}
}

func flatten(img image.Image) image.Image {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Point{}, 1.0)
}

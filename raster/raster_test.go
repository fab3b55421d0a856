package raster

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
	"testing"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"svgcore/config"
	"svgcore/document"
)

func TestRasterize(t *testing.T) {
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 50"><rect width="100" height="50"/></svg>`)

	tests := []struct {
		name string
		w, h int
		want image.Point
	}{
		{"intrinsic", 0, 0, image.Pt(100, 50)},
		{"scale_by_width", 200, 0, image.Pt(200, 100)},
		{"scale_by_height", 0, 200, image.Pt(400, 200)},
		{"fit_box", 150, 150, image.Pt(150, 75)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := Rasterize(svg, Options{Width: tt.w, Height: tt.h})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Bounds().Size() != tt.want {
				t.Fatalf("unexpected bounds: %v, want %v", img.Bounds(), tt.want)
			}
		})
	}
}

func TestTargetSize(t *testing.T) {
	tests := []struct {
		vbW, vbH     float64
		tw, th       int
		wantW, wantH int
	}{
		{0, 0, 0, 0, defaultSize, defaultSize},
		{100000, 50000, 0, 0, maxRasterDim, maxRasterDim / 2},
		{10, 10, 0, 100000, maxRasterDim, maxRasterDim},
		{0.2, 0.2, 0, 0, 1, 1},
	}
	for _, tt := range tests {
		w, h := targetSize(tt.vbW, tt.vbH, tt.tw, tt.th)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("targetSize(%v, %v, %d, %d) = %dx%d, want %dx%d", tt.vbW, tt.vbH, tt.tw, tt.th, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestRasterizeStyledDocument(t *testing.T) {
	doc, err := document.Load(strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">
  <style>rect { fill: red } .blue { fill: blue }</style>
  <rect width="10" height="5"/>
  <rect class="blue" y="5" width="10" height="5" style="fill: currentColor"/>
</svg>`), document.Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	svg, err := doc.StyledXML()
	if err != nil {
		t.Fatalf("StyledXML() error = %v", err)
	}

	img, err := Rasterize(svg, Options{CurrentColor: "lime"})
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if got := color.NRGBAModel.Convert(img.At(5, 2)).(color.NRGBA); got != (color.NRGBA{255, 0, 0, 255}) {
		t.Errorf("top pixel = %v, want red", got)
	}
	if got := color.NRGBAModel.Convert(img.At(5, 7)).(color.NRGBA); got != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("bottom pixel = %v, want lime", got)
	}
}

func TestEncode(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		format config.ImageFormat
		name   string
	}{
		{config.ImageFormatPng, "png"},
		{config.ImageFormatJpeg, "jpeg"},
		{config.ImageFormatGif, "gif"},
		{config.ImageFormatBmp, "bmp"},
		{config.ImageFormatTiff, "tiff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := &config.RenderConfig{Format: tt.format, JPEGQuality: 90}
			if err := Encode(&buf, img, cfg); err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			decoded, name, err := image.Decode(bytes.NewReader(buf.Bytes()))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if name != tt.name {
				t.Errorf("decoded format = %q, want %q", name, tt.name)
			}
			if decoded.Bounds().Size() != image.Pt(8, 4) {
				t.Errorf("decoded bounds = %v", decoded.Bounds())
			}
		})
	}

	t.Run("grayscale", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Encode(&buf, img, &config.RenderConfig{Format: config.ImageFormatPng, Grayscale: true}); err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		decoded, _, err := image.Decode(&buf)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		r, g, b, _ := decoded.At(1, 1).RGBA()
		if r != g || g != b {
			t.Errorf("pixel is not gray: %d %d %d", r, g, b)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if err := Encode(&bytes.Buffer{}, img, &config.RenderConfig{Format: config.ImageFormat(42)}); err == nil {
			t.Error("Encode() succeeded for invalid format")
		}
	})
}

func TestEnsureJFIF(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2)), nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}
	data, err := ensureJFIF(buf.Bytes(), dpiPxPerInch, 300, 300)
	if err != nil {
		t.Fatalf("ensureJFIF() error = %v", err)
	}
	if !bytes.Equal(data[2:4], []byte{0xFF, 0xE0}) || string(data[6:10]) != "JFIF" {
		t.Errorf("APP0 segment not inserted: % x", data[:20])
	}
	if again, _ := ensureJFIF(data, dpiPxPerInch, 300, 300); !bytes.Equal(again, data) {
		t.Error("ensureJFIF() modified data which already has APP0")
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("Decode() error = %v", err)
	}
	if _, err := ensureJFIF([]byte("nope"), dpiPxPerInch, 1, 1); err == nil {
		t.Error("ensureJFIF() accepted non jpeg data")
	}
}

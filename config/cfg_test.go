package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
	if !cfg.Security.AllowDataURLs {
		t.Error("AllowDataURLs should be on by default")
	}
	if !slices.Equal(cfg.Security.Schemes, []string{"file", "bundle"}) {
		t.Errorf("Schemes = %v", cfg.Security.Schemes)
	}
	if cfg.Render.Format != ImageFormatPng {
		t.Errorf("Render.Format = %v, want png", cfg.Render.Format)
	}
	if cfg.Logging.ConsoleLogger.Level != "normal" {
		t.Errorf("console level = %q", cfg.Logging.ConsoleLogger.Level)
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `version: 1
security:
  allow_data_urls: false
  schemes: ["file"]
  max_resource_size: 1024
document:
  strict_xml: true
  default_stylesheet: "rect { fill: {{red}} }"
render:
  width: 300
  format: JPG
  jpeg_quality_level: 75
  grayscale: true
logging:
  console:
    level: debug
  file:
    level: debug
    destination: `+filepath.Join(dir, "test.log")+`
    mode: append
`)

	cfg, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	if cfg.Security.AllowDataURLs || cfg.Security.MaxResourceSize != 1024 {
		t.Errorf("Security = %+v", cfg.Security)
	}
	if !cfg.Document.StrictXML {
		t.Error("StrictXML should be true")
	}
	if cfg.Document.DefaultStylesheet != "rect { fill: {{red}} }" {
		t.Errorf("DefaultStylesheet = %q", cfg.Document.DefaultStylesheet)
	}
	if cfg.Render.Width != 300 || cfg.Render.Height != 0 {
		t.Errorf("Render size = %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Render.Format != ImageFormatJpeg || cfg.Render.JPEGQuality != 75 || !cfg.Render.Grayscale {
		t.Errorf("Render = %+v", cfg.Render)
	}
	if cfg.Logging.FileLogger.Mode != "append" {
		t.Errorf("file log mode = %q", cfg.Logging.FileLogger.Mode)
	}
	// merged with defaults
	if cfg.Reporting.Destination == "" {
		t.Error("Reporting.Destination lost default value")
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\nsecurity:\n  allow_data_urls: true\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"version", "version: 2\n"},
		{"format", "version: 1\nrender:\n  format: svg\n"},
		{"quality", "version: 1\nrender:\n  jpeg_quality_level: 10\n"},
		{"size", "version: 1\nrender:\n  width: -1\n"},
		{"scheme", "version: 1\nsecurity:\n  schemes: [\"FILE\"]\n"},
		{"log level", "version: 1\nlogging:\n  console:\n    level: verbose\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("LoadConfiguration() succeeded, want error")
			}
		})
	}

	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if _, err = unmarshalConfig(data, &Config{}, true); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Render.Format = ImageFormatTiff

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "format: tiff") {
		t.Errorf("Dump() output does not contain format:\n%s", data)
	}

	cfg2, err := unmarshalConfig(data, &Config{}, false)
	if err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Render.Format != ImageFormatTiff || cfg2.Version != cfg.Version {
		t.Errorf("round trip mismatch: %+v", cfg2.Render)
	}
}

func TestImageFormat(t *testing.T) {
	tests := []struct {
		in   string
		want ImageFormat
		ext  string
	}{
		{"png", ImageFormatPng, ".png"},
		{"JPEG", ImageFormatJpeg, ".jpg"},
		{"jpg", ImageFormatJpeg, ".jpg"},
		{"gif", ImageFormatGif, ".gif"},
		{"bmp", ImageFormatBmp, ".bmp"},
		{"tif", ImageFormatTiff, ".tif"},
	}
	for _, tt := range tests {
		got, err := ParseImageFormat(tt.in)
		if err != nil {
			t.Errorf("ParseImageFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want || got.Ext() != tt.ext {
			t.Errorf("ParseImageFormat(%q) = %v (%s), want %v (%s)", tt.in, got, got.Ext(), tt.want, tt.ext)
		}
	}

	if _, err := ParseImageFormat("svg"); err == nil {
		t.Error("ParseImageFormat(svg) succeeded")
	}
	if got := ImageFormat(99).String(); got != "ImageFormat(99)" {
		t.Errorf("String() = %q", got)
	}
	if _, err := ImageFormat(-1).MarshalText(); err == nil {
		t.Error("MarshalText() of invalid value succeeded")
	}
	if got := strings.Join(ImageFormatNames(), ","); got != "png,jpeg,gif,bmp,tiff" {
		t.Errorf("ImageFormatNames() = %s", got)
	}
}

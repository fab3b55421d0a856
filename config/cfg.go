package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	SecurityConfig struct {
		AllowDataURLs   bool     `yaml:"allow_data_urls"`
		Schemes         []string `yaml:"schemes" validate:"dive,required,lowercase"`
		MaxResourceSize int64    `yaml:"max_resource_size" validate:"gte=0"`
	}

	DocumentConfig struct {
		StrictXML bool `yaml:"strict_xml"`
		// CSS file cascaded before stylesheets of every loaded document
		StylesheetPath string `yaml:"stylesheet_path" sanitize:"assure_file_access"`
		// CSS text, appended after StylesheetPath content
		DefaultStylesheet string `yaml:"default_stylesheet"`
	}

	RenderConfig struct {
		Width       int         `yaml:"width" validate:"gte=0,lte=8192"`
		Height      int         `yaml:"height" validate:"gte=0,lte=8192"`
		Format      ImageFormat `yaml:"format" validate:"gte=0"`
		JPEGQuality int         `yaml:"jpeg_quality_level" validate:"min=40,max=100"`
		Grayscale   bool        `yaml:"grayscale"`
		// CurrentColor replaces currentColor paint
		CurrentColor string `yaml:"current_color"`

		OutputNameTemplate    string `yaml:"output_name_template"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Security  SecurityConfig `yaml:"security"`
		Document  DocumentConfig `yaml:"document"`
		Render    RenderConfig   `yaml:"render"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

type TemplateFieldName string

// NOTE: must match yaml field names above
const (
	DefaultStylesheetFieldName  TemplateFieldName = "default_stylesheet"
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

// These fields are expanded later (or never for CSS), gencfg must leave them
// alone.
var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(string(DefaultStylesheetFieldName)),
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// Only fields we defined are allowed, so no yaml.Unmarshal here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads configuration file at path, superimposes its values
// on top of expanded embedded defaults and validates the result. Empty path
// means defaults only.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, true)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare expands embedded configuration template.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump marshals configuration back to YAML.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

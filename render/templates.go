package render

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"

	"svgcore/config"
	"svgcore/document"
	"svgcore/dom"
	"svgcore/qname"
)

// Values is a struct that holds variables we make available for template expansion
type Values struct {
	Context    string
	Title      string
	Format     string
	SourceFile string
	DocumentID string
	Width      int
	Height     int
}

// documentTitle returns text of the first title child of the root element.
func documentTitle(root *dom.Node) string {
	if root == nil {
		return ""
	}
	for c := range root.Children() {
		if c.IsElement() && c.Name() == qname.SVG("title") {
			return strings.TrimSpace(c.TextContent())
		}
	}
	return ""
}

func expandTemplate(d *document.Document, name config.TemplateFieldName, field, src string, format config.ImageFormat, width, height int) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	values := Values{
		Context:    string(name),
		Title:      documentTitle(d.Root()),
		Format:     format.String(),
		SourceFile: strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		DocumentID: d.ID.String(),
		Width:      width,
		Height:     height,
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}

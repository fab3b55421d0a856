package css_test

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"svgcore/allowed"
	"svgcore/css"
	"svgcore/qname"
)

func testLogger(t *testing.T) *zap.Logger {
	t.Helper()
	return zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
}

// fixture writes files into a temporary directory and returns file URL of
// "doc.svg" in it, suitable as base for relative references.
func fixture(t *testing.T, files map[string]string) *url.URL {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	base, err := allowed.FileURL(filepath.Join(dir, "doc.svg"))
	if err != nil {
		t.Fatalf("FileURL: %v", err)
	}
	return base
}

func mustParse(t *testing.T, text string, base *url.URL) *css.Stylesheet {
	t.Helper()

	sheet, err := css.NewParser(testLogger(t)).FromData(text, base)
	if err != nil {
		t.Fatalf("FromData() error = %v", err)
	}
	return sheet
}

func ruleTexts(sheet *css.Stylesheet) []string {
	var res []string
	for _, r := range sheet.Rules() {
		var decls []string
		for d := range r.Declarations.All() {
			decls = append(decls, d.String())
		}
		res = append(res, r.Selectors.String()+" {"+strings.Join(decls, "; ")+"}")
	}
	return res
}

func TestParser_Rules(t *testing.T) {
	tests := []struct {
		name string
		css  string
		want []string
	}{
		{
			name: "selector list",
			css:  "foo,.bar{fill:red;stroke:green;} #baz{stroke-width:42;}",
			want: []string{
				"foo, .bar {fill: #ff0000; stroke: #008000}",
				"#baz {stroke-width: 42}",
			},
		},
		{
			name: "important",
			css:  "rect { fill: red !important; stroke: blue ! important }",
			want: []string{"rect {fill: #ff0000 !important; stroke: #0000ff !important}"},
		},
		{
			name: "last declaration wins",
			css:  "rect { fill: red; stroke: blue; fill: green }",
			want: []string{"rect {fill: #008000; stroke: #0000ff}"},
		},
		{
			name: "bad declarations dropped individually",
			css:  "rect { fill: red; bogus: 1; stroke: ???; opacity: 0.5; marker: url(#m) }",
			want: []string{"rect {fill: #ff0000; opacity: 0.5; marker: url(#m)}"},
		},
		{
			name: "invalid selector drops rule",
			css:  "svg|rect { fill: red } circle { fill: blue }",
			want: []string{"circle {fill: #0000ff}"},
		},
		{
			name: "at-rules skipped",
			css:  "@media print { rect { fill: red } } @charset \"utf-8\"; @font-face { font-family: x } circle { fill: blue }",
			want: []string{"circle {fill: #0000ff}"},
		},
		{
			name: "combinators",
			css:  "g > rect + circle ~ path, svg text { fill: none }",
			want: []string{"g > rect + circle ~ path, svg text {fill: none}"},
		},
		{
			name: "comments",
			css:  "/* a */ rect /* b */ { /* c */ fill: red /* d */; }",
			want: []string{"rect {fill: #ff0000}"},
		},
		{
			name: "empty",
			css:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ruleTexts(mustParse(t, tt.css, nil))
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestParser_InvalidUTF8(t *testing.T) {
	_, err := css.NewParser(testLogger(t)).FromData("rect { fill: \xff }", nil)
	if !errors.Is(err, css.ErrBadCSS) {
		t.Errorf("FromData() error = %v, want ErrBadCSS", err)
	}
}

func TestParser_Import(t *testing.T) {
	base := fixture(t, map[string]string{
		"a.css":        "@import 'sub/b.css'; rect { fill: red }",
		"sub/b.css":    "circle { fill: green }",
		"sub/c.css":    "\ufeffpath { fill: blue }",
		"plain.txt":    "line { fill: red }",
		"cycle1.css":   "@import url(cycle2.css); g { fill: red }",
		"cycle2.css":   "@import url(\"cycle1.css\"); text { fill: blue }",
		"bad-utf8.css": "rect { fill: \xff }",
	})

	tests := []struct {
		name string
		css  string
		want []string
	}{
		{
			name: "nested imports use original base",
			css:  "@import \"a.css\"; ellipse { fill: none }",
			want: []string{"circle {fill: #008000}", "rect {fill: #ff0000}", "ellipse {fill: none}"},
		},
		{
			name: "url form with media",
			css:  "@import url(sub/c.css) screen; ellipse { fill: none }",
			want: []string{"path {fill: #0000ff}", "ellipse {fill: none}"},
		},
		{
			name: "not text/css",
			css:  "@import 'plain.txt'; ellipse { fill: none }",
			want: []string{"ellipse {fill: none}"},
		},
		{
			name: "invalid UTF-8",
			css:  "@import 'bad-utf8.css'; ellipse { fill: none }",
			want: []string{"ellipse {fill: none}"},
		},
		{
			name: "missing",
			css:  "@import 'missing.css'; ellipse { fill: none }",
			want: []string{"ellipse {fill: none}"},
		},
		{
			name: "outside base directory",
			css:  "@import '../outside.css'; ellipse { fill: none }",
			want: []string{"ellipse {fill: none}"},
		},
		{
			name: "cycle",
			css:  "@import 'cycle1.css';",
			want: []string{"text {fill: #0000ff}", "g {fill: #ff0000}"},
		},
		{
			name: "malformed",
			css:  "@import 42; ellipse { fill: none }",
			want: []string{"ellipse {fill: none}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ruleTexts(mustParse(t, tt.css, base))
			if strings.Join(got, "\n") != strings.Join(tt.want, "\n") {
				t.Errorf("rules =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(tt.want, "\n"))
			}
		})
	}
}

func TestParser_ImportWithoutBase(t *testing.T) {
	sheet := mustParse(t, "@import 'a.css'; rect { fill: red }", nil)
	if sheet.Len() != 1 {
		t.Errorf("Len() = %d, want 1", sheet.Len())
	}
}

func TestParser_RuleSource(t *testing.T) {
	base := fixture(t, map[string]string{"a.css": "circle { fill: green }"})
	sheet := mustParse(t, "@import 'a.css'; rect { fill: red }", base)

	rules := sheet.Rules()
	if len(rules) != 2 {
		t.Fatalf("Len() = %d, want 2", len(rules))
	}
	if !strings.HasSuffix(rules[0].Source, "/a.css") || !strings.HasPrefix(rules[0].Source, "file://") {
		t.Errorf("imported Source = %q", rules[0].Source)
	}
	if rules[1].Source != "" {
		t.Errorf("inline Source = %q, want empty", rules[1].Source)
	}
	if !strings.Contains(sheet.String(), "/* "+rules[0].Source+" */\ncircle {\n  fill: #008000;\n}\n") {
		t.Errorf("String() =\n%s", sheet.String())
	}
}

func TestParser_FromHref(t *testing.T) {
	base := fixture(t, map[string]string{
		"style.css": "@import 'more.css'; rect { fill: red }",
		"more.css":  "circle { fill: blue }",
		"style.txt": "rect { fill: red }",
	})
	p := css.NewParser(testLogger(t))

	t.Run("ok", func(t *testing.T) {
		sheet, err := p.FromHref("style.css", base)
		if err != nil {
			t.Fatalf("FromHref() error = %v", err)
		}
		if sheet.Len() != 2 {
			t.Errorf("Len() = %d, want 2", sheet.Len())
		}
	})

	tests := []struct {
		name    string
		href    string
		base    *url.URL
		wantErr error
	}{
		{"no base", "style.css", nil, css.ErrBadURL},
		{"outside", "../style.css", base, css.ErrBadURL},
		{"other scheme", "http://example.com/style.css", base, css.ErrBadURL},
		{"content type", "style.txt", base, css.ErrBadCSS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.FromHref(tt.href, tt.base)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("FromHref() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		// missing target cannot be canonicalized, so it is refused as an URL
		_, err := p.FromHref("missing.css", base)
		if !errors.Is(err, css.ErrBadURL) || !errors.Is(err, allowed.ErrCanonicalization) {
			t.Errorf("FromHref() error = %v, want bad URL", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("FromHref() error = %v, want os.ErrNotExist", err)
		}
	})

	t.Run("data url", func(t *testing.T) {
		sheet, err := p.FromHref("data:text/css,rect%20%7B%20fill%3A%20red%20%7D", nil)
		if err != nil {
			t.Fatalf("FromHref() error = %v", err)
		}
		if got := ruleTexts(sheet); len(got) != 1 || got[0] != "rect {fill: #ff0000}" {
			t.Errorf("rules = %v", got)
		}
	})
}

func TestParser_ParseDeclarations(t *testing.T) {
	p := css.NewParser(testLogger(t))
	decls := p.ParseDeclarations("fill: red; bogus: 1; stroke: blue !important; marker: url(#m);; opacity: 50%")

	want := []string{"fill: #ff0000", "stroke: #0000ff !important", "marker: url(#m)", "opacity: 0.5"}
	var got []string
	for d := range decls.All() {
		got = append(got, d.String())
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("ParseDeclarations() = %q, want %q", got, want)
	}

	d, ok := decls.Get(qname.Local("stroke"))
	if !ok || !d.Important {
		t.Errorf("Get(stroke) = %v, %v", d, ok)
	}
	if _, ok := decls.Get(qname.Local("bogus")); ok {
		t.Error("Get(bogus) found dropped declaration")
	}
}

func TestStylesheet_Append(t *testing.T) {
	a := mustParse(t, "rect { fill: red }", nil)
	b := mustParse(t, "circle { fill: blue } path { fill: none }", nil)
	a.Append(b)
	if a.Len() != 3 {
		t.Errorf("Len() = %d, want 3", a.Len())
	}
	if got := a.Rules()[2].Selectors.String(); got != "path" {
		t.Errorf("last rule = %q, want path", got)
	}
}

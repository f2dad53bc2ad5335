package composer

import (
	"regexp"
	"strings"
	"text/template"
)

// Fragments are the three user-authored sources of a project.
type Fragments struct {
	HTML string
	CSS  string
	JS   string
}

// Script markers identify the two executable blocks of a composed document.
const (
	MarkerAttr   = "data-playground"
	MarkerShim   = "shim"
	MarkerScript = "user"
)

var (
	closeStyle  = regexp.MustCompile(`(?i)</(style)`)
	closeScript = regexp.MustCompile(`(?i)</(script)`)
)

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
    <meta name="playground-shim" content="{{.Version}}">
    <style>
{{.CSS}}
    </style>
  </head>
  <body>
{{.HTML}}
    <script ` + MarkerAttr + `="` + MarkerShim + `">
{{.Shim}}
    </script>
    <script ` + MarkerAttr + `="` + MarkerScript + `">
try {
{{.JS}}
} catch (error) {
  {{.Catch}}
}
    </script>
  </body>
</html>
`))

type document struct {
	Version string
	Shim    string
	Catch   string
	HTML    string
	CSS     string
	JS      string
}

// Compose renders the executable preview document for the given fragments.
func Compose(html, css, js string) string {
	return Fragments{HTML: html, CSS: css, JS: js}.Compose()
}

// Compose renders f. The result depends only on f and ShimVersion.
func (f Fragments) Compose() string {
	var b strings.Builder
	b.Grow(len(f.HTML) + len(f.CSS) + len(f.JS) + len(Shim) + 512)
	err := documentTemplate.Execute(&b, document{
		Version: ShimVersion,
		Shim:    Shim,
		Catch:   boundaryCatch,
		HTML:    f.HTML,
		CSS:     NeutralizeCSS(f.CSS),
		JS:      NeutralizeJS(f.JS),
	})
	if err != nil {
		// Only string fields are rendered into a strings.Builder.
		panic("composer: render document: " + err.Error())
	}
	return b.String()
}

// NeutralizeCSS escapes closing style tags so the stylesheet cannot end its
// container early.
func NeutralizeCSS(css string) string {
	return closeStyle.ReplaceAllString(css, `<\/$1`)
}

// NeutralizeJS escapes closing script tags inside the script fragment.
func NeutralizeJS(js string) string {
	return closeScript.ReplaceAllString(js, `<\/$1`)
}

var exportTemplate = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <link rel="stylesheet" href="styles.css">
</head>
<body>
{{.}}
<script src="script.js"></script>
</body>
</html>`))

// ExportDocument renders the standalone index.html of an export. It links
// styles.css and script.js and carries no console shim.
func ExportDocument(html string) string {
	var b strings.Builder
	if err := exportTemplate.Execute(&b, html); err != nil {
		panic("composer: render export document: " + err.Error())
	}
	return b.String()
}

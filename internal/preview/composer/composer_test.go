package composer

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, doc string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	require.NoError(t, err)
	return d
}

func TestComposeDeterministic(t *testing.T) {
	a := Compose("<h1>hi</h1>", "h1{color:red}", "console.log(1)")
	b := Compose("<h1>hi</h1>", "h1{color:red}", "console.log(1)")
	assert.Equal(t, a, b)

	c := Compose("<h1>hi</h1>", "h1{color:red}", "console.log(2)")
	assert.NotEqual(t, a, c)
}

func TestComposePlacesFragments(t *testing.T) {
	doc := parse(t, Compose(`<div id="app">content</div>`, "body{margin:0}", "var x = 1;"))

	assert.Contains(t, doc.Find("head style").Text(), "body{margin:0}")
	assert.Equal(t, "content", doc.Find("body #app").Text())

	scripts := doc.Find("script[" + MarkerAttr + "]")
	require.Equal(t, 2, scripts.Length())
	assert.Equal(t, MarkerShim, scripts.Eq(0).AttrOr(MarkerAttr, ""), "shim runs first")
	assert.Equal(t, MarkerScript, scripts.Eq(1).AttrOr(MarkerAttr, ""))

	user := scripts.Eq(1).Text()
	assert.Contains(t, user, "try {")
	assert.Contains(t, user, "var x = 1;")
	assert.Contains(t, user, "catch (error)")

	version, ok := doc.Find(`meta[name="playground-shim"]`).Attr("content")
	require.True(t, ok)
	assert.Equal(t, ShimVersion, version)
}

func TestComposeShimContract(t *testing.T) {
	shim := parse(t, Compose("", "", "")).Find("script[" + MarkerAttr + "=" + MarkerShim + "]").Text()

	for _, want := range []string{
		"type: 'console'",
		"window.parent.postMessage",
		"'Warning:'",
		"'Error:'",
		"'Table:'",
		"JSON.stringify(value, null, 2)",
		"window.onerror",
	} {
		assert.Contains(t, shim, want)
	}
}

func TestComposeNeutralizesClosingTags(t *testing.T) {
	out := Compose("<p>x</p>", "a{}</STYLE><script>alert(1)</script>", `var s = "</script><b>";`)
	doc := parse(t, out)

	assert.Equal(t, 1, doc.Find("style").Length())
	assert.Equal(t, 0, doc.Find("head script").Length(), "css cannot open a script")
	assert.Equal(t, 0, doc.Find("b").Length(), "js cannot inject markup")
	assert.Contains(t, doc.Find("script["+MarkerAttr+"="+MarkerScript+"]").Text(), `"<\/script><b>"`)
}

func TestNeutralize(t *testing.T) {
	assert.Equal(t, `<\/style>`, NeutralizeCSS("</style>"))
	assert.Equal(t, `<\/Style>`, NeutralizeCSS("</Style>"))
	assert.Equal(t, "a > b {}", NeutralizeCSS("a > b {}"))
	assert.Equal(t, `x = "<\/script>"`, NeutralizeJS(`x = "</script>"`))
	assert.Equal(t, "if (a</b) {}", NeutralizeJS("if (a</b) {}"))
}

func TestFragmentsCompose(t *testing.T) {
	f := Fragments{HTML: "<i>h</i>", CSS: "i{}", JS: "1"}
	assert.Equal(t, Compose(f.HTML, f.CSS, f.JS), f.Compose())
}

func TestExportDocument(t *testing.T) {
	out := ExportDocument("<main>hi</main>")
	doc := parse(t, out)

	assert.Equal(t, "styles.css", doc.Find(`link[rel="stylesheet"]`).AttrOr("href", ""))
	assert.Equal(t, "script.js", doc.Find("script").AttrOr("src", ""))
	assert.Equal(t, "hi", doc.Find("main").Text())
	assert.NotContains(t, out, "postMessage")
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
}

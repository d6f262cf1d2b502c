package dom

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFragment_Basic(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment(`<p class="x">hi <b>there</b></p><!--note-->`, "div")
	require.NoError(t, err)

	children := frag.Children()
	require.Len(t, children, 2)
	p := children[0]
	assert.Equal(t, "p", p.Tag())
	assert.True(t, p.HasClass("x"))
	assert.Equal(t, "hi there", p.TextContent())
	assert.Equal(t, KindComment, children[1].Kind())
	assert.Equal(t, "note", children[1].Data())
}

func TestParseFragment_DefaultContext(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment("<span>x</span>", "")
	require.NoError(t, err)
	require.NotNil(t, frag.FirstChild())
	assert.Equal(t, "span", frag.FirstChild().Tag())
}

func TestParseFragment_DeclarativeShadow(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment(
		`<x-card><template shadowrootmode="open"><p>inside</p><slot></slot></template><span>light</span></x-card>`,
		"div")
	require.NoError(t, err)

	host := frag.FirstChild()
	require.NotNil(t, host)
	assert.Equal(t, "x-card", host.Tag())

	sr := host.Shadow()
	require.NotNil(t, sr, "template hydrates into a boundary")
	assert.Equal(t, ShadowOpen, sr.Mode())
	assert.Equal(t, "inside", sr.Node().FirstChild().TextContent())

	// the template element itself is gone; light content stays put
	require.Len(t, host.Children(), 1)
	light := host.FirstChild()
	assert.Equal(t, "span", light.Tag())

	// projection is live once hydrated
	slot, err := sr.Node().QuerySelector("slot")
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, []*Node{light}, slot.AssignedNodes())
}

func TestParseFragment_DeclarativeShadowClosed(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment(
		`<x-vault><template shadowrootmode="closed"><p>secret</p></template></x-vault>`,
		"div")
	require.NoError(t, err)

	host := frag.FirstChild()
	assert.Nil(t, host.Shadow(), "closed boundary stays hidden")
	got, err := host.QuerySelector("template")
	require.NoError(t, err)
	assert.Nil(t, got, "the template did not survive as an element")
}

func TestParseFragment_UnknownShadowModeKeepsTemplate(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment(
		`<x-card><template shadowrootmode="ajar"><p>x</p></template></x-card>`,
		"div")
	require.NoError(t, err)

	host := frag.FirstChild()
	assert.Nil(t, host.Shadow())
	tmpl, err := host.QuerySelector("template")
	require.NoError(t, err)
	assert.NotNil(t, tmpl, "unknown modes leave a plain template")
}

func TestParseFragment_SecondShadowTemplateStaysPlain(t *testing.T) {
	doc := NewDocument()
	frag, err := doc.ParseFragment(
		`<x-card><template shadowrootmode="open"><p>first</p></template><template shadowrootmode="open"><p>second</p></template></x-card>`,
		"div")
	require.NoError(t, err)

	host := frag.FirstChild()
	require.NotNil(t, host.Shadow())
	assert.Equal(t, "first", host.Shadow().Node().TextContent())
	tmpl, err := host.QuerySelector("template")
	require.NoError(t, err)
	assert.NotNil(t, tmpl)
}

func TestParseFragment_UpgradesDefinedTags(t *testing.T) {
	doc := NewDocument()
	p := &probe{}
	require.NoError(t, doc.Registry().Define(&Definition{
		Name: "x-item",
		New:  func(*Node) (Controller, error) { return p, nil },
	}))

	frag, err := doc.ParseFragment(`<x-item label="a"></x-item>`, "div")
	require.NoError(t, err)

	el := frag.FirstChild()
	assert.Same(t, p, ControllerOf(el))
	assert.Equal(t, 0, p.connects, "parsing does not connect")

	require.NoError(t, doc.Body().AppendChild(frag))
	assert.Equal(t, 1, p.connects)
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(
		`<!DOCTYPE html><html lang="en"><head><title>t</title></head><body class="page"><main id="app">hi</main></body></html>`))
	require.NoError(t, err)

	lang, _ := doc.DocumentElement().Attr("lang")
	assert.Equal(t, "en", lang)
	assert.True(t, doc.Body().HasClass("page"))
	title, err := doc.Head().QuerySelector("title")
	require.NoError(t, err)
	require.NotNil(t, title)
	assert.Equal(t, "t", title.TextContent())
	app, err := doc.Body().QuerySelector("#app")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.True(t, app.IsConnected())
}

func TestSetInnerHTML(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")
	require.NoError(t, doc.Body().AppendChild(el))

	require.NoError(t, el.SetInnerHTML(`<b>bold</b> text`))
	assert.Equal(t, "bold text", el.TextContent())

	// replacing again drops the old children
	require.NoError(t, el.SetInnerHTML(`<i>new</i>`))
	require.Len(t, el.Children(), 1)
	assert.Equal(t, "i", el.FirstChild().Tag())

	err := doc.CreateText("x").SetInnerHTML("<b>no</b>")
	assert.True(t, IsCode(err, ErrCodeHierarchy))
}

func TestRenderHTML_Escaping(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("p")
	el.SetAttr("title", `a"b`)
	require.NoError(t, el.AppendChild(doc.CreateText("1 < 2 & 3")))

	got, err := el.OuterHTML()
	require.NoError(t, err)
	assert.Equal(t, `<p title="a&#34;b">1 &lt; 2 &amp; 3</p>`, got)
}

func TestRenderHTML_DeclarativeRoundTrip(t *testing.T) {
	doc := NewDocument()
	host := doc.CreateElement("x-card")
	sr, err := host.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	require.NoError(t, sr.Node().SetInnerHTML(`<p>inside</p><slot></slot>`))
	require.NoError(t, host.AppendChild(doc.CreateText("light")))

	markup, err := host.OuterHTML()
	require.NoError(t, err)
	assert.Equal(t,
		`<x-card><template shadowrootmode="open"><p>inside</p><slot></slot></template>light</x-card>`,
		markup)

	// hydrating the output reconstructs the boundary
	doc2 := NewDocument()
	frag, err := doc2.ParseFragment(markup, "div")
	require.NoError(t, err)
	host2 := frag.FirstChild()
	require.NotNil(t, host2.Shadow())
	assert.Equal(t, "inside", host2.Shadow().Node().FirstChild().TextContent())
	assert.Equal(t, "light", host2.TextContent())
}

func TestRenderHTML_ClosedBoundaryOmitted(t *testing.T) {
	doc := NewDocument()
	host := doc.CreateElement("x-vault")
	sr, err := host.AttachShadow(ShadowClosed)
	require.NoError(t, err)
	require.NoError(t, sr.Node().SetInnerHTML(`<p>secret</p>`))
	require.NoError(t, host.AppendChild(doc.CreateText("public")))

	markup, err := host.OuterHTML()
	require.NoError(t, err)
	assert.Equal(t, `<x-vault>public</x-vault>`, markup)
}

func TestRenderHTML_Document(t *testing.T) {
	doc := NewDocument()
	require.NoError(t, doc.Body().SetInnerHTML(`<main>hi</main>`))

	var b strings.Builder
	require.NoError(t, RenderHTML(&b, doc.Node()))
	assert.Equal(t, `<!DOCTYPE html><html><head></head><body><main>hi</main></body></html>`, b.String())
}

func TestInnerHTML_ExcludesBoundary(t *testing.T) {
	doc := NewDocument()
	host := doc.CreateElement("x-card")
	sr, err := host.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	require.NoError(t, sr.Node().SetInnerHTML(`<p>inside</p>`))
	require.NoError(t, host.AppendChild(doc.CreateText("light")))

	inner, err := host.InnerHTML()
	require.NoError(t, err)
	assert.Equal(t, "light", inner)

	inner, err = sr.Node().InnerHTML()
	require.NoError(t, err)
	assert.Equal(t, "<p>inside</p>", inner)
}

func TestRenderHTML_VoidAndRawElements(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")
	require.NoError(t, el.SetInnerHTML(`<br><img src="x.png"><style>a > b { color: red }</style>`))

	got, err := el.InnerHTML()
	require.NoError(t, err)
	assert.Equal(t, `<br/><img src="x.png"/><style>a > b { color: red }</style>`, got)
}

package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeKind_String(t *testing.T) {
	assert.Equal(t, "element", KindElement.String())
	assert.Equal(t, "text", KindText.String())
	assert.Equal(t, "comment", KindComment.String())
	assert.Equal(t, "document", KindDocument.String())
	assert.Equal(t, "fragment", KindFragment.String())
	assert.Equal(t, "shadow-root", KindShadowRoot.String())
	assert.Equal(t, "unknown", NodeKind(99).String())
}

func TestDocument_Scaffold(t *testing.T) {
	doc := NewDocument()

	require.NotNil(t, doc.Node())
	assert.Equal(t, KindDocument, doc.Node().Kind())
	assert.Equal(t, "html", doc.DocumentElement().Tag())
	assert.Equal(t, "head", doc.Head().Tag())
	assert.Equal(t, "body", doc.Body().Tag())
	assert.Same(t, doc.DocumentElement(), doc.Head().Parent())
	assert.True(t, doc.Body().IsConnected())
}

func TestDocument_CreateElement(t *testing.T) {
	doc := NewDocument()

	el := doc.CreateElement("DIV")
	assert.Equal(t, KindElement, el.Kind())
	assert.Equal(t, "div", el.Tag())
	assert.Same(t, doc, el.OwnerDocument())
	assert.Nil(t, el.Parent())
	assert.False(t, el.IsConnected())
}

func TestNode_AppendChild(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("ul")
	a := doc.CreateElement("li")
	b := doc.CreateElement("li")

	require.NoError(t, parent.AppendChild(a))
	require.NoError(t, parent.AppendChild(b))

	assert.Same(t, a, parent.FirstChild())
	assert.Same(t, b, parent.LastChild())
	assert.Same(t, b, a.NextSibling())
	assert.Same(t, a, b.PrevSibling())
	assert.Same(t, parent, a.Parent())
	assert.Len(t, parent.Children(), 2)
}

func TestNode_InsertBefore(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("ul")
	a := doc.CreateElement("li")
	c := doc.CreateElement("li")
	require.NoError(t, parent.AppendChild(a))
	require.NoError(t, parent.AppendChild(c))

	b := doc.CreateElement("li")
	require.NoError(t, parent.InsertBefore(b, c))

	children := parent.Children()
	require.Len(t, children, 3)
	assert.Same(t, a, children[0])
	assert.Same(t, b, children[1])
	assert.Same(t, c, children[2])

	// nil reference appends
	d := doc.CreateElement("li")
	require.NoError(t, parent.InsertBefore(d, nil))
	assert.Same(t, d, parent.LastChild())

	// reference must be a child of the parent
	stranger := doc.CreateElement("li")
	err := parent.InsertBefore(doc.CreateElement("li"), stranger)
	assert.True(t, IsCode(err, ErrCodeHierarchy))
}

func TestNode_RemoveChild(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("div")
	child := doc.CreateElement("span")
	require.NoError(t, parent.AppendChild(child))

	require.NoError(t, parent.RemoveChild(child))
	assert.Nil(t, child.Parent())
	assert.Nil(t, parent.FirstChild())

	err := parent.RemoveChild(child)
	assert.True(t, IsCode(err, ErrCodeHierarchy))
}

func TestNode_ReparentMovesNode(t *testing.T) {
	doc := NewDocument()
	a := doc.CreateElement("div")
	b := doc.CreateElement("div")
	child := doc.CreateElement("span")
	require.NoError(t, a.AppendChild(child))

	require.NoError(t, b.AppendChild(child))

	assert.Same(t, b, child.Parent())
	assert.Nil(t, a.FirstChild())
	assert.Same(t, child, b.FirstChild())
}

func TestNode_HierarchyRules(t *testing.T) {
	doc := NewDocument()

	// a node cannot contain itself
	a := doc.CreateElement("div")
	b := doc.CreateElement("div")
	require.NoError(t, a.AppendChild(b))
	err := b.AppendChild(a)
	assert.True(t, IsCode(err, ErrCodeHierarchy))

	// text cannot have children
	text := doc.CreateText("x")
	err = text.AppendChild(doc.CreateElement("div"))
	assert.True(t, IsCode(err, ErrCodeHierarchy))

	// documents reject text and second root elements
	err = doc.Node().AppendChild(doc.CreateText("x"))
	assert.True(t, IsCode(err, ErrCodeHierarchy))
	err = doc.Node().AppendChild(doc.CreateElement("html"))
	assert.True(t, IsCode(err, ErrCodeHierarchy))

	// document and boundary root nodes are not insertable
	err = a.AppendChild(doc.Node())
	assert.True(t, IsCode(err, ErrCodeHierarchy))
	host := doc.CreateElement("x-host")
	sr, errAttach := host.AttachShadow(ShadowOpen)
	require.NoError(t, errAttach)
	err = a.AppendChild(sr.Node())
	assert.True(t, IsCode(err, ErrCodeHierarchy))
}

func TestNode_FragmentInsertMovesChildren(t *testing.T) {
	doc := NewDocument()
	frag := doc.CreateFragment()
	a := doc.CreateElement("i")
	b := doc.CreateElement("b")
	require.NoError(t, frag.AppendChild(a))
	require.NoError(t, frag.AppendChild(b))

	parent := doc.CreateElement("p")
	require.NoError(t, parent.AppendChild(frag))

	assert.Nil(t, frag.FirstChild())
	children := parent.Children()
	require.Len(t, children, 2)
	assert.Same(t, a, children[0])
	assert.Same(t, b, children[1])
	assert.Same(t, parent, a.Parent())
}

func TestNode_Attributes(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("input")

	_, ok := el.Attr("type")
	assert.False(t, ok)

	el.SetAttr("Type", "text")
	v, ok := el.Attr("TYPE")
	assert.True(t, ok)
	assert.Equal(t, "text", v)
	assert.True(t, el.HasAttr("type"))

	el.SetAttr("type", "number")
	v, _ = el.Attr("type")
	assert.Equal(t, "number", v)
	assert.Len(t, el.Attrs(), 1)

	el.RemoveAttr("type")
	assert.False(t, el.HasAttr("type"))
	assert.Nil(t, el.Attrs())
}

func TestNode_ClassHelpers(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")

	el.SetAttr("class", "card active")
	assert.True(t, el.HasClass("card"))
	assert.True(t, el.HasClass("active"))
	assert.False(t, el.HasClass("act"))

	el.AddClass("selected")
	assert.True(t, el.HasClass("selected"))
	el.AddClass("selected")
	v, _ := el.Attr("class")
	assert.Equal(t, "card active selected", v)
	assert.Equal(t, []string{"card", "active", "selected"}, el.Classes())

	el.SetAttr("id", "main")
	assert.Equal(t, "main", el.ID())
}

func TestNode_TextContent(t *testing.T) {
	doc := NewDocument()
	p := doc.CreateElement("p")
	require.NoError(t, p.AppendChild(doc.CreateText("hello ")))
	em := doc.CreateElement("em")
	require.NoError(t, em.AppendChild(doc.CreateText("world")))
	require.NoError(t, p.AppendChild(em))
	require.NoError(t, p.AppendChild(doc.CreateComment("ignored")))

	assert.Equal(t, "hello world", p.TextContent())

	require.NoError(t, p.SetTextContent("plain"))
	assert.Equal(t, "plain", p.TextContent())
	require.Len(t, p.Children(), 1)
	assert.Equal(t, KindText, p.FirstChild().Kind())

	require.NoError(t, p.SetTextContent(""))
	assert.Nil(t, p.FirstChild())
}

func TestNode_TextContentExcludesBoundary(t *testing.T) {
	doc := NewDocument()
	host := doc.CreateElement("x-card")
	sr, err := host.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	require.NoError(t, sr.Node().AppendChild(doc.CreateText("inside")))
	require.NoError(t, host.AppendChild(doc.CreateText("outside")))

	assert.Equal(t, "outside", host.TextContent())
}

func TestNode_IsConnectedAndRoot(t *testing.T) {
	doc := NewDocument()
	el := doc.CreateElement("div")
	assert.False(t, el.IsConnected())
	assert.Same(t, el, el.Root())

	require.NoError(t, doc.Body().AppendChild(el))
	assert.True(t, el.IsConnected())
	assert.Same(t, doc.Node(), el.Root())

	// content inside a boundary roots at the boundary, not the document
	host := doc.CreateElement("x-host")
	require.NoError(t, doc.Body().AppendChild(host))
	sr, err := host.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	inner := doc.CreateElement("span")
	require.NoError(t, sr.Node().AppendChild(inner))

	assert.Same(t, sr.Node(), inner.Root())
	assert.True(t, inner.IsConnected())

	host.Detach()
	assert.False(t, inner.IsConnected())
}

func TestNode_Contains(t *testing.T) {
	doc := NewDocument()
	a := doc.CreateElement("div")
	b := doc.CreateElement("div")
	c := doc.CreateElement("div")
	require.NoError(t, a.AppendChild(b))
	require.NoError(t, b.AppendChild(c))

	assert.True(t, a.Contains(a))
	assert.True(t, a.Contains(c))
	assert.False(t, c.Contains(a))

	// containment does not cross a boundary
	sr, err := a.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	inner := doc.CreateElement("span")
	require.NoError(t, sr.Node().AppendChild(inner))
	assert.False(t, a.Contains(inner))
}

func TestNode_ReplaceChildren(t *testing.T) {
	doc := NewDocument()
	parent := doc.CreateElement("div")
	require.NoError(t, parent.AppendChild(doc.CreateElement("old")))

	a := doc.CreateElement("i")
	b := doc.CreateText("x")
	require.NoError(t, parent.ReplaceChildren(a, b))

	children := parent.Children()
	require.Len(t, children, 2)
	assert.Same(t, a, children[0])
	assert.Same(t, b, children[1])

	require.NoError(t, parent.ReplaceChildren())
	assert.Nil(t, parent.FirstChild())
}

func TestLifecycle_ConnectedOncePerConnection(t *testing.T) {
	doc := NewDocument()
	p := &probe{}
	el := doc.CreateElement("x-widget")
	require.NoError(t, el.Bind(p))

	require.NoError(t, doc.Body().AppendChild(el))
	assert.Equal(t, 1, p.connects)

	el.Detach()
	assert.Equal(t, 1, p.disconnects)

	require.NoError(t, doc.Body().AppendChild(el))
	assert.Equal(t, 2, p.connects)
}

func TestLifecycle_DetachedMutationsFireNothing(t *testing.T) {
	doc := NewDocument()
	p := &probe{}
	el := doc.CreateElement("x-widget")
	require.NoError(t, el.Bind(p))

	holder := doc.CreateElement("div")
	require.NoError(t, holder.AppendChild(el))
	el.Detach()

	assert.Equal(t, 0, p.connects)
	assert.Equal(t, 0, p.disconnects)
}

func TestLifecycle_TreeOrder(t *testing.T) {
	doc := NewDocument()
	var order []string
	outer := doc.CreateElement("x-outer")
	inner := doc.CreateElement("x-inner")
	require.NoError(t, outer.AppendChild(inner))
	require.NoError(t, outer.Bind(&probe{onConnect: func(*Node) { order = append(order, "outer") }}))
	require.NoError(t, inner.Bind(&probe{onConnect: func(*Node) { order = append(order, "inner") }}))

	require.NoError(t, doc.Body().AppendChild(outer))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestLifecycle_ReentrantInsertDoesNotDoubleFire(t *testing.T) {
	doc := NewDocument()
	grandchild := doc.CreateElement("x-grandchild")
	gp := &probe{}
	require.NoError(t, grandchild.Bind(gp))

	// the parent's connection reaction inserts the grandchild under a
	// node the traversal has not reached yet
	parent := doc.CreateElement("x-parent")
	late := doc.CreateElement("div")
	require.NoError(t, parent.AppendChild(late))
	require.NoError(t, parent.Bind(&probe{onConnect: func(el *Node) {
		_ = late.AppendChild(grandchild)
	}}))

	require.NoError(t, doc.Body().AppendChild(parent))
	assert.Equal(t, 1, gp.connects)
}

func TestLifecycle_BoundaryContentConnectsWithHost(t *testing.T) {
	doc := NewDocument()
	host := doc.CreateElement("x-host")
	sr, err := host.AttachShadow(ShadowOpen)
	require.NoError(t, err)
	inner := doc.CreateElement("x-inner")
	p := &probe{}
	require.NoError(t, inner.Bind(p))
	require.NoError(t, sr.Node().AppendChild(inner))

	require.NoError(t, doc.Body().AppendChild(host))
	assert.Equal(t, 1, p.connects)

	host.Detach()
	assert.Equal(t, 1, p.disconnects)
}

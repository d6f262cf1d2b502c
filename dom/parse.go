package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup into a fragment owned by the document,
// using the html5 fragment parsing algorithm with the given context
// element tag. An empty context parses as "div" content.
//
// Templates carrying a shadowrootmode attribute become isolation
// boundaries on their parent element, matching declarative shadow
// markup. A template whose host already has a boundary, or whose mode
// is unknown, stays a plain template element.
func (d *Document) ParseFragment(markup, context string) (*Node, error) {
	if context == "" {
		context = "div"
	}
	context = strings.ToLower(context)
	ctx := &html.Node{
		Type:     html.ElementNode,
		Data:     context,
		DataAtom: atom.Lookup([]byte(context)),
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, NewParseError("fragment", err)
	}
	frag := d.CreateFragment()
	for _, hn := range nodes {
		d.graft(hn, frag)
	}
	return frag, nil
}

// ParseDocument parses a complete utf-8 document. Callers reading
// markup in a declared legacy encoding should wrap the reader with a
// charset-aware decoder first.
func ParseDocument(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, NewParseError("document", err)
	}
	d := NewDocument()
	var htmlNode *html.Node
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			htmlNode = c
			break
		}
	}
	if htmlNode == nil {
		return d, nil
	}
	copyAttrs(htmlNode, d.docEl)
	for c := htmlNode.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Head:
			copyAttrs(c, d.head)
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				d.graft(gc, d.head)
			}
		case atom.Body:
			copyAttrs(c, d.body)
			for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
				d.graft(gc, d.body)
			}
		}
	}
	return d, nil
}

// SetInnerHTML replaces the node's children with parsed markup, using
// the node's own tag as the fragment parsing context. For a boundary
// root the context is the host's tag.
func (n *Node) SetInnerHTML(markup string) error {
	if n.document == nil {
		return NewParseError("node has no document", nil)
	}
	var context string
	switch n.kind {
	case KindElement:
		context = n.data
	case KindShadowRoot:
		context = n.owner.host.data
	case KindFragment:
		context = "div"
	default:
		return NewHierarchyError("node cannot hold markup", n.kind, "set-inner-html")
	}
	frag, err := n.document.ParseFragment(markup, context)
	if err != nil {
		return err
	}
	return n.ReplaceChildren(frag)
}

// graft converts a parsed html node into the document's tree under
// parent. Elements connect before their children arrive, the same
// streaming order a parser-driven tree sees.
func (d *Document) graft(hn *html.Node, parent *Node) {
	switch hn.Type {
	case html.TextNode:
		_ = parent.AppendChild(d.CreateText(hn.Data))
	case html.CommentNode:
		_ = parent.AppendChild(d.CreateComment(hn.Data))
	case html.ElementNode:
		if mode, ok := shadowTemplateMode(hn); ok && parent.kind == KindElement {
			if sr, err := parent.AttachShadow(mode); err == nil {
				for c := hn.FirstChild; c != nil; c = c.NextSibling {
					d.graft(c, sr.Node())
				}
				return
			}
		}
		el := d.CreateElement(hn.Data)
		for _, a := range hn.Attr {
			el.SetAttr(a.Key, a.Val)
		}
		_ = parent.AppendChild(el)
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			d.graft(c, el)
		}
	case html.DocumentNode:
		for c := hn.FirstChild; c != nil; c = c.NextSibling {
			d.graft(c, parent)
		}
	}
}

// shadowTemplateMode reports whether the parsed element is a
// declarative shadow template and, if so, its mode.
func shadowTemplateMode(hn *html.Node) (ShadowMode, bool) {
	if hn.DataAtom != atom.Template && hn.Data != "template" {
		return ShadowOpen, false
	}
	for _, a := range hn.Attr {
		if a.Key == "shadowrootmode" {
			m, err := ParseShadowMode(a.Val)
			if err != nil {
				return ShadowOpen, false
			}
			return m, true
		}
	}
	return ShadowOpen, false
}

func copyAttrs(hn *html.Node, n *Node) {
	for _, a := range hn.Attr {
		n.SetAttr(a.Key, a.Val)
	}
}

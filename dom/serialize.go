package dom

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RenderHTML serializes the node as HTML. Open boundaries are emitted
// as declarative shadow templates placed before the host's light
// children, so parsing the output reconstructs the boundary; closed
// boundaries are omitted. Documents render with a doctype. Escaping
// follows the html5 serialization rules.
func RenderHTML(w io.Writer, n *Node) error {
	switch n.kind {
	case KindFragment, KindShadowRoot:
		for c := n.firstChild; c != nil; c = c.nextSibling {
			if err := html.Render(w, toHTML(c)); err != nil {
				return err
			}
		}
		return nil
	default:
		return html.Render(w, toHTML(n))
	}
}

// OuterHTML returns the node's serialized markup.
func (n *Node) OuterHTML() (string, error) {
	var b strings.Builder
	if err := RenderHTML(&b, n); err != nil {
		return "", err
	}
	return b.String(), nil
}

// InnerHTML returns the serialized markup of the node's children. A
// host's boundary belongs to its outer markup, not its inner markup.
func (n *Node) InnerHTML() (string, error) {
	var b strings.Builder
	for c := n.firstChild; c != nil; c = c.nextSibling {
		if err := RenderHTML(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// toHTML mirrors the node into an x/net/html tree for rendering.
// Fragment and boundary kinds never appear as children, so the default
// arm only covers callers handing in a node cut loose from a tree.
func toHTML(n *Node) *html.Node {
	switch n.kind {
	case KindText:
		return &html.Node{Type: html.TextNode, Data: n.data}
	case KindComment:
		return &html.Node{Type: html.CommentNode, Data: n.data}
	case KindDocument:
		doc := &html.Node{Type: html.DocumentNode}
		doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
		for c := n.firstChild; c != nil; c = c.nextSibling {
			doc.AppendChild(toHTML(c))
		}
		return doc
	case KindElement:
		el := &html.Node{
			Type:     html.ElementNode,
			Data:     n.data,
			DataAtom: atom.Lookup([]byte(n.data)),
		}
		for _, a := range n.attrs {
			el.Attr = append(el.Attr, html.Attribute{Key: a.Key, Val: a.Val})
		}
		if n.shadow != nil && n.shadow.mode == ShadowOpen {
			tmpl := &html.Node{
				Type:     html.ElementNode,
				Data:     "template",
				DataAtom: atom.Template,
				Attr:     []html.Attribute{{Key: "shadowrootmode", Val: "open"}},
			}
			for c := n.shadow.root.firstChild; c != nil; c = c.nextSibling {
				tmpl.AppendChild(toHTML(c))
			}
			el.AppendChild(tmpl)
		}
		for c := n.firstChild; c != nil; c = c.nextSibling {
			el.AppendChild(toHTML(c))
		}
		return el
	default:
		return &html.Node{Type: html.TextNode}
	}
}

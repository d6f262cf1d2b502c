package mount

import "github.com/umbralabs/umbra/dom"

var overlaySel = dom.MustSelector("[data-overlay-root]")

// OverlayRoot resolves where floating content anchored to n belongs:
// the root of n's own tree, so overlays opened from inside a boundary
// stay inside that boundary, or the document body at top level. A
// [data-overlay-root] element within the resolved scope takes
// precedence, giving components a dedicated layer to stack overlays in.
//
// Resolution is recomputed from current structure on every call and
// holds no caches, so anchors may move between calls and each overlay
// placement sees the tree as it stands. A detached anchor fails with
// ErrDetached instead of guessing a container.
func OverlayRoot(n *dom.Node) (*dom.Node, error) {
	if n == nil || !n.IsConnected() {
		return nil, ErrDetached
	}
	scope := n.Root()
	if scope.Kind() == dom.KindDocument {
		scope = n.OwnerDocument().Body()
	}
	if c := overlaySel.First(scope); c != nil {
		return c, nil
	}
	return scope, nil
}

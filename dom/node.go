package dom

import (
	"strings"
)

// NodeKind identifies what a Node represents in the containment tree.
type NodeKind int

const (
	// KindElement is a named element with attributes and children.
	KindElement NodeKind = iota
	// KindText is a leaf carrying character data.
	KindText
	// KindComment is a leaf carrying comment data.
	KindComment
	// KindDocument is the root of a document tree.
	KindDocument
	// KindFragment is a parentless container whose children are moved,
	// not the fragment itself, when inserted.
	KindFragment
	// KindShadowRoot is the root of an isolation boundary's tree.
	KindShadowRoot
)

// String returns a human-readable kind name for logs and errors.
func (k NodeKind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindText:
		return "text"
	case KindComment:
		return "comment"
	case KindDocument:
		return "document"
	case KindFragment:
		return "fragment"
	case KindShadowRoot:
		return "shadow-root"
	default:
		return "unknown"
	}
}

// Attribute is a single key/value attribute on an element. Keys are
// stored lowercase.
type Attribute struct {
	Key string
	Val string
}

// Node is a single node in a containment tree. Nodes are created through a
// Document and are not safe for concurrent use; see the package comment.
//
// The zero value is not usable.
type Node struct {
	kind  NodeKind
	data  string // tag name for elements, character data for text/comment
	attrs []Attribute

	parent      *Node
	firstChild  *Node
	lastChild   *Node
	prevSibling *Node
	nextSibling *Node

	document *Document

	// shadow is the boundary attached to this element, if any.
	shadow *ShadowRoot
	// owner is set on the boundary's root node and points back at it.
	owner *ShadowRoot

	// assignedSlot is the slot this node is projected into, if its
	// parent hosts a boundary whose tree contains a matching slot.
	assignedSlot *Node
	// assigned holds the nodes projected into this slot element.
	assigned []*Node

	listeners map[string][]*Listener
	controller Controller
	definition *Definition

	// notified tracks whether Connected has been delivered for the
	// current connection, so reentrant mutation during lifecycle
	// callbacks cannot double-fire reactions.
	notified bool
}

// Kind returns the node's kind.
func (n *Node) Kind() NodeKind { return n.kind }

// Tag returns the element's tag name, or "" for non-elements.
func (n *Node) Tag() string {
	if n.kind == KindElement {
		return n.data
	}
	return ""
}

// Data returns the raw node data: the tag for elements, the character
// data for text and comment nodes.
func (n *Node) Data() string { return n.data }

// SetData replaces the character data of a text or comment node. It is a
// no-op for other kinds.
func (n *Node) SetData(s string) {
	if n.kind == KindText || n.kind == KindComment {
		n.data = s
	}
}

// Parent returns the node's parent, or nil at a tree root. The parent of
// a boundary's top node is nil; use Root and ShadowRoot.Host to cross
// boundaries explicitly.
func (n *Node) Parent() *Node { return n.parent }

// FirstChild returns the first child, or nil.
func (n *Node) FirstChild() *Node { return n.firstChild }

// LastChild returns the last child, or nil.
func (n *Node) LastChild() *Node { return n.lastChild }

// PrevSibling returns the previous sibling, or nil.
func (n *Node) PrevSibling() *Node { return n.prevSibling }

// NextSibling returns the next sibling, or nil.
func (n *Node) NextSibling() *Node { return n.nextSibling }

// Children returns the node's children as a fresh slice, safe to range
// over while mutating the tree.
func (n *Node) Children() []*Node {
	var out []*Node
	for c := n.firstChild; c != nil; c = c.nextSibling {
		out = append(out, c)
	}
	return out
}

// OwnerDocument returns the document this node belongs to. Nodes created
// by a Document keep their owner even while detached.
func (n *Node) OwnerDocument() *Document { return n.document }

// Shadow returns the boundary attached to this element. Closed
// boundaries return nil unless the caller already holds the ShadowRoot;
// this mirrors how closed mode hides the boundary from traversal.
func (n *Node) Shadow() *ShadowRoot {
	if n.shadow != nil && n.shadow.mode == ShadowClosed {
		return nil
	}
	return n.shadow
}

// AssignedSlot returns the slot element this node is currently projected
// into, or nil. Assignment into a closed boundary is not exposed.
func (n *Node) AssignedSlot() *Node {
	s := n.assignedSlot
	if s == nil {
		return nil
	}
	if b := boundaryOf(s); b != nil && b.mode == ShadowClosed {
		return nil
	}
	return s
}

// Root returns the root of the node's own tree: the document node, the
// boundary's top node, or the detached subtree's top node. It never
// crosses an isolation boundary.
func (n *Node) Root() *Node {
	cur := n
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}

// IsConnected reports whether the node's shadow-including root is its
// document, i.e. whether the node participates in the live tree.
func (n *Node) IsConnected() bool {
	for cur := n; cur != nil; {
		switch {
		case cur.kind == KindDocument:
			return true
		case cur.kind == KindShadowRoot:
			cur = cur.owner.host
		default:
			cur = cur.parent
		}
	}
	return false
}

// Contains reports whether other is n or a descendant of n within the
// same tree. It does not cross isolation boundaries.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// shadowIncludes reports whether root's shadow-including tree contains n:
// the climb from n crosses from boundary roots to their hosts.
func shadowIncludes(root, n *Node) bool {
	for cur := n; cur != nil; {
		if cur == root {
			return true
		}
		if cur.kind == KindShadowRoot {
			cur = cur.owner.host
			continue
		}
		cur = cur.parent
	}
	return false
}

// boundaryOf returns the boundary whose tree contains n, or nil when n
// lives in the document tree or a detached plain subtree.
func boundaryOf(n *Node) *ShadowRoot {
	root := n.Root()
	if root.kind == KindShadowRoot {
		return root.owner
	}
	return nil
}

// Attr returns the value of the named attribute and whether it is set.
// Lookup is case-insensitive.
func (n *Node) Attr(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, a := range n.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasAttr reports whether the named attribute is present.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// Attrs returns a copy of the element's attributes.
func (n *Node) Attrs() []Attribute {
	if len(n.attrs) == 0 {
		return nil
	}
	out := make([]Attribute, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// SetAttr sets an attribute, replacing any existing value. Setting the
// same value again is a no-op, so attribute observers see only real
// changes. Slot-affecting attributes trigger reassignment of the
// relevant boundary.
func (n *Node) SetAttr(key, val string) {
	if n.kind != KindElement {
		return
	}
	key = strings.ToLower(key)
	old := ""
	found := false
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			old, found = n.attrs[i].Val, true
			if old == val {
				return
			}
			n.attrs[i].Val = val
			break
		}
	}
	if !found {
		n.attrs = append(n.attrs, Attribute{Key: key, Val: val})
	}
	n.attrChanged(key, old, val)
}

// RemoveAttr removes an attribute if present.
func (n *Node) RemoveAttr(key string) {
	key = strings.ToLower(key)
	for i := range n.attrs {
		if n.attrs[i].Key == key {
			old := n.attrs[i].Val
			n.attrs = append(n.attrs[:i], n.attrs[i+1:]...)
			n.attrChanged(key, old, "")
			return
		}
	}
}

// attrChanged runs slot maintenance and attribute observer dispatch
// after an attribute mutation.
func (n *Node) attrChanged(key, old, val string) {
	switch {
	case key == "slot" && n.parent != nil && n.parent.shadow != nil:
		n.parent.shadow.assign()
	case key == "name" && n.data == "slot":
		if b := boundaryOf(n); b != nil {
			b.assign()
		}
	}
	if obs, ok := n.controller.(AttributeObserver); ok && n.observesAttr(key) {
		obs.AttributeChanged(n, key, old, val)
	}
}

// observesAttr reports whether attribute observer callbacks fire for the
// given key. Elements bound through a registry definition observe only
// the definition's declared attributes; manually bound controllers
// observe everything.
func (n *Node) observesAttr(key string) bool {
	if n.definition == nil {
		return true
	}
	_, ok := n.definition.observed[key]
	return ok
}

// ID returns the element's id attribute, or "".
func (n *Node) ID() string {
	v, _ := n.Attr("id")
	return v
}

// Classes returns the element's class names in attribute order.
func (n *Node) Classes() []string {
	v, _ := n.Attr("class")
	return strings.Fields(v)
}

// HasClass reports whether the element's class attribute contains the
// given class name.
func (n *Node) HasClass(name string) bool {
	v, _ := n.Attr("class")
	for _, f := range strings.Fields(v) {
		if f == name {
			return true
		}
	}
	return false
}

// AddClass appends a class name if not already present.
func (n *Node) AddClass(name string) {
	if name == "" || n.HasClass(name) {
		return
	}
	v, _ := n.Attr("class")
	if v == "" {
		n.SetAttr("class", name)
		return
	}
	n.SetAttr("class", v+" "+name)
}

// TextContent returns the concatenated character data of the node's
// descendants. Comment data is excluded, as is the content of any
// attached boundary.
func (n *Node) TextContent() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	if n.kind == KindText {
		b.WriteString(n.data)
		return
	}
	for c := n.firstChild; c != nil; c = c.nextSibling {
		c.appendText(b)
	}
}

// SetTextContent replaces the node's children with a single text node.
func (n *Node) SetTextContent(s string) error {
	if n.document == nil {
		return NewHierarchyError("node has no document", n.kind, "set-text")
	}
	if s == "" {
		return n.ReplaceChildren()
	}
	return n.ReplaceChildren(n.document.CreateText(s))
}

// AppendChild appends child as the last child of n. Fragment children
// are moved out of the fragment one by one. A connected child is first
// removed from its old position, with disconnection reactions, then
// inserted, with connection reactions.
func (n *Node) AppendChild(child *Node) error {
	return n.insert(child, nil)
}

// InsertBefore inserts child before ref. A nil ref appends.
func (n *Node) InsertBefore(child, ref *Node) error {
	return n.insert(child, ref)
}

// RemoveChild removes child from n, firing disconnection reactions when
// the child was connected.
func (n *Node) RemoveChild(child *Node) error {
	if child.parent != n {
		return NewHierarchyError("node is not a child of the given parent", child.kind, "remove")
	}
	child.remove()
	return nil
}

// Detach removes the node from its parent, if any.
func (n *Node) Detach() {
	if n.parent != nil {
		n.remove()
	}
}

// ReplaceChildren removes all current children and appends the given
// nodes in order.
func (n *Node) ReplaceChildren(nodes ...*Node) error {
	for _, c := range n.Children() {
		c.remove()
	}
	for _, c := range nodes {
		if err := n.insert(c, nil); err != nil {
			return err
		}
	}
	return nil
}

// insert links child into n's child list before ref, after validating
// the containment rules and detaching the child from any old position.
func (n *Node) insert(child, ref *Node) error {
	if child == nil {
		return NewHierarchyError("cannot insert a nil node", n.kind, "insert")
	}
	switch n.kind {
	case KindElement, KindFragment, KindShadowRoot, KindDocument:
	default:
		return NewHierarchyError("node cannot have children", n.kind, "insert")
	}
	switch child.kind {
	case KindDocument, KindShadowRoot:
		return NewHierarchyError("node cannot be inserted", child.kind, "insert")
	}
	if child.Contains(n) {
		return NewHierarchyError("cannot insert a node into its own subtree", child.kind, "insert")
	}
	if ref != nil && ref.parent != n {
		return NewHierarchyError("reference node is not a child of the parent", ref.kind, "insert")
	}
	if n.kind == KindDocument {
		if child.kind == KindText {
			return NewHierarchyError("document cannot contain text", child.kind, "insert")
		}
		if child.kind == KindElement {
			for c := n.firstChild; c != nil; c = c.nextSibling {
				if c.kind == KindElement {
					return NewHierarchyError("document already has a root element", child.kind, "insert")
				}
			}
		}
	}

	if child.kind == KindFragment {
		for _, c := range child.Children() {
			if err := n.insert(c, ref); err != nil {
				return err
			}
		}
		return nil
	}

	child.Detach()
	child.link(n, ref)
	if n.document != nil {
		child.adopt(n.document)
	}

	// Reassign slots: the host boundary when inserting light children,
	// and the enclosing boundary when the inserted subtree brings slots
	// with it.
	if n.shadow != nil {
		n.shadow.assign()
	}
	if b := boundaryOf(n); b != nil {
		b.assign()
	}

	if child.IsConnected() {
		child.notifyConnected()
	}
	return nil
}

// link splices child into n's child list before ref without any
// bookkeeping beyond the sibling pointers.
func (child *Node) link(n, ref *Node) {
	child.parent = n
	if ref == nil {
		child.prevSibling = n.lastChild
		child.nextSibling = nil
		if n.lastChild != nil {
			n.lastChild.nextSibling = child
		} else {
			n.firstChild = child
		}
		n.lastChild = child
		return
	}
	child.nextSibling = ref
	child.prevSibling = ref.prevSibling
	if ref.prevSibling != nil {
		ref.prevSibling.nextSibling = child
	} else {
		n.firstChild = child
	}
	ref.prevSibling = child
}

// remove unlinks the node from its parent and fires disconnection
// reactions when it was connected.
func (n *Node) remove() {
	parent := n.parent
	wasConnected := n.IsConnected()

	if n.prevSibling != nil {
		n.prevSibling.nextSibling = n.nextSibling
	} else {
		parent.firstChild = n.nextSibling
	}
	if n.nextSibling != nil {
		n.nextSibling.prevSibling = n.prevSibling
	} else {
		parent.lastChild = n.prevSibling
	}
	n.parent, n.prevSibling, n.nextSibling = nil, nil, nil

	// Only slot links that cross the subtree edge are cleared here.
	// Projections internal to boundaries hosted inside the subtree
	// travel with it untouched.
	if s := n.assignedSlot; s != nil {
		n.assignedSlot = nil
		for i, a := range s.assigned {
			if a == n {
				s.assigned = append(s.assigned[:i], s.assigned[i+1:]...)
				break
			}
		}
	}
	n.clearCarriedSlots()
	if parent.shadow != nil {
		parent.shadow.assign()
	}
	if b := boundaryOf(parent); b != nil {
		b.assign()
	}

	if wasConnected {
		n.notifyDisconnected()
	}
}

// clearCarriedSlots unassigns slots that are plain descendants of a
// removed node. Such slots belonged to the enclosing boundary's tree, so
// every node projected into them lives outside the removed subtree. The
// walk stays in the plain tree: slots inside nested boundaries keep
// their assignments.
func (n *Node) clearCarriedSlots() {
	if n.kind == KindElement && n.data == "slot" {
		for _, a := range n.assigned {
			a.assignedSlot = nil
		}
		n.assigned = nil
	}
	for c := n.firstChild; c != nil; c = c.nextSibling {
		c.clearCarriedSlots()
	}
}

// adopt moves the node, its descendants, and any attached boundary trees
// into the given document.
func (n *Node) adopt(d *Document) {
	if n.document == d {
		return
	}
	n.document = d
	if n.shadow != nil {
		n.shadow.root.adopt(d)
	}
	for c := n.firstChild; c != nil; c = c.nextSibling {
		c.adopt(d)
	}
}

// notifyConnected delivers Connected to the subtree in shadow-including
// tree order. A set notified flag means the node already received its
// reaction during this connection, typically via reentrant insertion
// inside another node's Connected callback, so its subtree is skipped.
// Plain elements whose tag gained a definition while they sat detached
// are upgraded here, on the way into the live tree.
func (n *Node) notifyConnected() {
	if n.notified {
		return
	}
	n.notified = true
	if n.kind == KindElement && n.controller == nil && n.document != nil {
		if def, ok := n.document.registry.Get(n.data); ok {
			n.document.registry.instantiate(n, def)
		}
	}
	if n.controller != nil {
		n.controller.Connected(n)
	}
	if n.shadow != nil {
		for _, c := range n.shadow.root.Children() {
			c.notifyConnected()
		}
	}
	for _, c := range n.Children() {
		c.notifyConnected()
	}
}

// notifyDisconnected mirrors notifyConnected for removal.
func (n *Node) notifyDisconnected() {
	if !n.notified {
		return
	}
	n.notified = false
	if n.controller != nil {
		n.controller.Disconnected(n)
	}
	if n.shadow != nil {
		for _, c := range n.shadow.root.Children() {
			c.notifyDisconnected()
		}
	}
	for _, c := range n.Children() {
		c.notifyDisconnected()
	}
}

package dom

import "fmt"

// ShadowMode controls whether an isolation boundary is reachable from
// its host element.
type ShadowMode int

const (
	// ShadowOpen boundaries are returned by Node.Shadow and serialized
	// as declarative templates.
	ShadowOpen ShadowMode = iota
	// ShadowClosed boundaries are hidden from traversal and omitted
	// from serialization. Only code holding the ShadowRoot handle can
	// reach their content.
	ShadowClosed
)

// String returns the serialized mode name.
func (m ShadowMode) String() string {
	if m == ShadowClosed {
		return "closed"
	}
	return "open"
}

// ParseShadowMode maps a serialized mode name to a ShadowMode.
func ParseShadowMode(s string) (ShadowMode, error) {
	switch s {
	case "open":
		return ShadowOpen, nil
	case "closed":
		return ShadowClosed, nil
	default:
		return ShadowOpen, NewBoundaryError(fmt.Sprintf("unknown shadow mode %q", s), KindShadowRoot, "parse-mode")
	}
}

// ShadowRoot is an isolation boundary: a second tree attached to a host
// element. Content inside the boundary is invisible to plain traversal
// of the host's tree, selectors never match across it, and events
// crossing it are retargeted to the host. The host's own children stay
// in the host's tree and are projected into the boundary through slots.
type ShadowRoot struct {
	host *Node
	root *Node
	mode ShadowMode
}

// AttachShadow attaches an isolation boundary to the element. An
// element hosts at most one boundary for its lifetime: a second attach
// fails, and the boundary is kept across disconnection and reconnection
// of the host.
func (n *Node) AttachShadow(mode ShadowMode) (*ShadowRoot, error) {
	if n.kind != KindElement {
		return nil, NewBoundaryError("only elements can host a boundary", n.kind, "attach-shadow")
	}
	if n.shadow != nil {
		return nil, NewBoundaryError("element already hosts a boundary", n.kind, "attach-shadow")
	}
	root := &Node{kind: KindShadowRoot, document: n.document}
	sr := &ShadowRoot{host: n, root: root, mode: mode}
	root.owner = sr
	n.shadow = sr
	return sr, nil
}

// Host returns the element the boundary is attached to.
func (s *ShadowRoot) Host() *Node { return s.host }

// Node returns the boundary tree's root node. Children appended here
// form the boundary's content.
func (s *ShadowRoot) Node() *Node { return s.root }

// Mode returns the boundary's mode.
func (s *ShadowRoot) Mode() ShadowMode { return s.mode }

// AssignedNodes returns the nodes projected into this slot element, in
// host child order, or nil for non-slot elements.
func (n *Node) AssignedNodes() []*Node {
	if len(n.assigned) == 0 {
		return nil
	}
	out := make([]*Node, len(n.assigned))
	copy(out, n.assigned)
	return out
}

// slots collects the slot elements of the boundary tree in tree order.
// The walk stays inside the boundary: slots belonging to nested
// boundaries are not included.
func (s *ShadowRoot) slots() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(n *Node) {
		if n.kind == KindElement && n.data == "slot" {
			out = append(out, n)
		}
		for c := n.firstChild; c != nil; c = c.nextSibling {
			walk(c)
		}
	}
	for c := s.root.firstChild; c != nil; c = c.nextSibling {
		walk(c)
	}
	return out
}

// assign recomputes content projection for the boundary: each of the
// host's element and text children is assigned to the boundary's first
// slot whose name matches the child's slot attribute. Text nodes match
// only the unnamed slot. Assignment is recomputed wholesale; it is
// cheap at the fan-outs components see in practice.
func (s *ShadowRoot) assign() {
	slots := s.slots()
	byName := make(map[string]*Node, len(slots))
	for _, sl := range slots {
		name, _ := sl.Attr("name")
		if _, ok := byName[name]; !ok {
			byName[name] = sl
		}
		for _, a := range sl.assigned {
			a.assignedSlot = nil
		}
		sl.assigned = nil
	}
	for c := s.host.firstChild; c != nil; c = c.nextSibling {
		var name string
		switch c.kind {
		case KindElement:
			name, _ = c.Attr("slot")
		case KindText:
			name = ""
		default:
			continue
		}
		sl := byName[name]
		c.assignedSlot = sl
		if sl != nil {
			sl.assigned = append(sl.assigned, c)
		}
	}
}

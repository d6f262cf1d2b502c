package dom

// EventPhase identifies where in propagation a listener is running.
type EventPhase int

const (
	// PhaseNone is the phase outside of dispatch.
	PhaseNone EventPhase = iota
	// PhaseCapture runs from the outermost ancestor toward the target.
	PhaseCapture
	// PhaseTarget runs at the target, or at a boundary host standing in
	// for a target hidden behind its boundary.
	PhaseTarget
	// PhaseBubble runs from the target back toward the outermost
	// ancestor.
	PhaseBubble
)

// String returns a human-readable phase name.
func (p EventPhase) String() string {
	switch p {
	case PhaseCapture:
		return "capture"
	case PhaseTarget:
		return "target"
	case PhaseBubble:
		return "bubble"
	default:
		return "none"
	}
}

// EventInit configures a new event, mirroring the platform's init
// dictionaries. The zero value is a non-bubbling, non-composed,
// non-cancelable event.
type EventInit struct {
	// Bubbles lets the event propagate above its target after the
	// target phase.
	Bubbles bool
	// Cancelable lets listeners call PreventDefault.
	Cancelable bool
	// Composed lets the event escape the isolation boundary of the tree
	// it was dispatched in.
	Composed bool
	// Detail carries arbitrary payload to listeners.
	Detail interface{}
}

// Event is a single occurrence propagating through a containment tree.
// An event may be dispatched again after a dispatch completes, but is
// not safe for concurrent use.
type Event struct {
	typ        string
	bubbles    bool
	cancelable bool
	composed   bool
	detail     interface{}

	origin        *Node
	target        *Node
	currentTarget *Node
	phase         EventPhase
	stopped       bool
	stoppedNow    bool
	canceled      bool
	dispatching   bool
}

// NewEvent builds an event of the given type.
func NewEvent(typ string, init EventInit) *Event {
	return &Event{
		typ:        typ,
		bubbles:    init.Bubbles,
		cancelable: init.Cancelable,
		composed:   init.Composed,
		detail:     init.Detail,
	}
}

// Type returns the event type, such as "click".
func (e *Event) Type() string { return e.typ }

// Target returns the node the event is targeted at, as visible from the
// current listener's tree: a target inside an isolation boundary is
// reported as the boundary's host to listeners outside it.
func (e *Event) Target() *Node { return e.target }

// CurrentTarget returns the node whose listener is currently running,
// or nil outside of dispatch.
func (e *Event) CurrentTarget() *Node { return e.currentTarget }

// Phase returns the current propagation phase.
func (e *Event) Phase() EventPhase { return e.phase }

// Bubbles reports whether the event propagates above its target.
func (e *Event) Bubbles() bool { return e.bubbles }

// Cancelable reports whether PreventDefault has an effect.
func (e *Event) Cancelable() bool { return e.cancelable }

// Composed reports whether the event crosses isolation boundaries.
func (e *Event) Composed() bool { return e.composed }

// Detail returns the payload the event was created with.
func (e *Event) Detail() interface{} { return e.detail }

// DefaultPrevented reports whether a listener canceled the event.
func (e *Event) DefaultPrevented() bool { return e.canceled }

// PreventDefault cancels the event's default action. It is a no-op on
// events that are not cancelable.
func (e *Event) PreventDefault() {
	if e.cancelable {
		e.canceled = true
	}
}

// StopPropagation lets the remaining listeners on the current node run,
// then ends propagation.
func (e *Event) StopPropagation() { e.stopped = true }

// StopImmediatePropagation ends propagation without running any further
// listener, including the current node's.
func (e *Event) StopImmediatePropagation() {
	e.stopped = true
	e.stoppedNow = true
}

// Handler receives dispatched events.
type Handler interface {
	HandleEvent(*Event)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(*Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(e *Event) { f(e) }

// Listener is the registration token returned by AddEventListener.
// Removal goes through the token because function values cannot be
// compared.
type Listener struct {
	typ     string
	handler Handler
	capture bool
	once    bool
	removed bool
}

// ListenerOption configures a listener registration.
type ListenerOption func(*Listener)

// WithCapture registers the listener for the capture traversal instead
// of the bubble traversal.
func WithCapture() ListenerOption {
	return func(l *Listener) { l.capture = true }
}

// WithOnce removes the listener after its first invocation.
func WithOnce() ListenerOption {
	return func(l *Listener) { l.once = true }
}

// AddEventListener registers a handler for the given event type and
// returns its removal token. A nil handler or empty type returns nil.
func (n *Node) AddEventListener(typ string, h Handler, opts ...ListenerOption) *Listener {
	if typ == "" || h == nil {
		return nil
	}
	l := &Listener{typ: typ, handler: h}
	for _, opt := range opts {
		opt(l)
	}
	if n.listeners == nil {
		n.listeners = make(map[string][]*Listener)
	}
	n.listeners[typ] = append(n.listeners[typ], l)
	return l
}

// RemoveEventListener unregisters a listener by its token. Removing a
// nil or already removed token is a no-op. A listener removed while a
// dispatch is in flight no longer runs for that dispatch.
func (n *Node) RemoveEventListener(l *Listener) {
	if l == nil || l.removed {
		return
	}
	l.removed = true
	ls := n.listeners[l.typ]
	for i, x := range ls {
		if x == l {
			n.listeners[l.typ] = append(ls[:i], ls[i+1:]...)
			return
		}
	}
}

// hasListeners reports whether any listener is registered for typ.
func (n *Node) hasListeners(typ string) bool {
	return len(n.listeners[typ]) > 0
}

// Dispatch propagates the event through the node's composed path:
// capture listeners from the outermost ancestor inward, then bubble
// listeners from the target outward. The visible target is retargeted
// at each isolation boundary edge, so listeners outside a boundary see
// the boundary's host. It returns false when a listener canceled the
// event. Dispatching an event already in flight is a no-op.
func (n *Node) Dispatch(ev *Event) bool {
	if ev == nil || ev.dispatching {
		return true
	}
	ev.dispatching = true
	ev.origin = n
	ev.canceled = false
	ev.stopped = false
	ev.stoppedNow = false

	path := composedPath(n, ev.composed)

	for i := len(path) - 1; i >= 0 && !ev.stopped; i-- {
		ev.invoke(path[i], PhaseCapture)
	}
	for i := 0; i < len(path) && !ev.stopped; i++ {
		// Above the target, non-capture listeners run only for
		// bubbling events. Boundary hosts standing in for the target
		// still run theirs either way.
		if !ev.bubbles && retargeted(n, path[i]) != path[i] {
			continue
		}
		ev.invoke(path[i], PhaseBubble)
	}

	ev.phase = PhaseNone
	ev.currentTarget = nil
	ev.target = n
	ev.dispatching = false
	return !ev.canceled
}

// invoke runs the node's listeners for the given traversal direction.
// The listener list is snapshotted first, so listeners added during
// this dispatch do not run for it, while removed ones are skipped.
func (ev *Event) invoke(cur *Node, dir EventPhase) {
	ls := cur.listeners[ev.typ]
	if len(ls) == 0 {
		return
	}
	snapshot := make([]*Listener, len(ls))
	copy(snapshot, ls)

	ev.currentTarget = cur
	ev.target = retargeted(ev.origin, cur)
	if ev.target == cur {
		ev.phase = PhaseTarget
	} else {
		ev.phase = dir
	}

	for _, l := range snapshot {
		if l.removed {
			continue
		}
		if dir == PhaseCapture && !l.capture {
			continue
		}
		if dir == PhaseBubble && l.capture {
			continue
		}
		if l.once {
			cur.RemoveEventListener(l)
		}
		l.handler.HandleEvent(ev)
		if ev.stoppedNow {
			return
		}
	}
}

// composedPath builds the propagation path from target outward. Slotted
// nodes route through their assigned slot, boundary roots continue at
// their host, and a non-composed event never escapes the tree of the
// node it was dispatched in.
func composedPath(target *Node, composed bool) []*Node {
	path := []*Node{target}
	targetRoot := target.Root()
	cur := target
	for {
		var next *Node
		switch {
		case cur.kind == KindShadowRoot:
			if !composed && cur == targetRoot {
				return path
			}
			next = cur.owner.host
		case cur.assignedSlot != nil:
			next = cur.assignedSlot
		default:
			next = cur.parent
		}
		if next == nil {
			return path
		}
		path = append(path, next)
		cur = next
	}
}

// retargeted returns the target as visible from rel's tree: while the
// candidate's root is a boundary root whose tree does not
// shadow-include rel, the candidate moves to the boundary's host.
func retargeted(origin, rel *Node) *Node {
	a := origin
	for {
		root := a.Root()
		if root.kind != KindShadowRoot || shadowIncludes(root, rel) {
			return a
		}
		a = root.owner.host
	}
}

package dom

// Delegate registers a listener on root that fires handler only when
// the event's visible target, or an ancestor of it below root, matches
// the selector. The matched element is handed to the handler alongside
// the event. One delegated listener replaces per-child registration and
// keeps working as children come and go.
func Delegate(root *Node, typ, selector string, handler func(ev *Event, match *Node), opts ...ListenerOption) (*Listener, error) {
	if handler == nil {
		return nil, NewSelectorError(selector, "nil delegate handler")
	}
	sel, err := CompileSelector(selector)
	if err != nil {
		return nil, err
	}
	l := root.AddEventListener(typ, HandlerFunc(func(ev *Event) {
		for cur := ev.Target(); cur != nil && cur != root; cur = cur.Parent() {
			if sel.Matches(cur) {
				handler(ev, cur)
				return
			}
		}
	}), opts...)
	return l, nil
}

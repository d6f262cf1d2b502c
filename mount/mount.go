package mount

import (
	"bytes"
	"context"
	"errors"

	"github.com/umbralabs/umbra/dom"
)

const (
	// DefaultTemplate is the boundary content used when Options.Template
	// is empty.
	DefaultTemplate = "<div></div>"
	// DefaultSelector locates the mount point in the default template.
	DefaultSelector = "div"
)

var errNotMounted = errors.New("host is not mounted")

// Options configures a Host.
type Options struct {
	// Template is the initial boundary markup. The mount point must be
	// somewhere inside it.
	Template string
	// Selector locates the mount point within the template. Empty,
	// with a template given, mounts at the boundary root.
	Selector string
	// Mode sets the boundary mode, open by default.
	Mode dom.ShadowMode
	// Renderer renders into the mount point on every connection. A nil
	// renderer mounts the template content as-is.
	Renderer Renderer
	// Deferred routes mount work through the document task queue
	// instead of mounting inside the connection reaction. A host
	// disconnected before the queue drains never mounts.
	Deferred bool
	// Observed lists attributes that trigger a refresh while mounted.
	// Effective for hosts wired through Define.
	Observed []string
}

// Host owns one element's isolation boundary and mount lifecycle. It
// implements dom.Controller and dom.AttributeObserver: Define wires
// construction through a registry, and el.Bind(host) attaches one by
// hand.
type Host struct {
	el         *dom.Node
	boundary   *dom.ShadowRoot
	mountPoint *dom.Node
	renderer   Renderer
	deferred   bool

	// gen serializes lifecycle transitions. Every connect and
	// disconnect bumps it, and deferred work carries the value it was
	// scheduled under, so work that outlives its connection does
	// nothing.
	gen     uint64
	mounted bool
}

// New prepares el as a component host: the template is parsed, the
// selector, when given, compiled and resolved against it, and only
// then does the element gain its boundary with the template as
// content. Any configuration failure is returned before the element
// is touched.
func New(el *dom.Node, opts Options) (*Host, error) {
	if el == nil {
		return nil, &ConfigurationError{Message: "nil element"}
	}
	if el.Kind() != dom.KindElement {
		return nil, &ConfigurationError{Tag: el.Data(), Message: "host must be an element"}
	}
	doc := el.OwnerDocument()
	if doc == nil {
		return nil, &ConfigurationError{Tag: el.Tag(), Message: "element has no document"}
	}

	template := opts.Template
	selector := opts.Selector
	if template == "" {
		template = DefaultTemplate
		if selector == "" {
			selector = DefaultSelector
		}
	}
	frag, err := doc.ParseFragment(template, el.Tag())
	if err != nil {
		return nil, &ConfigurationError{Tag: el.Tag(), Message: "bad template", Cause: err}
	}
	var mountPoint *dom.Node
	if selector != "" {
		sel, err := dom.CompileSelector(selector)
		if err != nil {
			return nil, &ConfigurationError{Tag: el.Tag(), Selector: selector, Message: "bad mount selector", Cause: err}
		}
		mountPoint = sel.First(frag)
		if mountPoint == nil {
			return nil, &ConfigurationError{Tag: el.Tag(), Selector: selector, Message: "selector matches nothing in template"}
		}
	}

	boundary, err := el.AttachShadow(opts.Mode)
	if err != nil {
		return nil, err
	}
	if err := boundary.Node().AppendChild(frag); err != nil {
		return nil, err
	}
	if mountPoint == nil {
		mountPoint = boundary.Node()
	}
	return &Host{
		el:         el,
		boundary:   boundary,
		mountPoint: mountPoint,
		renderer:   opts.Renderer,
		deferred:   opts.Deferred,
	}, nil
}

// Define registers name in the registry with a constructor building a
// Host per element instance. A configuration failure at construction
// leaves the element plain and is reported to the document, so a bad
// template never half-initializes a tree.
func Define(reg *dom.Registry, name string, opts Options) error {
	return reg.Define(&dom.Definition{
		Name:     name,
		Observed: opts.Observed,
		New: func(el *dom.Node) (dom.Controller, error) {
			return New(el, opts)
		},
	})
}

// Element returns the host element.
func (h *Host) Element() *dom.Node { return h.el }

// Boundary returns the host's isolation boundary. The boundary is
// attached once at construction and reused across disconnect and
// reconnect cycles.
func (h *Host) Boundary() *dom.ShadowRoot { return h.boundary }

// MountPoint returns the element renders land in.
func (h *Host) MountPoint() *dom.Node { return h.mountPoint }

// Mounted reports whether content is mounted for the current
// connection.
func (h *Host) Mounted() bool { return h.mounted }

// Connected mounts for this connection, immediately or through the
// document task queue for deferred hosts. Mounting is idempotent: a
// second call during the same connection does nothing.
func (h *Host) Connected(el *dom.Node) {
	if h.mounted {
		return
	}
	h.gen++
	if !h.deferred {
		h.mount(h.gen)
		return
	}
	gen := h.gen
	el.OwnerDocument().Enqueue(func() { h.mount(gen) })
}

// Disconnected unmounts and invalidates deferred work scheduled for the
// ended connection. The boundary and its template content stay in
// place for the next connection.
func (h *Host) Disconnected(el *dom.Node) {
	h.gen++
	if !h.mounted {
		return
	}
	h.mounted = false
	if h.renderer == nil {
		return
	}
	if u, ok := h.renderer.(Unmounter); ok {
		if err := u.Unmount(h.mountPoint); err != nil {
			h.report("unmount", err)
		}
	}
	if err := h.mountPoint.ReplaceChildren(); err != nil {
		h.report("unmount", err)
	}
}

// AttributeChanged refreshes a mounted host when an observed attribute
// changes. Failures go to the document's error sink; the previous
// content stays.
func (h *Host) AttributeChanged(el *dom.Node, name, old, val string) {
	if !h.mounted {
		return
	}
	if err := h.Refresh(); err != nil {
		h.announce(err)
	}
}

// Refresh re-renders a mounted host in place. Refreshing an unmounted
// host fails; its content appears at the next connection anyway.
func (h *Host) Refresh() error {
	if !h.mounted {
		return &MountError{Tag: h.el.Tag(), Op: "refresh", Cause: errNotMounted}
	}
	if h.renderer == nil {
		return nil
	}
	if err := h.render(); err != nil {
		return &MountError{Tag: h.el.Tag(), Op: "refresh", Cause: err}
	}
	return nil
}

// Delegate registers a delegated listener on the host's boundary root.
// Events raised by rendered content land here after retargeting, never
// on the page document, so handlers survive every re-render without
// re-registration.
func (h *Host) Delegate(typ, selector string, fn func(ev *dom.Event, match *dom.Node), opts ...dom.ListenerOption) (*dom.Listener, error) {
	return dom.Delegate(h.boundary.Node(), typ, selector, fn, opts...)
}

// mount performs the render for the connection identified by gen. A
// stale generation, a host that already left the tree, and an already
// mounted host each make it a no-op, which is what lets deferred work
// complete out of order safely.
func (h *Host) mount(gen uint64) {
	if gen != h.gen || h.mounted || !h.el.IsConnected() {
		return
	}
	if h.renderer == nil {
		h.mounted = true
		return
	}
	if err := h.render(); err != nil {
		h.report("mount", err)
		return
	}
	h.mounted = true
}

// render runs the renderer into a scratch buffer and swaps the parsed
// output into the mount point only when both steps worked, so a failed
// render leaves the previous content standing.
func (h *Host) render() error {
	var buf bytes.Buffer
	if err := h.renderer.Render(context.Background(), h.el, &buf); err != nil {
		return err
	}
	return h.mountPoint.SetInnerHTML(buf.String())
}

func (h *Host) report(op string, err error) {
	h.announce(&MountError{Tag: h.el.Tag(), Op: op, Cause: err})
}

// announce routes a lifecycle failure to both reporting channels: the
// document's error sink and an ErrorEvent dispatched from the host
// element.
func (h *Host) announce(err error) {
	h.el.OwnerDocument().ReportError(err)
	h.el.Dispatch(dom.NewEvent(ErrorEvent, dom.EventInit{Bubbles: true, Composed: true, Detail: err}))
}

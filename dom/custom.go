package dom

import (
	"sort"
	"strings"
	"sync"
)

// Controller receives lifecycle reactions for the element it is bound
// to. Connected fires when the element joins the live tree, exactly
// once per connection; Disconnected fires when it leaves. Reactions are
// delivered in shadow-including tree order and may mutate the tree,
// including detaching the element they run for.
type Controller interface {
	Connected(el *Node)
	Disconnected(el *Node)
}

// AttributeObserver is implemented by controllers that react to
// attribute changes. Changes are reported synchronously; setting an
// attribute to its current value reports nothing.
type AttributeObserver interface {
	AttributeChanged(el *Node, name, old, val string)
}

// Definition describes a registered custom element: the tag name it
// upgrades, the controller factory, and the attributes its controllers
// observe.
type Definition struct {
	// Name is the tag name, lowercase with at least one dash.
	Name string
	// New constructs the controller for one element instance. It runs
	// with the element in hand, before any connection reaction, so
	// constructors may attach a boundary or listeners. A returned error
	// leaves the element plain and is reported to the document.
	New func(el *Node) (Controller, error)
	// Observed lists the attribute names AttributeChanged fires for.
	Observed []string

	observed map[string]struct{}
}

// Registry maps tag names to definitions for one document. Elements
// with a defined name are upgraded as they are created or parsed, and
// Define upgrades matching elements already in the document.
type Registry struct {
	doc *Document

	mu      sync.RWMutex
	defs    map[string]*Definition
	waiting map[string][]chan struct{}
}

func newRegistry(d *Document) *Registry {
	return &Registry{
		doc:     d,
		defs:    make(map[string]*Definition),
		waiting: make(map[string][]chan struct{}),
	}
}

// Define registers a custom element definition and upgrades every
// matching element already in the document, firing Connected for the
// connected ones. Names must be lowercase and contain a dash, and a
// name can be defined only once.
func (r *Registry) Define(def *Definition) error {
	if def == nil || def.New == nil {
		return NewRegistryError("", "definition needs a constructor")
	}
	if err := validateName(def.Name); err != nil {
		return err
	}
	def.observed = make(map[string]struct{}, len(def.Observed))
	for _, a := range def.Observed {
		def.observed[strings.ToLower(a)] = struct{}{}
	}

	r.mu.Lock()
	if _, dup := r.defs[def.Name]; dup {
		r.mu.Unlock()
		return NewRegistryError(def.Name, "already defined")
	}
	r.defs[def.Name] = def
	waiters := r.waiting[def.Name]
	delete(r.waiting, def.Name)
	r.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	r.upgrade(r.doc.node)
	return nil
}

// Get returns the definition for a tag name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[name]
	return def, ok
}

// Names returns the defined tag names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WhenDefined returns a channel that is closed once the given name has
// a definition. The channel is already closed for defined names.
func (r *Registry) WhenDefined(name string) <-chan struct{} {
	ch := make(chan struct{})
	r.mu.Lock()
	if _, ok := r.defs[name]; ok {
		r.mu.Unlock()
		close(ch)
		return ch
	}
	r.waiting[name] = append(r.waiting[name], ch)
	r.mu.Unlock()
	return ch
}

// upgrade binds controllers for every defined, still-plain element in
// the subtree, crossing into boundary trees. Elements that already
// received their connection reaction get Connected fired here, since
// the tree traversal that would have delivered it is long done.
func (r *Registry) upgrade(n *Node) {
	if n.kind == KindElement && n.controller == nil {
		if def, ok := r.Get(n.data); ok {
			r.instantiate(n, def)
			if n.controller != nil && n.notified {
				n.controller.Connected(n)
			}
		}
	}
	if n.shadow != nil {
		r.upgrade(n.shadow.root)
	}
	for _, c := range n.Children() {
		r.upgrade(c)
	}
}

// instantiate constructs and binds a definition's controller on the
// element, replaying existing attributes. It does not fire Connected;
// that stays with the caller's traversal. Constructor failures leave
// the element plain and are reported to the document.
func (r *Registry) instantiate(n *Node, def *Definition) {
	c, err := def.New(n)
	if err != nil {
		r.doc.ReportError(NewRegistryError(def.Name, "constructor failed").WithCause(err))
		return
	}
	if c == nil {
		return
	}
	n.bindController(c, def)
}

// ValidateTagName checks a custom element name against the naming
// rules without touching a registry. Configuration loaders use it to
// reject bad tags before definitions are built.
func ValidateTagName(name string) error {
	return validateName(name)
}

// validateName checks the custom element naming rules.
func validateName(name string) error {
	if name == "" {
		return NewRegistryError(name, "empty name")
	}
	if name != strings.ToLower(name) {
		return NewRegistryError(name, "name must be lowercase")
	}
	if !strings.Contains(name, "-") {
		return NewRegistryError(name, "name needs a dash")
	}
	if strings.HasPrefix(name, "-") {
		return NewRegistryError(name, "name cannot start with a dash")
	}
	return nil
}

// Bind attaches a controller to the element directly, without a
// registry definition. Manually bound AttributeObservers observe every
// attribute; existing attributes are replayed with an empty old value,
// and Connected fires immediately when the element is already
// connected.
func (n *Node) Bind(c Controller) error {
	if n.kind != KindElement {
		return NewRegistryError(n.data, "only elements take controllers")
	}
	if c == nil {
		return NewRegistryError(n.data, "nil controller")
	}
	if n.controller != nil {
		return NewRegistryError(n.data, "element already has a controller")
	}
	n.bindController(c, nil)
	if n.IsConnected() {
		c.Connected(n)
	}
	return nil
}

// bindController installs the controller and replays existing
// attributes to an observer. Connected is the caller's job.
func (n *Node) bindController(c Controller, def *Definition) {
	n.controller = c
	n.definition = def
	if obs, ok := c.(AttributeObserver); ok {
		for _, a := range n.Attrs() {
			if n.observesAttr(a.Key) {
				obs.AttributeChanged(n, a.Key, "", a.Val)
			}
		}
	}
}

// ControllerOf returns the controller bound to the element, or nil.
func ControllerOf(n *Node) Controller {
	if n == nil {
		return nil
	}
	return n.controller
}

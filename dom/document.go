package dom

import (
	"log/slog"
	"strings"
	"sync"
)

// Document owns a containment tree: the node factory, the custom
// element registry for its tags, a deferred task queue, and the shared
// resource set that keeps cross-component initialization idempotent.
//
// Tree access is single-threaded; only Enqueue, PendingTasks, and the
// resource set are safe to touch from other goroutines.
type Document struct {
	node     *Node
	docEl    *Node
	head     *Node
	body     *Node
	registry *Registry

	mu        sync.Mutex
	tasks     []func()
	resources map[string]struct{}

	errFn  func(error)
	logger *slog.Logger
}

// NewDocument builds an empty document with an html/head/body scaffold.
func NewDocument() *Document {
	d := &Document{resources: make(map[string]struct{})}
	d.node = &Node{kind: KindDocument, document: d}
	d.registry = newRegistry(d)
	d.docEl = d.CreateElement("html")
	d.head = d.CreateElement("head")
	d.body = d.CreateElement("body")
	_ = d.docEl.AppendChild(d.head)
	_ = d.docEl.AppendChild(d.body)
	_ = d.node.AppendChild(d.docEl)
	return d
}

// Node returns the document node, the root of the live tree. Listeners
// registered here observe every bubbling composed event in the
// document.
func (d *Document) Node() *Node { return d.node }

// DocumentElement returns the html element.
func (d *Document) DocumentElement() *Node { return d.docEl }

// Head returns the head element.
func (d *Document) Head() *Node { return d.head }

// Body returns the body element, the default mount target for
// top-level content.
func (d *Document) Body() *Node { return d.body }

// Registry returns the document's custom element registry.
func (d *Document) Registry() *Registry { return d.registry }

// CreateElement builds a detached element owned by this document. Tags
// with a registered definition get their controller constructed and
// bound immediately; its Connected reaction fires when the element
// joins the live tree.
func (d *Document) CreateElement(tag string) *Node {
	n := &Node{kind: KindElement, data: strings.ToLower(tag), document: d}
	if def, ok := d.registry.Get(n.data); ok {
		d.registry.instantiate(n, def)
	}
	return n
}

// CreateText builds a detached text node.
func (d *Document) CreateText(s string) *Node {
	return &Node{kind: KindText, data: s, document: d}
}

// CreateComment builds a detached comment node.
func (d *Document) CreateComment(s string) *Node {
	return &Node{kind: KindComment, data: s, document: d}
}

// CreateFragment builds an empty fragment. Inserting a fragment moves
// its children, not the fragment itself.
func (d *Document) CreateFragment() *Node {
	return &Node{kind: KindFragment, document: d}
}

// Enqueue schedules fn to run on a later Flush, preserving order. It is
// safe to call from any goroutine; fn itself runs on whichever
// goroutine flushes.
func (d *Document) Enqueue(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
}

// Flush runs queued tasks in order until the queue is empty, including
// tasks the running tasks enqueue.
func (d *Document) Flush() {
	for {
		d.mu.Lock()
		if len(d.tasks) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.tasks[0]
		d.tasks = d.tasks[1:]
		d.mu.Unlock()
		fn()
	}
}

// PendingTasks reports how many tasks await a Flush.
func (d *Document) PendingTasks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tasks)
}

// SetErrorHandler routes reported errors to fn. A nil fn restores the
// logger fallback.
func (d *Document) SetErrorHandler(fn func(error)) { d.errFn = fn }

// SetLogger replaces the fallback logger used for reported errors that
// no handler or listener consumed. A nil logger restores slog's
// default.
func (d *Document) SetLogger(l *slog.Logger) { d.logger = l }

func (d *Document) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}

// ReportError surfaces an error from deep inside tree or component
// machinery: it is dispatched as a non-bubbling "error" event on the
// document node with the error as detail, then handed to the error
// handler. Errors nobody consumed are logged, never dropped.
func (d *Document) ReportError(err error) {
	if err == nil {
		return
	}
	heard := d.node.hasListeners("error")
	d.node.Dispatch(NewEvent("error", EventInit{Detail: err}))
	if d.errFn != nil {
		d.errFn(err)
		return
	}
	if !heard {
		d.log().Error("unhandled document error", "error", err)
	}
}

// EnsureResource runs install at most once per resource id for the
// document's lifetime and reports whether this call installed it. The
// id is marked before install runs, so a reentrant call for the same id
// during install sees it as already present. A failed install unmarks
// the id, letting a later call retry.
func (d *Document) EnsureResource(id string, install func() error) (bool, error) {
	if id == "" {
		return false, NewResourceError("empty resource id")
	}
	d.mu.Lock()
	if _, ok := d.resources[id]; ok {
		d.mu.Unlock()
		return false, nil
	}
	d.resources[id] = struct{}{}
	d.mu.Unlock()

	if install == nil {
		return true, nil
	}
	if err := install(); err != nil {
		d.mu.Lock()
		delete(d.resources, id)
		d.mu.Unlock()
		return false, err
	}
	return true, nil
}

// HasResource reports whether the resource id has been installed.
func (d *Document) HasResource(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.resources[id]
	return ok
}

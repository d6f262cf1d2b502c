// Package dom implements the headless containment tree that umbra mounts
// components into: a DOM-like node tree with shadow-root isolation
// boundaries, slot-based content projection, custom element lifecycle
// dispatch, and platform-faithful event propagation with retargeting at
// boundary edges.
//
// The tree is deliberately browser-free. Markup enters and leaves through
// golang.org/x/net/html (see ParseFragment and RenderHTML), while the live
// tree carries the state a parsed html.Node cannot: event listeners,
// isolation boundaries, slot assignment, and component controllers.
//
// Concurrency: a Document and the nodes it owns form a single-threaded
// structure, matching the event-driven environment they model. All tree
// mutation and event dispatch must happen on one goroutine. The document
// task queue (Enqueue/Flush) is safe to feed from other goroutines, but
// queued tasks run on whichever goroutine calls Flush.
package dom

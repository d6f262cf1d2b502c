// Package mount turns elements into isolated component hosts: each host
// owns an isolation boundary holding a configured template, resolves a
// mount point inside it, and renders its content there on every
// connection to the live tree.
//
// The boundary gives mounted content structural event guarantees. All
// dispatch from inside reaches the boundary before anything outside it,
// so a capture listener on the boundary observes every event the
// content produces, while outside listeners see the host element as the
// target.
//
// Hosts are usually wired through a document's custom element registry
// with Define, which constructs a Host per element instance. Mounting
// is idempotent per connection, survives disconnect/reconnect cycles on
// the same boundary, and tolerates deferred mount work completing after
// the host has already left the tree.
//
// Lifecycle failures reach the document's error sink and are dispatched
// from the host element as a bubbling composed ErrorEvent, so pages can
// watch fragments fail without wiring into the sink.
package mount

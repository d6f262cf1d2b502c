// Package internal contains the implementation packages behind the
// umbra CLI and composition server.
//
// These packages follow Go's internal package convention and are not
// importable from outside the module. The public surface of umbra is
// the dom and mount packages at the repository root.
//
// # Package Organization
//
//   - config: configuration loading, validation, and project scaffolding
//   - errors: render-error collection, classification, and the HTML overlay
//   - logging: structured logging on top of slog
//   - registry: fragment registry, tag index, and dependency analysis
//   - server: HTTP composition server, template loader, and reload hub
//   - version: build metadata stamped at link time
//   - watcher: debounced file system monitoring
//
// # Inter-Package Communication
//
// The registry is the shared state: the server's loader populates it
// from configured templates, the composer reads it to build pages, and
// the watcher triggers reloads that flow back through the loader.
// Render failures from any stage land in an errors.Collector, which
// the composer turns into the development error overlay.
package internal

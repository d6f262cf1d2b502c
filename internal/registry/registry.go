// Package registry tracks the fragments a project serves: their tags,
// template files, mount options, and the cross-fragment references
// found in their markup. Watchers receive add, update, and remove
// events so the composition server can re-render hosts and broadcast
// reloads.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/umbralabs/umbra/dom"
	"github.com/umbralabs/umbra/internal/config"
)

// FragmentRegistry manages all registered fragments
type FragmentRegistry struct {
	fragments map[string]*FragmentInfo
	tags      map[string]string // tag -> fragment name
	mutex     sync.RWMutex
	watchers  []chan FragmentEvent
	analyzer  *DependencyAnalyzer
}

// FragmentInfo holds metadata about a registered fragment
type FragmentInfo struct {
	Name         string
	Tag          string
	TemplatePath string
	Selector     string
	Mode         dom.ShadowMode
	Kind         RendererKind
	Markup       string
	Hash         string
	LastMod      time.Time
	Dependencies []string
}

// RendererKind tells the composition server how a fragment's content
// is produced.
type RendererKind int

const (
	// KindTemplate fragments render markup loaded from a template file.
	KindTemplate RendererKind = iota
	// KindComponent fragments render through a programmatic renderer.
	KindComponent
)

// String returns the kind name used in fragment listings.
func (k RendererKind) String() string {
	if k == KindComponent {
		return "component"
	}
	return "template"
}

// FragmentEvent represents a change in the fragment registry
type FragmentEvent struct {
	Type      EventType
	Fragment  *FragmentInfo
	Timestamp time.Time
}

// EventType represents the type of fragment event
type EventType int

const (
	EventTypeAdded EventType = iota
	EventTypeUpdated
	EventTypeRemoved
)

// NewFragmentRegistry creates a new fragment registry
func NewFragmentRegistry() *FragmentRegistry {
	r := &FragmentRegistry{
		fragments: make(map[string]*FragmentInfo),
		tags:      make(map[string]string),
		watchers:  make([]chan FragmentEvent, 0),
	}
	r.analyzer = NewDependencyAnalyzer(r)
	return r
}

// NewFragmentInfo builds a registry entry from a validated config
// entry. The template path is joined under dir; markup is filled in by
// whoever loads the file.
func NewFragmentInfo(entry config.FragmentConfig, dir string) (*FragmentInfo, error) {
	mode := dom.ShadowOpen
	if entry.Mode != "" {
		m, err := dom.ParseShadowMode(entry.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}
	return &FragmentInfo{
		Name:         entry.Name,
		Tag:          entry.Tag,
		TemplatePath: filepath.Join(dir, entry.Template),
		Selector:     entry.Selector,
		Mode:         mode,
		Kind:         KindTemplate,
	}, nil
}

// SetMarkup stores the fragment's current markup and stamps the hash
// used for change detection.
func (f *FragmentInfo) SetMarkup(markup string) {
	f.Markup = markup
	f.Hash = HashMarkup(markup)
	f.LastMod = time.Now()
}

// HashMarkup returns the content hash used to detect template changes.
func HashMarkup(markup string) string {
	sum := sha256.Sum256([]byte(markup))
	return hex.EncodeToString(sum[:])
}

// Register adds or updates a fragment in the registry. The tag must be
// a valid custom element name and unique across fragments; composition
// resolves fragments by tag, so a collision would make one of the two
// unreachable.
func (r *FragmentRegistry) Register(fragment *FragmentInfo) error {
	if fragment == nil {
		return fmt.Errorf("nil fragment")
	}
	if fragment.Name == "" {
		return fmt.Errorf("fragment has no name")
	}
	if err := dom.ValidateTagName(fragment.Tag); err != nil {
		return fmt.Errorf("fragment %q: %w", fragment.Name, err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if owner, taken := r.tags[fragment.Tag]; taken && owner != fragment.Name {
		return fmt.Errorf("fragment %q: tag %q already registered by %q", fragment.Name, fragment.Tag, owner)
	}

	eventType := EventTypeAdded
	if existing, exists := r.fragments[fragment.Name]; exists {
		eventType = EventTypeUpdated
		if existing.Tag != fragment.Tag {
			delete(r.tags, existing.Tag)
		}
	}

	r.fragments[fragment.Name] = fragment
	r.tags[fragment.Tag] = fragment.Name

	r.broadcast(FragmentEvent{
		Type:      eventType,
		Fragment:  fragment,
		Timestamp: time.Now(),
	})
	return nil
}

// Get retrieves a fragment by name
func (r *FragmentRegistry) Get(name string) (*FragmentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	fragment, exists := r.fragments[name]
	return fragment, exists
}

// GetByTag retrieves a fragment by its custom element tag
func (r *FragmentRegistry) GetByTag(tag string) (*FragmentInfo, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	name, ok := r.tags[tag]
	if !ok {
		return nil, false
	}
	fragment, exists := r.fragments[name]
	return fragment, exists
}

// GetAll returns all registered fragments
func (r *FragmentRegistry) GetAll() map[string]*FragmentInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	result := make(map[string]*FragmentInfo, len(r.fragments))
	for name, fragment := range r.fragments {
		result[name] = fragment
	}
	return result
}

// Names returns the registered fragment names in sorted order.
func (r *FragmentRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.fragments))
	for name := range r.fragments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Remove removes a fragment from the registry
func (r *FragmentRegistry) Remove(name string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.removeLocked(name)
}

// RemoveByPath removes every fragment backed by the given template
// file and returns their names. Watch loops use it when a template is
// deleted from disk.
func (r *FragmentRegistry) RemoveByPath(path string) []string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var removed []string
	for name, fragment := range r.fragments {
		if fragment.TemplatePath == path {
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	for _, name := range removed {
		r.removeLocked(name)
	}
	return removed
}

// removeLocked deletes a fragment and notifies watchers. Callers hold
// the write lock.
func (r *FragmentRegistry) removeLocked(name string) {
	fragment, exists := r.fragments[name]
	if !exists {
		return
	}

	delete(r.fragments, name)
	if r.tags[fragment.Tag] == name {
		delete(r.tags, fragment.Tag)
	}

	r.broadcast(FragmentEvent{
		Type:      EventTypeRemoved,
		Fragment:  fragment,
		Timestamp: time.Now(),
	})
}

// broadcast delivers an event to every watcher without blocking.
// Callers hold at least the write lock.
func (r *FragmentRegistry) broadcast(event FragmentEvent) {
	for _, watcher := range r.watchers {
		select {
		case watcher <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Watch returns a channel that receives fragment events
func (r *FragmentRegistry) Watch() <-chan FragmentEvent {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	ch := make(chan FragmentEvent, 100)
	r.watchers = append(r.watchers, ch)
	return ch
}

// UnWatch removes a watcher channel and closes it
func (r *FragmentRegistry) UnWatch(ch <-chan FragmentEvent) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for i, watcher := range r.watchers {
		if watcher == ch {
			close(watcher)
			r.watchers = append(r.watchers[:i], r.watchers[i+1:]...)
			break
		}
	}
}

// Count returns the number of registered fragments
func (r *FragmentRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.fragments)
}

package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/umbralabs/umbra/internal/logging"
)

const (
	// MaxPendingEvents caps the debounce buffer. Bursts past the cap
	// drop the oldest events first.
	MaxPendingEvents = 1000

	// CleanupInterval is the minimum time between capacity trims of
	// the pending buffer.
	CleanupInterval = 30 * time.Second
)

// FileWatcher watches for file changes with intelligent debouncing
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	filters   []FileFilter
	handlers  []ChangeHandler
	logger    logging.Logger
	root      string
	mutex     sync.RWMutex
}

// ChangeEvent represents a file change event
type ChangeEvent struct {
	Type    EventType
	Path    string
	ModTime time.Time
	Size    int64
}

// EventType represents the type of file change
type EventType int

const (
	EventTypeCreated EventType = iota
	EventTypeModified
	EventTypeDeleted
	EventTypeRenamed
)

// String returns the string representation of the EventType
func (e EventType) String() string {
	switch e {
	case EventTypeCreated:
		return "created"
	case EventTypeModified:
		return "modified"
	case EventTypeDeleted:
		return "deleted"
	case EventTypeRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// FileFilter determines if a file should be watched
type FileFilter func(path string) bool

// ChangeHandler handles file change events
type ChangeHandler func(events []ChangeEvent) error

// Debouncer groups rapid file changes together
type Debouncer struct {
	delay       time.Duration
	events      chan ChangeEvent
	output      chan []ChangeEvent
	timer       *time.Timer
	pending     []ChangeEvent
	lastCleanup time.Time
	mutex       sync.Mutex
}

// NewFileWatcher creates a new file watcher
func NewFileWatcher(debounceDelay time.Duration) (*FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debouncer := &Debouncer{
		delay:       debounceDelay,
		events:      make(chan ChangeEvent, 100),
		output:      make(chan []ChangeEvent, 10),
		pending:     make([]ChangeEvent, 0),
		lastCleanup: time.Now(),
	}

	fw := &FileWatcher{
		watcher:   watcher,
		debouncer: debouncer,
		filters:   make([]FileFilter, 0),
		handlers:  make([]ChangeHandler, 0),
		logger:    logging.NewLogger(nil).WithComponent("watcher"),
	}

	return fw, nil
}

// SetLogger replaces the watcher's logger
func (fw *FileWatcher) SetLogger(logger logging.Logger) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.logger = logger
}

// SetRoot re-bases the containment check applied to watched paths.
// Paths must resolve inside the root, which defaults to the working
// directory.
func (fw *FileWatcher) SetRoot(root string) error {
	abs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return fmt.Errorf("resolving watch root: %w", err)
	}
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.root = abs
	return nil
}

// AddFilter adds a file filter
func (fw *FileWatcher) AddFilter(filter FileFilter) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.filters = append(fw.filters, filter)
}

// AddHandler adds a change handler
func (fw *FileWatcher) AddHandler(handler ChangeHandler) {
	fw.mutex.Lock()
	defer fw.mutex.Unlock()
	fw.handlers = append(fw.handlers, handler)
}

// AddPath adds a path to watch
func (fw *FileWatcher) AddPath(path string) error {
	cleanPath, err := fw.validatePath(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	return fw.watcher.Add(cleanPath)
}

// AddRecursive adds a directory and all subdirectories to watch
func (fw *FileWatcher) AddRecursive(root string) error {
	cleanRoot, err := fw.validatePath(root)
	if err != nil {
		return fmt.Errorf("invalid root path: %w", err)
	}

	return filepath.Walk(cleanRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			cleanPath, err := fw.validatePath(path)
			if err != nil {
				fw.log().Warn(context.Background(), err, "skipping directory", "path", path)
				return nil
			}
			return fw.watcher.Add(cleanPath)
		}

		return nil
	})
}

// validatePath validates and cleans a file path to prevent directory traversal
func (fw *FileWatcher) validatePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path contains directory traversal: %s", path)
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return "", fmt.Errorf("getting absolute path: %w", err)
	}

	fw.mutex.RLock()
	root := fw.root
	fw.mutex.RUnlock()
	if root == "" {
		root, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
	}

	rel, err := filepath.Rel(root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the watch root", path)
	}

	return cleanPath, nil
}

// Start starts the file watcher
func (fw *FileWatcher) Start(ctx context.Context) error {
	// Start debouncer
	go fw.debouncer.start(ctx)

	// Start event processor
	go fw.processEvents(ctx)

	// Start main watcher loop
	go fw.watchLoop(ctx)

	return nil
}

// Stop stops the file watcher and cleans up resources
func (fw *FileWatcher) Stop() error {
	if fw.debouncer.timer != nil {
		fw.debouncer.timer.Stop()
	}

	return fw.watcher.Close()
}

func (fw *FileWatcher) log() logging.Logger {
	fw.mutex.RLock()
	defer fw.mutex.RUnlock()
	return fw.logger
}

func (fw *FileWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleFsnotifyEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			// Log but continue watching
			fw.log().Warn(ctx, err, "file watcher error")
		}
	}
}

func (fw *FileWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	// Apply filters
	fw.mutex.RLock()
	filters := fw.filters
	fw.mutex.RUnlock()

	for _, filter := range filters {
		if !filter(event.Name) {
			return
		}
	}

	// Get file info
	info, err := os.Stat(event.Name)
	var modTime time.Time
	var size int64

	if err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	// Convert to our event type
	var eventType EventType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		eventType = EventTypeCreated
	case event.Op&fsnotify.Write == fsnotify.Write:
		eventType = EventTypeModified
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		eventType = EventTypeDeleted
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		eventType = EventTypeRenamed
	default:
		eventType = EventTypeModified
	}

	changeEvent := ChangeEvent{
		Type:    eventType,
		Path:    event.Name,
		ModTime: modTime,
		Size:    size,
	}

	// Send to debouncer
	select {
	case fw.debouncer.events <- changeEvent:
	default:
		// Channel full, skip this event
	}
}

func (fw *FileWatcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case events := <-fw.debouncer.output:
			fw.mutex.RLock()
			handlers := fw.handlers
			fw.mutex.RUnlock()

			for _, handler := range handlers {
				if err := handler(events); err != nil {
					// Log but continue processing
					fw.log().Error(ctx, err, "change handler failed", "events", len(events))
				}
			}
		}
	}
}

// Debouncer implementation
func (d *Debouncer) start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.events:
			d.addEvent(event)
		}
	}
}

func (d *Debouncer) addEvent(event ChangeEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if time.Since(d.lastCleanup) > CleanupInterval {
		d.shrinkLocked()
	}

	// Bound the buffer. The newest write for a path is the one that
	// survives deduplication, so dropping the oldest loses nothing.
	if len(d.pending) >= MaxPendingEvents {
		copy(d.pending, d.pending[1:])
		d.pending = d.pending[:len(d.pending)-1]
	}
	d.pending = append(d.pending, event)

	// Reset timer
	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, func() {
		d.flush()
	})
}

// shrinkLocked reclaims buffer capacity left over from a burst.
// Callers must hold the mutex.
func (d *Debouncer) shrinkLocked() {
	d.lastCleanup = time.Now()
	if cap(d.pending) > MaxPendingEvents*2 {
		trimmed := make([]ChangeEvent, len(d.pending), MaxPendingEvents)
		copy(trimmed, d.pending)
		d.pending = trimmed
	}
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.pending) == 0 {
		return
	}

	// Deduplicate events by path
	eventMap := make(map[string]ChangeEvent)
	for _, event := range d.pending {
		eventMap[event.Path] = event
	}

	// Convert back to slice
	events := make([]ChangeEvent, 0, len(eventMap))
	for _, event := range eventMap {
		events = append(events, event)
	}

	// Send debounced events
	select {
	case d.output <- events:
	default:
		// Channel full, skip
	}

	// Clear pending events
	d.pending = d.pending[:0]
}

// Common file filters
func TemplateFilter(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

func ConfigFilter(path string) bool {
	base := filepath.Base(path)
	return base == ".umbra.yml" || base == ".umbra.yaml"
}

// NoTempFilter rejects editor artifacts: backup suffixes, swap files,
// and in-progress saves.
func NoTempFilter(path string) bool {
	base := filepath.Base(path)
	if strings.HasSuffix(base, "~") || strings.HasPrefix(base, "#") || strings.HasPrefix(base, ".#") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".swp", ".swx", ".tmp", ".bak":
		return false
	}
	return true
}

// NoHiddenFilter rejects paths with a hidden segment, which covers
// .git directories and most editor metadata.
func NoHiddenFilter(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	return true
}

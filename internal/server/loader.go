package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"

	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/errors"
	"github.com/umbralabs/umbra/internal/logging"
	"github.com/umbralabs/umbra/internal/registry"
)

// customTagPattern matches custom element tags: lowercase, at least
// one hyphen, mirroring the registry's tag validation.
var customTagPattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)+$`)

// TemplatePolicy returns the sanitizer applied to fragment templates
// before they reach the registry. It keeps structural markup, style
// blocks, template and slot elements, and custom element tags, while
// stripping scripts and event handler attributes.
func TemplatePolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowImages()
	p.AllowLists()
	p.AllowTables()
	p.AllowElements(
		"a", "abbr", "address", "article", "aside", "b", "blockquote", "br",
		"button", "caption", "cite", "code", "dd", "del", "details", "dfn",
		"div", "dl", "dt", "em", "figcaption", "figure", "footer", "h1",
		"h2", "h3", "h4", "h5", "h6", "header", "hr", "i", "ins", "kbd",
		"label", "main", "mark", "nav", "p", "pre", "q", "s", "samp",
		"section", "slot", "small", "span", "strong", "style", "sub",
		"summary", "sup", "template", "time", "u", "var",
	)
	p.AllowElementsMatching(customTagPattern)
	p.AllowAttrs("class", "id", "part", "slot", "title", "role", "tabindex").Globally()
	p.AllowDataAttributes()
	p.AllowAttrs("name").OnElements("slot")
	p.AllowAttrs("shadowrootmode").Matching(regexp.MustCompile(`^(open|closed)$`)).OnElements("template")
	p.AllowAttrs("datetime").OnElements("time", "del", "ins")
	p.AllowAttrs("type", "disabled").OnElements("button")
	p.AllowAttrs("for").OnElements("label")
	return p
}

// Loader reads fragment templates from disk, sanitizes them, and
// registers them. Failures land in the collector so the error overlay
// can show them next to render errors.
type Loader struct {
	cfg       *config.Config
	registry  *registry.FragmentRegistry
	collector *errors.Collector
	policy    *bluemonday.Policy
	logger    logging.Logger
}

// NewLoader creates a loader over the configured fragment entries.
func NewLoader(cfg *config.Config, reg *registry.FragmentRegistry, collector *errors.Collector, logger logging.Logger) *Loader {
	return &Loader{
		cfg:       cfg,
		registry:  reg,
		collector: collector,
		policy:    TemplatePolicy(),
		logger:    logger.WithComponent("loader"),
	}
}

// LoadAll loads every configured fragment, recording entries whose
// templates fail to read or register, and returns the number loaded.
// Templates whose content hash is unchanged are not re-registered.
func (l *Loader) LoadAll(ctx context.Context) int {
	loaded := 0
	for _, entry := range l.cfg.Fragments.Entries {
		if err := l.loadEntry(entry); err != nil {
			l.recordLoadError(ctx, entry.Name, err)
			continue
		}
		loaded++
	}
	if err := l.registry.UpdateAllDependencies(); err != nil {
		l.logger.Warn(ctx, err, "dependency analysis failed")
	}
	return loaded
}

// ReloadPath reloads every configured fragment backed by the given
// template file and returns the affected fragment names.
func (l *Loader) ReloadPath(ctx context.Context, path string) []string {
	var names []string
	for _, entry := range l.entriesForPath(path) {
		names = append(names, entry.Name)
		if err := l.loadEntry(entry); err != nil {
			l.recordLoadError(ctx, entry.Name, err)
		}
	}
	if len(names) > 0 {
		if err := l.registry.UpdateAllDependencies(); err != nil {
			l.logger.Warn(ctx, err, "dependency analysis failed")
		}
	}
	return names
}

// RemovePath drops every fragment backed by the given template file
// from the registry and returns the removed names.
func (l *Loader) RemovePath(ctx context.Context, path string) []string {
	removed := l.registry.RemoveByPath(filepath.Clean(path))
	if len(removed) == 0 {
		for _, entry := range l.entriesForPath(path) {
			l.registry.Remove(entry.Name)
			removed = append(removed, entry.Name)
		}
	}
	for _, name := range removed {
		l.logger.Info(ctx, "fragment removed", "fragment", name, "path", path)
	}
	if len(removed) > 0 {
		if err := l.registry.UpdateAllDependencies(); err != nil {
			l.logger.Warn(ctx, err, "dependency analysis failed")
		}
	}
	return removed
}

// NamesForPath returns the configured fragments backed by the given
// template file.
func (l *Loader) NamesForPath(path string) []string {
	var names []string
	for _, entry := range l.entriesForPath(path) {
		names = append(names, entry.Name)
	}
	return names
}

func (l *Loader) loadEntry(entry config.FragmentConfig) error {
	info, err := registry.NewFragmentInfo(entry, l.cfg.Fragments.Dir)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(info.TemplatePath)
	if err != nil {
		return err
	}
	markup, err := decodeTemplate(raw)
	if err != nil {
		return err
	}
	markup = l.policy.Sanitize(markup)
	if existing, ok := l.registry.Get(info.Name); ok && existing.Hash == registry.HashMarkup(markup) {
		return nil
	}
	info.SetMarkup(markup)
	return l.registry.Register(info)
}

func (l *Loader) recordLoadError(ctx context.Context, name string, err error) {
	l.collector.Add(errors.RenderError{
		Fragment: name,
		Op:       "load",
		Message:  err.Error(),
		Severity: errors.SeverityError,
	})
	l.logger.Error(ctx, err, "fragment load failed", "fragment", name)
}

func (l *Loader) entriesForPath(path string) []config.FragmentConfig {
	var matched []config.FragmentConfig
	for _, entry := range l.cfg.Fragments.Entries {
		if samePath(filepath.Join(l.cfg.Fragments.Dir, entry.Template), path) {
			matched = append(matched, entry)
		}
	}
	return matched
}

// samePath compares template paths after normalization so watcher
// events match config entries regardless of how either was spelled.
func samePath(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// decodeTemplate converts raw template bytes to UTF-8. Valid UTF-8
// passes through untouched; anything else goes through charset
// detection so legacy encodings keep their glyphs.
func decodeTemplate(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	enc, name, _ := charset.DetermineEncoding(raw, "")
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s template: %w", name, err)
	}
	return string(decoded), nil
}

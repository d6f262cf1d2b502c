package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/umbralabs/umbra/dom"
	"github.com/umbralabs/umbra/internal/config"
	"github.com/umbralabs/umbra/internal/errors"
	"github.com/umbralabs/umbra/internal/logging"
	"github.com/umbralabs/umbra/internal/registry"
	"github.com/umbralabs/umbra/mount"
)

// ErrUnknownFragment is returned when a preview names a fragment the
// registry does not hold.
var ErrUnknownFragment = stderrors.New("unknown fragment")

// CycleError refuses composition when fragments embed one another.
type CycleError struct {
	Cycles [][]string
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycles))
	for _, cycle := range e.Cycles {
		parts = append(parts, strings.Join(cycle, " -> "))
	}
	return "fragment dependency cycle: " + strings.Join(parts, "; ")
}

// fontStyles pins the font stacks shared by every composed page.
const fontStyles = `:root {
  --umbra-font-sans: system-ui, "Segoe UI", Helvetica, Arial, sans-serif;
  --umbra-font-mono: ui-monospace, "SF Mono", Menlo, Consolas, monospace;
}`

// baseStyles is the host page chrome around embedded fragments.
const baseStyles = `body {
  margin: 0;
  font-family: var(--umbra-font-sans);
  color: #1f2430;
  background: #f5f6f8;
}
.umbra-header {
  display: flex;
  align-items: baseline;
  gap: 1rem;
  padding: 1rem 1.5rem;
  background: #fff;
  border-bottom: 1px solid #e1e4ea;
}
.umbra-header h1 {
  margin: 0;
  font-size: 1.25rem;
}
.umbra-header a {
  color: #3b5bdb;
  text-decoration: none;
}
.umbra-fragments {
  display: grid;
  gap: 1.5rem;
  padding: 1.5rem;
}
.umbra-fragment {
  padding: 1rem 1.5rem;
  background: #fff;
  border: 1px solid #e1e4ea;
  border-radius: 6px;
}
.umbra-fragment h2 {
  margin-top: 0;
  font-size: 0.9rem;
  text-transform: uppercase;
  letter-spacing: 0.05em;
  color: #6b7280;
}`

// reloadScript reconnects forever and reloads the page whenever the
// server pushes an update or comes back after a restart.
const reloadScript = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  var lost = false;
  function connect() {
    var sock = new WebSocket(scheme + location.host + "/ws");
    sock.onopen = function () { if (lost) { location.reload(); } };
    sock.onmessage = function () { location.reload(); };
    sock.onclose = function () { lost = true; setTimeout(connect, 1000); };
  }
  connect();
})();`

// fallbackPage is served when even serialization fails.
const fallbackPage = `<!DOCTYPE html><html><head><title>umbra</title></head><body><p>failed to render page</p></body></html>`

// Composer builds host pages from registered fragments. Each page is
// composed in a fresh document; render failures flow through the
// document's error handler into the caller's collector and surface in
// the overlay rather than failing the request.
type Composer struct {
	registry *registry.FragmentRegistry
	title    string
	reload   bool
	overlay  bool
	logger   logging.Logger
}

// NewComposer creates a composer over the registry using the server's
// title and development toggles.
func NewComposer(cfg *config.Config, reg *registry.FragmentRegistry, logger logging.Logger) *Composer {
	return &Composer{
		registry: reg,
		title:    cfg.Server.Title,
		reload:   cfg.Dev.Reload,
		overlay:  cfg.Dev.ErrorOverlay,
		logger:   logger.WithComponent("compose"),
	}
}

// ComposeAll renders the host page embedding every registered
// fragment. The only error is a dependency cycle, which makes
// composition impossible; everything else lands in the collector.
func (c *Composer) ComposeAll(ctx context.Context, col *errors.Collector) (string, error) {
	if err := c.checkCycles(); err != nil {
		return "", err
	}
	doc := c.newDocument(ctx, col, c.title)
	body := doc.Body()
	_ = body.AppendChild(c.pageHeader(doc, c.title, false))

	main := doc.CreateElement("main")
	main.AddClass("umbra-fragments")
	_ = body.AppendChild(main)

	for _, name := range c.registry.Names() {
		f, ok := c.registry.Get(name)
		if !ok {
			continue
		}
		_ = main.AppendChild(c.fragmentSection(doc, f))
	}
	return c.finish(ctx, doc, col), nil
}

// ComposeOne renders a preview page hosting a single fragment. Other
// registered tags stay defined so cross-fragment references upgrade.
func (c *Composer) ComposeOne(ctx context.Context, name string, col *errors.Collector) (string, error) {
	f, ok := c.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFragment, name)
	}
	if err := c.checkCycles(); err != nil {
		return "", err
	}
	doc := c.newDocument(ctx, col, f.Name+" · "+c.title)
	body := doc.Body()
	_ = body.AppendChild(c.pageHeader(doc, f.Name, true))

	main := doc.CreateElement("main")
	main.AddClass("umbra-fragments")
	_ = body.AppendChild(main)
	_ = main.AppendChild(c.fragmentSection(doc, f))

	return c.finish(ctx, doc, col), nil
}

// ErrorPage renders a page with nothing but the error overlay. It is
// served when composition itself fails, so it ignores the configured
// overlay toggle.
func (c *Composer) ErrorPage(ctx context.Context, col *errors.Collector) string {
	doc := dom.NewDocument()
	doc.SetErrorHandler(col.Collect)
	c.installChrome(doc, col, c.title+" · error")
	doc.Flush()
	c.injectOverlay(ctx, doc, col)
	if c.reload {
		c.injectReloadScript(doc)
	}
	page, err := doc.Node().OuterHTML()
	if err != nil {
		c.logger.Error(ctx, err, "serialization failed")
		return fallbackPage
	}
	return page
}

func (c *Composer) checkCycles() error {
	cycles := c.registry.DetectCycles()
	if len(cycles) == 0 {
		return nil
	}
	return &CycleError{Cycles: cycles}
}

// newDocument builds a document with shared chrome installed and all
// registered fragments defined as custom elements. Errors reported by
// the document go to the collector and the log.
func (c *Composer) newDocument(ctx context.Context, col *errors.Collector, title string) *dom.Document {
	doc := dom.NewDocument()
	doc.SetErrorHandler(func(err error) {
		col.Collect(err)
		c.logger.Error(ctx, err, "fragment render error")
	})
	c.installChrome(doc, col, title)
	c.defineAll(ctx, doc, col)
	return doc
}

func (c *Composer) installChrome(doc *dom.Document, col *errors.Collector, title string) {
	head := doc.Head()

	meta := doc.CreateElement("meta")
	meta.SetAttr("charset", "utf-8")
	_ = head.AppendChild(meta)

	viewport := doc.CreateElement("meta")
	viewport.SetAttr("name", "viewport")
	viewport.SetAttr("content", "width=device-width, initial-scale=1")
	_ = head.AppendChild(viewport)

	titleEl := doc.CreateElement("title")
	_ = titleEl.AppendChild(doc.CreateText(title))
	_ = head.AppendChild(titleEl)

	c.ensureStyle(doc, col, "style:fonts", fontStyles)
	c.ensureStyle(doc, col, "style:base", baseStyles)
}

// ensureStyle installs a shared stylesheet exactly once per document.
func (c *Composer) ensureStyle(doc *dom.Document, col *errors.Collector, id, css string) {
	_, err := doc.EnsureResource(id, func() error {
		style := doc.CreateElement("style")
		style.SetAttr("data-umbra", strings.TrimPrefix(id, "style:"))
		if err := style.AppendChild(doc.CreateText(css)); err != nil {
			return err
		}
		return doc.Head().AppendChild(style)
	})
	if err != nil {
		col.Collect(err)
	}
}

func (c *Composer) defineAll(ctx context.Context, doc *dom.Document, col *errors.Collector) {
	for _, name := range c.registry.Names() {
		f, ok := c.registry.Get(name)
		if !ok {
			continue
		}
		if err := mount.Define(doc.Registry(), f.Tag, mountOptions(f)); err != nil {
			col.Collect(err)
			c.logger.Error(ctx, err, "fragment definition failed", "fragment", f.Name, "tag", f.Tag)
		}
	}
}

// mountOptions maps a registry entry onto mount options. Component
// fragments render through a programmatic renderer; template fragments
// mount their markup directly.
func mountOptions(f *registry.FragmentInfo) mount.Options {
	opts := mount.Options{
		Selector: f.Selector,
		Mode:     f.Mode,
	}
	if f.Kind == registry.KindComponent {
		opts.Renderer = mount.HTML(f.Markup)
		return opts
	}
	opts.Template = f.Markup
	return opts
}

func (c *Composer) pageHeader(doc *dom.Document, title string, preview bool) *dom.Node {
	header := doc.CreateElement("header")
	header.AddClass("umbra-header")

	h1 := doc.CreateElement("h1")
	_ = h1.AppendChild(doc.CreateText(title))
	_ = header.AppendChild(h1)

	if preview {
		back := doc.CreateElement("a")
		back.SetAttr("href", "/")
		_ = back.AppendChild(doc.CreateText("all fragments"))
		_ = header.AppendChild(back)
	}
	return header
}

func (c *Composer) fragmentSection(doc *dom.Document, f *registry.FragmentInfo) *dom.Node {
	section := doc.CreateElement("section")
	section.AddClass("umbra-fragment")
	section.SetAttr("data-fragment", f.Name)

	heading := doc.CreateElement("h2")
	_ = heading.AppendChild(doc.CreateText(f.Name))
	_ = section.AppendChild(heading)

	_ = section.AppendChild(doc.CreateElement(f.Tag))
	return section
}

// finish flushes pending mounts, injects the overlay and reload
// script, and serializes the document with declarative shadow roots.
func (c *Composer) finish(ctx context.Context, doc *dom.Document, col *errors.Collector) string {
	doc.Flush()

	if c.overlay && col.HasErrors() {
		c.injectOverlay(ctx, doc, col)
	}
	if c.reload {
		c.injectReloadScript(doc)
	}

	page, err := doc.Node().OuterHTML()
	if err != nil {
		c.logger.Error(ctx, err, "serialization failed")
		return fallbackPage
	}
	return page
}

// injectOverlay appends the rendered error overlay to the body. Best
// effort: a parse failure is logged, not surfaced.
func (c *Composer) injectOverlay(ctx context.Context, doc *dom.Document, col *errors.Collector) {
	markup := col.Overlay()
	if markup == "" {
		return
	}
	frag, err := doc.ParseFragment(markup, "body")
	if err != nil {
		c.logger.Warn(ctx, err, "overlay injection failed")
		return
	}
	_ = doc.Body().AppendChild(frag)
}

func (c *Composer) injectReloadScript(doc *dom.Document) {
	script := doc.CreateElement("script")
	_ = script.AppendChild(doc.CreateText(reloadScript))
	_ = doc.Body().AppendChild(script)
}

package mount

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/umbralabs/umbra/dom"
)

// Renderer produces the markup a host mounts into its mount point. The
// element is the host itself, letting renderers read attributes and
// light children. Renderers must not mutate the tree from Render; the
// host parses the output off-tree and swaps it in only on success.
type Renderer interface {
	Render(ctx context.Context, el *dom.Node, w io.Writer) error
}

// Unmounter is implemented by renderers holding per-mount state to
// release. Unmount receives the mount point before it is cleared. When
// the interface is absent, unmounting just clears the mount point.
type Unmounter interface {
	Unmount(target *dom.Node) error
}

// Func adapts a plain function to the Renderer interface.
type Func func(ctx context.Context, el *dom.Node, w io.Writer) error

// Render calls f.
func (f Func) Render(ctx context.Context, el *dom.Node, w io.Writer) error {
	return f(ctx, el, w)
}

// HTML returns a Renderer that writes fixed markup on every mount.
func HTML(markup string) Renderer {
	return Func(func(_ context.Context, _ *dom.Node, w io.Writer) error {
		_, err := io.WriteString(w, markup)
		return err
	})
}

// Templ adapts a templ component to the Renderer interface.
func Templ(c templ.Component) Renderer {
	return Func(func(ctx context.Context, _ *dom.Node, w io.Writer) error {
		return c.Render(ctx, w)
	})
}

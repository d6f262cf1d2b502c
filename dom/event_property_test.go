//go:build property

package dom

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// dispatchFixture is a randomly grown tree with isolation boundaries
// and slots, built deterministically from a seed.
type dispatchFixture struct {
	doc   *Document
	nodes []*Node
	hosts []*Node
}

func buildDispatchFixture(seed int64, size int) *dispatchFixture {
	rng := rand.New(rand.NewSource(seed))
	doc := NewDocument()
	fx := &dispatchFixture{doc: doc}
	parents := []*Node{doc.Body()}
	for i := 0; i < size; i++ {
		parent := parents[rng.Intn(len(parents))]
		el := doc.CreateElement(fmt.Sprintf("x-n%d", i))
		_ = parent.AppendChild(el)
		fx.nodes = append(fx.nodes, el)
		parents = append(parents, el)
		if rng.Intn(4) == 0 {
			sr, err := el.AttachShadow(ShadowOpen)
			if err != nil {
				continue
			}
			inner := doc.CreateElement("div")
			slot := doc.CreateElement("slot")
			_ = sr.Node().AppendChild(inner)
			_ = inner.AppendChild(slot)
			fx.hosts = append(fx.hosts, el)
			fx.nodes = append(fx.nodes, inner, slot)
			parents = append(parents, inner, sr.Node())
		}
	}
	return fx
}

// everyNode is the instrumentation surface: all created nodes plus the
// document scaffold.
func (fx *dispatchFixture) everyNode() []*Node {
	all := []*Node{fx.doc.Node(), fx.doc.Body()}
	return append(all, fx.nodes...)
}

// hostChain lists the targets an origin can be retargeted to: the
// origin itself, then the host of each enclosing boundary outward.
func hostChain(origin *Node) []*Node {
	chain := []*Node{origin}
	cur := origin
	for {
		root := cur.Root()
		if root.kind != KindShadowRoot {
			return chain
		}
		cur = root.owner.host
		chain = append(chain, cur)
	}
}

// TestDispatchProperties validates propagation invariants over randomly
// grown boundary trees.
func TestDispatchProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1712)
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	// Property: no listener ever observes a target hidden behind a
	// boundary it is outside of.
	properties.Property("observed target is visible from the listener's tree", prop.ForAll(
		func(seed int64, size, pick int) bool {
			fx := buildDispatchFixture(seed, size)
			if len(fx.nodes) == 0 {
				return true
			}

			type observation struct {
				listener *Node
				target   *Node
			}
			var seen []observation
			for _, n := range fx.everyNode() {
				record := func(ev *Event) {
					seen = append(seen, observation{ev.CurrentTarget(), ev.Target()})
				}
				n.AddEventListener("ping", HandlerFunc(record))
				n.AddEventListener("ping", HandlerFunc(record), WithCapture())
			}

			origin := fx.nodes[pick%len(fx.nodes)]
			origin.Dispatch(NewEvent("ping", EventInit{Bubbles: true, Composed: true}))

			if len(seen) == 0 {
				return false
			}
			for _, o := range seen {
				if !shadowIncludes(o.target.Root(), o.listener) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<30),
		gen.IntRange(1, 40),
		gen.IntRange(0, 1<<20),
	))

	// Property: the observed target is always the origin or the host of
	// an enclosing boundary, never some unrelated node.
	properties.Property("observed target lies on the origin's host chain", prop.ForAll(
		func(seed int64, size, pick int) bool {
			fx := buildDispatchFixture(seed, size)
			if len(fx.nodes) == 0 {
				return true
			}
			origin := fx.nodes[pick%len(fx.nodes)]
			chain := hostChain(origin)
			onChain := func(n *Node) bool {
				for _, c := range chain {
					if c == n {
						return true
					}
				}
				return false
			}

			ok := true
			for _, n := range fx.everyNode() {
				record := func(ev *Event) {
					if !onChain(ev.Target()) {
						ok = false
					}
				}
				n.AddEventListener("ping", HandlerFunc(record))
				n.AddEventListener("ping", HandlerFunc(record), WithCapture())
			}
			origin.Dispatch(NewEvent("ping", EventInit{Bubbles: true, Composed: true}))
			return ok
		},
		gen.Int64Range(0, 1<<30),
		gen.IntRange(1, 40),
		gen.IntRange(0, 1<<20),
	))

	// Property: with every node instrumented both ways, the capture
	// traversal visits exactly the bubble traversal's nodes in reverse,
	// each node once per direction.
	properties.Property("capture order mirrors bubble order", prop.ForAll(
		func(seed int64, size, pick int) bool {
			fx := buildDispatchFixture(seed, size)
			if len(fx.nodes) == 0 {
				return true
			}

			var captured, bubbled []*Node
			for _, n := range fx.everyNode() {
				n.AddEventListener("ping", HandlerFunc(func(ev *Event) {
					bubbled = append(bubbled, ev.CurrentTarget())
				}))
				n.AddEventListener("ping", HandlerFunc(func(ev *Event) {
					captured = append(captured, ev.CurrentTarget())
				}), WithCapture())
			}

			origin := fx.nodes[pick%len(fx.nodes)]
			origin.Dispatch(NewEvent("ping", EventInit{Bubbles: true, Composed: true}))

			if len(captured) != len(bubbled) || len(captured) == 0 {
				return false
			}
			seen := make(map[*Node]bool, len(captured))
			for i, n := range captured {
				if seen[n] {
					return false
				}
				seen[n] = true
				if bubbled[len(bubbled)-1-i] != n {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1<<30),
		gen.IntRange(1, 40),
		gen.IntRange(0, 1<<20),
	))

	// Property: a capture listener on a boundary's host observes every
	// composed event dispatched inside the boundary exactly once,
	// bubbling or not.
	properties.Property("boundary host capture fires exactly once", prop.ForAll(
		func(seed int64, size, pickHost, pickOrigin int, bubbles bool) bool {
			fx := buildDispatchFixture(seed, size)
			if len(fx.hosts) == 0 {
				return true
			}
			host := fx.hosts[pickHost%len(fx.hosts)]

			var inside []*Node
			for _, n := range fx.nodes {
				if n != host && shadowIncludes(host.shadow.root, n) {
					inside = append(inside, n)
				}
			}
			if len(inside) == 0 {
				return true
			}
			origin := inside[pickOrigin%len(inside)]

			fired := 0
			host.AddEventListener("ping", HandlerFunc(func(*Event) { fired++ }), WithCapture())
			origin.Dispatch(NewEvent("ping", EventInit{Bubbles: bubbles, Composed: true}))
			return fired == 1
		},
		gen.Int64Range(0, 1<<30),
		gen.IntRange(1, 40),
		gen.IntRange(0, 1<<20),
		gen.IntRange(0, 1<<20),
		gen.Bool(),
	))

	// Property: a non-composed event never runs a listener outside the
	// tree of the node it was dispatched on.
	properties.Property("non-composed events stay inside their tree", prop.ForAll(
		func(seed int64, size, pick int) bool {
			fx := buildDispatchFixture(seed, size)

			var shadowed []*Node
			for _, n := range fx.nodes {
				if n.Root().kind == KindShadowRoot {
					shadowed = append(shadowed, n)
				}
			}
			if len(shadowed) == 0 {
				return true
			}
			origin := shadowed[pick%len(shadowed)]

			ok := true
			for _, n := range fx.everyNode() {
				cur := n
				record := func(*Event) {
					if !shadowIncludes(origin.Root(), cur) {
						ok = false
					}
				}
				cur.AddEventListener("ping", HandlerFunc(record))
				cur.AddEventListener("ping", HandlerFunc(record), WithCapture())
			}
			origin.Dispatch(NewEvent("ping", EventInit{Bubbles: true, Composed: false}))
			return ok
		},
		gen.Int64Range(0, 1<<30),
		gen.IntRange(1, 40),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}

package registry

import (
	"sort"
	"strings"
	"testing"

	"github.com/umbralabs/umbra/dom"
)

// FuzzRegisterFragment tests fragment registration with various inputs
func FuzzRegisterFragment(f *testing.F) {
	f.Add("cart", "x-cart", "fragments/cart.html")
	f.Add("../../../etc/passwd", "x-evil", "./malicious.html")
	f.Add("<script>alert('xss')</script>", "x-xss", "./xss.html")
	f.Add("", "x-anon", "a.html")
	f.Add("nulls", "x-\x00null", "a.html")
	f.Add("upper", "X-UPPER", "a.html")
	f.Add("nodash", "nodash", "a.html")
	f.Add("unicode", "x-\U0001F3AF", "./unicode.html")
	f.Add("long"+strings.Repeat("a", 1000), "x-long", "long.html")

	f.Fuzz(func(t *testing.T, name, tag, template string) {
		if len(name)+len(tag)+len(template) > 50000 {
			t.Skip("Registration data too large")
		}

		registry := NewFragmentRegistry()
		err := registry.Register(&FragmentInfo{
			Name:         name,
			Tag:          tag,
			TemplatePath: template,
		})

		if err != nil {
			// Rejected registrations leave no trace
			if registry.Count() != 0 {
				t.Errorf("Rejected registration changed the registry: %q", name)
			}
			return
		}

		// Accepted registrations obey the tag rules and are retrievable
		if dom.ValidateTagName(tag) != nil {
			t.Errorf("Registered fragment has invalid tag: %q", tag)
		}
		if name == "" {
			t.Error("Registered fragment has empty name")
		}
		got, ok := registry.Get(name)
		if !ok || got.Tag != tag {
			t.Errorf("Registered fragment not retrievable by name: %q", name)
		}
		byTag, ok := registry.GetByTag(tag)
		if !ok || byTag.Name != name {
			t.Errorf("Registered fragment not retrievable by tag: %q", tag)
		}
		if registry.Count() != 1 {
			t.Errorf("Unexpected registry count %d", registry.Count())
		}
	})
}

// FuzzAnalyzeMarkup tests dependency analysis with adversarial markup
func FuzzAnalyzeMarkup(f *testing.F) {
	f.Add("<div>plain</div>")
	f.Add("<x-cart></x-cart>")
	f.Add("<section><x-cart><x-badge></x-badge></x-cart></section>")
	f.Add("<template><x-badge></x-badge></template>")
	f.Add(`<div><template shadowrootmode="open"><x-cart></x-cart></template></div>`)
	f.Add("<div><x-cart></div>")
	f.Add("<x-cart")
	f.Add("\x00\xff<x-badge>")
	f.Add("<!-- <x-cart> -->")

	f.Fuzz(func(t *testing.T, markup string) {
		if len(markup) > 50000 {
			t.Skip("Markup too large")
		}

		registry := NewFragmentRegistry()
		if err := registry.Register(&FragmentInfo{Name: "cart", Tag: "x-cart"}); err != nil {
			t.Fatal(err)
		}
		if err := registry.Register(&FragmentInfo{Name: "badge", Tag: "x-badge"}); err != nil {
			t.Fatal(err)
		}

		deps, err := registry.Analyzer().AnalyzeMarkup(markup, "probe")
		if err != nil {
			return
		}

		if !sort.StringsAreSorted(deps) {
			t.Errorf("Dependencies not sorted: %v", deps)
		}
		seen := make(map[string]bool)
		for _, dep := range deps {
			if dep != "cart" && dep != "badge" {
				t.Errorf("Dependency %q is not a registered fragment", dep)
			}
			if seen[dep] {
				t.Errorf("Dependency %q reported twice", dep)
			}
			seen[dep] = true
		}

		// Analysis is deterministic
		again, err := registry.Analyzer().AnalyzeMarkup(markup, "probe")
		if err != nil {
			t.Errorf("Second analysis failed: %v", err)
		} else if len(again) != len(deps) {
			t.Errorf("Analysis not deterministic: %v vs %v", deps, again)
		}
	})
}

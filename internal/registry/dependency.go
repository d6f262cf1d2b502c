package registry

import (
	"fmt"
	"sort"

	"github.com/umbralabs/umbra/dom"
)

// DependencyAnalyzer finds cross-fragment references in fragment
// markup: a fragment depends on every registered fragment whose tag
// appears as an element anywhere in its template, including inside
// template elements and open boundaries.
type DependencyAnalyzer struct {
	registry *FragmentRegistry
}

// NewDependencyAnalyzer creates a new dependency analyzer
func NewDependencyAnalyzer(registry *FragmentRegistry) *DependencyAnalyzer {
	return &DependencyAnalyzer{
		registry: registry,
	}
}

// AnalyzeMarkup parses markup and collects the names of registered
// fragments whose tags it uses, sorted. Self references are kept: a
// fragment embedding its own tag is a cycle the composition pass must
// refuse, not a reference to hide.
func (da *DependencyAnalyzer) AnalyzeMarkup(markup, fragmentName string) ([]string, error) {
	doc := dom.NewDocument()
	frag, err := doc.ParseFragment(markup, "div")
	if err != nil {
		return nil, fmt.Errorf("failed to parse fragment %s: %w", fragmentName, err)
	}

	tags := da.tagIndex()
	found := make(map[string]bool)
	var walk func(n *dom.Node)
	walk = func(n *dom.Node) {
		if n.Kind() == dom.KindElement {
			if name, ok := tags[n.Tag()]; ok {
				found[name] = true
			}
		}
		if sr := n.Shadow(); sr != nil {
			walk(sr.Node())
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(frag)

	result := make([]string, 0, len(found))
	for name := range found {
		result = append(result, name)
	}
	sort.Strings(result)
	return result, nil
}

// UpdateAll recomputes dependencies for every registered fragment from
// its current markup.
func (da *DependencyAnalyzer) UpdateAll() error {
	fragments := da.registry.GetAll()

	for _, fragment := range fragments {
		deps, err := da.AnalyzeMarkup(fragment.Markup, fragment.Name)
		if err != nil {
			// Keep the previous dependency set for unparseable markup
			continue
		}

		da.registry.mutex.Lock()
		if existing := da.registry.fragments[fragment.Name]; existing != nil {
			existing.Dependencies = deps
		}
		da.registry.mutex.Unlock()
	}

	return nil
}

// Dependents returns the names of fragments that depend on the given
// fragment, sorted.
func (da *DependencyAnalyzer) Dependents(name string) []string {
	da.registry.mutex.RLock()
	defer da.registry.mutex.RUnlock()

	var dependents []string
	for _, fragment := range da.registry.fragments {
		for _, dep := range fragment.Dependencies {
			if dep == name {
				dependents = append(dependents, fragment.Name)
				break
			}
		}
	}
	sort.Strings(dependents)
	return dependents
}

// DependencyGraph returns the full dependency graph
func (da *DependencyAnalyzer) DependencyGraph() map[string][]string {
	graph := make(map[string][]string)

	da.registry.mutex.RLock()
	defer da.registry.mutex.RUnlock()

	for name, fragment := range da.registry.fragments {
		graph[name] = make([]string, len(fragment.Dependencies))
		copy(graph[name], fragment.Dependencies)
	}

	return graph
}

// DetectCycles detects circular embeddings in the dependency graph.
// Each cycle comes back as a path closed on its first fragment; a
// fragment embedding itself reports as a two-element cycle.
func (da *DependencyAnalyzer) DetectCycles() [][]string {
	var cycles [][]string
	graph := da.DependencyGraph()

	names := make([]string, 0, len(graph))
	for name := range graph {
		names = append(names, name)
	}
	sort.Strings(names)

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	for _, name := range names {
		if !visited[name] {
			if cycle := detectCycleDFS(name, graph, visited, recStack, nil); cycle != nil {
				cycles = append(cycles, cycle)
			}
		}
	}

	return cycles
}

// detectCycleDFS performs DFS to detect cycles
func detectCycleDFS(name string, graph map[string][]string, visited, recStack map[string]bool, path []string) []string {
	visited[name] = true
	recStack[name] = true
	path = append(path, name)

	for _, dep := range graph[name] {
		if !visited[dep] {
			if cycle := detectCycleDFS(dep, graph, visited, recStack, path); cycle != nil {
				return cycle
			}
		} else if recStack[dep] {
			// Found a cycle; extract it from the path
			cycleStart := -1
			for i, p := range path {
				if p == dep {
					cycleStart = i
					break
				}
			}
			if cycleStart >= 0 {
				cycle := make([]string, len(path)-cycleStart+1)
				copy(cycle, path[cycleStart:])
				cycle[len(cycle)-1] = dep // Close the cycle
				return cycle
			}
		}
	}

	recStack[name] = false
	return nil
}

// tagIndex snapshots the tag to name mapping.
func (da *DependencyAnalyzer) tagIndex() map[string]string {
	da.registry.mutex.RLock()
	defer da.registry.mutex.RUnlock()

	tags := make(map[string]string, len(da.registry.tags))
	for tag, name := range da.registry.tags {
		tags[tag] = name
	}
	return tags
}

// Analyzer returns the registry's dependency analyzer.
func (r *FragmentRegistry) Analyzer() *DependencyAnalyzer {
	return r.analyzer
}

// UpdateAllDependencies recomputes dependencies for all fragments.
func (r *FragmentRegistry) UpdateAllDependencies() error {
	return r.analyzer.UpdateAll()
}

// Dependents returns the names of fragments that embed the given one.
func (r *FragmentRegistry) Dependents(name string) []string {
	return r.analyzer.Dependents(name)
}

// DependencyGraph returns the full dependency graph.
func (r *FragmentRegistry) DependencyGraph() map[string][]string {
	return r.analyzer.DependencyGraph()
}

// DetectCycles detects circular fragment embeddings.
func (r *FragmentRegistry) DetectCycles() [][]string {
	return r.analyzer.DetectCycles()
}

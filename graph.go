package derivable

import "strconv"

// GraphNode is a snapshot of a node and its recorded dependencies
type GraphNode struct {
	ID           uint64
	Name         string
	Kind         string
	Version      uint64
	State        string
	Connected    bool
	Observers    int
	Dependencies []*GraphNode
}

// Label returns the name, or a generated label for anonymous nodes
func (g *GraphNode) Label() string {
	if g.Name != "" {
		return g.Name
	}
	return g.Kind + "#" + strconv.FormatUint(g.ID, 10)
}

// DependencyTree walks the recorded dependencies of n. Only connected
// nodes keep dependency lists, so a disconnected derivation is a leaf.
// Shared dependencies appear under every parent; cycles cannot occur.
func DependencyTree(n Observable) *GraphNode {
	return dependencyTree(n.node(), make(map[uint64]*GraphNode))
}

func dependencyTree(dep dependency, seen map[uint64]*GraphNode) *GraphNode {
	b := dep.base()
	if g, ok := seen[b.id]; ok {
		return g
	}

	g := &GraphNode{
		ID:        b.id,
		Name:      b.name,
		Kind:      dep.kindName(),
		Version:   b.version,
		State:     dep.stateText(),
		Observers: len(b.observers),
	}
	if c, ok := dep.(interface{ Connected() bool }); ok {
		g.Connected = c.Connected()
	}
	seen[b.id] = g

	for _, child := range dep.dependencies() {
		g.Dependencies = append(g.Dependencies, dependencyTree(child, seen))
	}
	return g
}

// Walk visits g and its dependencies depth-first until visitor returns false
func (g *GraphNode) Walk(visitor func(*GraphNode) bool) bool {
	if !visitor(g) {
		return false
	}
	for _, child := range g.Dependencies {
		if !child.Walk(visitor) {
			return false
		}
	}
	return true
}

// Utility functions for working with slices efficiently

func appendUnique[T comparable](slice []T, item T) []T {
	for _, existing := range slice {
		if existing == item {
			return slice
		}
	}
	return append(slice, item)
}

func removeElement[T comparable](slice []T, item T) []T {
	for i, existing := range slice {
		if existing == item {
			return append(slice[:i], slice[i+1:]...)
		}
	}
	return slice
}

func containsElement[T comparable](slice []T, item T) bool {
	for _, existing := range slice {
		if existing == item {
			return true
		}
	}
	return false
}

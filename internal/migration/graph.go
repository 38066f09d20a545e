package migration

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrMultipleHeads is returned when "head" is ambiguous
	ErrMultipleHeads = errors.New("multiple head revisions are present")
	// ErrUnknownRevision is returned when a revision cannot be resolved
	ErrUnknownRevision = errors.New("unknown revision")
	// ErrAmbiguousRevision is returned when a prefix matches several revisions
	ErrAmbiguousRevision = errors.New("ambiguous revision prefix")
)

// revisionNode represents a node in the revision graph
type revisionNode struct {
	Revision *Revision
	ID       string
}

// Graph is the revision graph, each revision pointing at its down revisions.
// It is immutable once built and safe for concurrent use.
type Graph struct {
	nodes    map[string]*revisionNode
	edges    map[string][]string // child -> parents
	children map[string][]string // parent -> children
}

// NewGraph builds and validates the graph of revisions
func NewGraph(revisions []*Revision) (*Graph, error) {
	g := &Graph{
		nodes:    make(map[string]*revisionNode),
		edges:    make(map[string][]string),
		children: make(map[string][]string),
	}

	for _, rev := range revisions {
		if _, exists := g.nodes[rev.ID]; exists {
			return nil, fmt.Errorf("duplicate revision %s", rev.ID)
		}
		g.addNode(rev)
	}

	var unknown []string
	for _, rev := range revisions {
		for _, parent := range rev.DownRevisions {
			if _, exists := g.nodes[parent]; !exists {
				unknown = append(unknown, fmt.Sprintf("%s -> %s", rev.ID, parent))
				continue
			}
			g.addEdge(rev.ID, parent)
		}
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: down revisions not found: %s", ErrUnknownRevision, strings.Join(unknown, ", "))
	}

	if _, err := g.DetectCycles(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Graph) addNode(rev *Revision) {
	g.nodes[rev.ID] = &revisionNode{Revision: rev, ID: rev.ID}
	g.edges[rev.ID] = []string{}
}

// addEdge records that child depends on parent, so parent runs first
func (g *Graph) addEdge(child, parent string) {
	g.edges[child] = append(g.edges[child], parent)
	g.children[parent] = append(g.children[parent], child)
}

// Len returns the number of revisions
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Get returns the revision with the exact id
func (g *Graph) Get(id string) (*Revision, bool) {
	node, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return node.Revision, true
}

// Resolve finds a revision by id, branch label or unique id prefix
func (g *Graph) Resolve(ref string) (*Revision, error) {
	if rev, ok := g.Get(ref); ok {
		return rev, nil
	}

	var matches []string
	for id, node := range g.nodes {
		for _, label := range node.Revision.BranchLabels {
			if label == ref {
				return node.Revision, nil
			}
		}
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownRevision, ref)
	case 1:
		return g.nodes[matches[0]].Revision, nil
	default:
		sort.Strings(matches)
		return nil, fmt.Errorf("%w %q: %s", ErrAmbiguousRevision, ref, strings.Join(matches, ", "))
	}
}

// DetectCycles detects cycles in the revision graph using DFS
func (g *Graph) DetectCycles() ([]string, error) {
	visited := make(map[string]bool, len(g.nodes))
	path := make(map[string]bool)
	cyclePath := []string{}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		if visited[id] {
			return false
		}
		if path[id] {
			cyclePath = append(cyclePath, id)
			return true
		}

		path[id] = true
		for _, parent := range g.edges[id] {
			if dfs(parent) {
				cyclePath = append(cyclePath, id)
				return true
			}
		}
		delete(path, id)
		visited[id] = true
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] && dfs(id) {
			for i, j := 0, len(cyclePath)-1; i < j; i, j = i+1, j-1 {
				cyclePath[i], cyclePath[j] = cyclePath[j], cyclePath[i]
			}
			return cyclePath, fmt.Errorf("circular dependency detected: %s", strings.Join(cyclePath, " -> "))
		}
	}

	return nil, nil
}

// TopologicalSort orders revisions parents first using Kahn's algorithm.
// Ties are broken by create date, then id.
func (g *Graph) TopologicalSort() []*Revision {
	inDegree := make(map[string]int, len(g.nodes))
	queue := []string{}
	for id := range g.nodes {
		inDegree[id] = len(g.edges[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	g.sortQueue(queue)

	sorted := make([]*Revision, 0, len(g.nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, g.nodes[current].Revision)

		for _, child := range g.children[current] {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
		g.sortQueue(queue)
	}

	return sorted
}

func (g *Graph) sortQueue(queue []string) {
	sort.Slice(queue, func(i, j int) bool {
		a, b := g.nodes[queue[i]].Revision, g.nodes[queue[j]].Revision
		if !a.CreateDate.Equal(b.CreateDate) {
			return a.CreateDate.Before(b.CreateDate)
		}
		return a.ID < b.ID
	})
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Heads returns the revisions nothing depends on
func (g *Graph) Heads() []string {
	var heads []string
	for _, id := range g.sortedIDs() {
		if len(g.children[id]) == 0 {
			heads = append(heads, id)
		}
	}
	return heads
}

// Bases returns the revisions without down revisions
func (g *Graph) Bases() []string {
	var bases []string
	for _, id := range g.sortedIDs() {
		if len(g.edges[id]) == 0 {
			bases = append(bases, id)
		}
	}
	return bases
}

// Ancestors returns ids and every revision they depend on, transitively
func (g *Graph) Ancestors(ids ...string) map[string]bool {
	seen := make(map[string]bool)
	stack := append([]string(nil), ids...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		if _, ok := g.nodes[id]; !ok {
			continue
		}
		seen[id] = true
		stack = append(stack, g.edges[id]...)
	}
	return seen
}

// HeadsOf returns the members of set that no other member depends on
func (g *Graph) HeadsOf(set map[string]bool) []string {
	var heads []string
	for _, id := range g.sortedIDs() {
		if !set[id] {
			continue
		}
		isHead := true
		for _, child := range g.children[id] {
			if set[child] {
				isHead = false
				break
			}
		}
		if isHead {
			heads = append(heads, id)
		}
	}
	return heads
}

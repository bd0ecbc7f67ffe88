// Package curriculum exposes the Subject > Chapter > Section > Concept structure of an
// ontology graph and the prerequisite links between concepts.
package curriculum

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// View answers curriculum questions over an immutable graph.
type View struct {
	g  *graph.Graph
	ns vocab.Namespace
}

// NewView creates a View over g using the curriculum namespace ns.
func NewView(g *graph.Graph, ns vocab.Namespace) *View {
	if ns == "" {
		ns = vocab.DefaultNamespace
	}
	return &View{g: g, ns: ns}
}

// Graph returns the underlying graph.
func (v *View) Graph() *graph.Graph {
	return v.g
}

// Namespace returns the curriculum namespace.
func (v *View) Namespace() vocab.Namespace {
	return v.ns
}

// Kind classifies node by its rdf:type.
func (v *View) Kind(node graph.Term) domain.NodeKind {
	switch {
	case v.g.HasType(node, v.ns.Concept()):
		return domain.NodeKindConcept
	case v.g.HasType(node, v.ns.Section()):
		return domain.NodeKindSection
	case v.g.HasType(node, v.ns.Chapter()):
		return domain.NodeKindChapter
	case v.g.HasType(node, v.ns.Subject()):
		return domain.NodeKindSubject
	}
	return domain.NodeKindOther
}

// Node describes node with its display label, all labels and comment.
func (v *View) Node(node graph.Term) domain.Node {
	label, _ := v.g.Label(node)
	return domain.Node{
		IRI:     node.Value,
		Kind:    v.Kind(node),
		Label:   label,
		Labels:  v.g.Labels(node),
		Comment: v.g.Comment(node),
	}
}

// Concepts lists every concept with its hierarchy, ordered by label then IRI.
func (v *View) Concepts() []domain.Concept {
	nodes := v.g.InstancesOf(v.ns.Concept())
	out := make([]domain.Concept, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, domain.Concept{Node: v.Node(n), Hierarchy: v.Hierarchy(n)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].IRI < out[j].IRI
	})
	return out
}

// FindConcepts returns the concepts having label as one of their labels, in IRI order.
func (v *View) FindConcepts(label string) []graph.Term {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil
	}
	var out []graph.Term
	for _, n := range v.g.InstancesOf(v.ns.Concept()) {
		for _, l := range v.g.Labels(n) {
			if l == label {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// FindConcept returns the first concept labeled label.
func (v *View) FindConcept(label string) (graph.Term, bool) {
	found := v.FindConcepts(label)
	if len(found) == 0 {
		return graph.Term{}, false
	}
	return found[0], true
}

// Hierarchy resolves the section, chapter and subject above concept. Levels missing in
// the graph stay nil; a chapter without a subject is still reported.
func (v *View) Hierarchy(concept graph.Term) domain.Hierarchy {
	var h domain.Hierarchy
	sections := v.g.Subjects(v.ns.HasConcept(), concept)
	if len(sections) == 0 {
		return h
	}
	h.Section = v.nodePtr(sections[0])

	chapters := v.g.Subjects(v.ns.HasSection(), sections[0])
	if len(chapters) == 0 {
		return h
	}
	h.Chapter = v.nodePtr(chapters[0])

	subjects := v.g.Subjects(v.ns.HasChapter(), chapters[0])
	if len(subjects) > 0 {
		h.Subject = v.nodePtr(subjects[0])
	}
	return h
}

func (v *View) nodePtr(t graph.Term) *domain.Node {
	n := v.Node(t)
	n.Labels = nil
	return &n
}

// Prerequisites returns the direct prerequisites of concept, one per edge.
func (v *View) Prerequisites(concept graph.Term) []domain.Node {
	var out []domain.Node
	for _, p := range v.g.Subjects(v.ns.PrerequisiteOf(), concept) {
		out = append(out, v.Node(p))
	}
	return out
}

// Dependents returns the concepts that list concept as a prerequisite.
func (v *View) Dependents(concept graph.Term) []domain.Node {
	var out []domain.Node
	for _, d := range v.g.Objects(concept, v.ns.PrerequisiteOf()) {
		out = append(out, v.Node(d))
	}
	return out
}

// Walk follows prerequisiteOf backwards from concept, level by level, up to maxDepth
// levels (all of them when maxDepth <= 0). Each concept is visited once, so cycles
// terminate.
func (v *View) Walk(concept graph.Term, maxDepth int) domain.PrerequisiteWalk {
	walk := domain.PrerequisiteWalk{Concept: v.Node(concept)}

	visited := map[graph.Term]bool{concept: true}
	frontier := []graph.Term{concept}
	for depth := 1; len(frontier) > 0 && (maxDepth <= 0 || depth <= maxDepth); depth++ {
		var next []graph.Term
		level := domain.PrerequisiteLevel{Depth: depth}
		for _, node := range frontier {
			to := v.Node(node)
			for _, parent := range v.g.Subjects(v.ns.PrerequisiteOf(), node) {
				from := v.Node(parent)
				walk.Edges = append(walk.Edges, domain.PrerequisiteEdge{From: from, To: to})
				if visited[parent] {
					continue
				}
				visited[parent] = true
				next = append(next, parent)
				level.Concepts = append(level.Concepts, from)
			}
		}
		if len(level.Concepts) > 0 {
			walk.Levels = append(walk.Levels, level)
		}
		frontier = next
	}
	return walk
}

// Path returns the shortest chain of prerequisiteOf edges leading from one concept to
// another, both ends included. It returns nil when to is not reachable.
func (v *View) Path(from, to graph.Term) []domain.Node {
	if from == to {
		return []domain.Node{v.Node(from)}
	}

	parents := map[graph.Term]graph.Term{}
	visited := map[graph.Term]bool{from: true}
	queue := []graph.Term{from}
	found := false
	for len(queue) > 0 && !found {
		current := queue[0]
		queue = queue[1:]
		for _, next := range v.g.Objects(current, v.ns.PrerequisiteOf()) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parents[next] = current
			if next == to {
				found = true
				break
			}
			queue = append(queue, next)
		}
	}
	if !found {
		return nil
	}

	var path []domain.Node
	for at := to; ; at = parents[at] {
		path = append(path, v.Node(at))
		if at == from {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// MatchLabels returns concept labels that occur in text, ignoring whitespace and case.
// Longer labels come first so that "합성함수의 미분" ranks above "미분".
func (v *View) MatchLabels(text string) []string {
	haystack := compact(text)
	if haystack == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, n := range v.g.InstancesOf(v.ns.Concept()) {
		for _, l := range v.g.Labels(n) {
			key := compact(l)
			if key == "" || seen[l] || !strings.Contains(haystack, key) {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := len([]rune(out[i])), len([]rune(out[j]))
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

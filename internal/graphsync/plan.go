// Package graphsync mirrors the curriculum snapshot into Neo4j for browsing and
// ad-hoc Cypher.
package graphsync

import (
	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
)

// Relationship types written to Neo4j, keyed by the curriculum property local name.
const (
	RelHasChapter     = "HAS_CHAPTER"
	RelHasSection     = "HAS_SECTION"
	RelHasConcept     = "HAS_CONCEPT"
	RelPrerequisiteOf = "PREREQUISITE_OF"
)

// nodeKinds are the node labels written, in write order.
var nodeKinds = []domain.NodeKind{
	domain.NodeKindSubject,
	domain.NodeKindChapter,
	domain.NodeKindSection,
	domain.NodeKindConcept,
}

// relTypes are the relationship types written, in write order.
var relTypes = []string{RelHasChapter, RelHasSection, RelHasConcept, RelPrerequisiteOf}

// Plan is the batch parameters for one sync.
type Plan struct {
	Nodes map[domain.NodeKind][]map[string]any
	Rels  map[string][]map[string]any
}

// NodeCount returns the number of nodes in the plan.
func (p Plan) NodeCount() int {
	n := 0
	for _, batch := range p.Nodes {
		n += len(batch)
	}
	return n
}

// RelCount returns the number of relationships in the plan.
func (p Plan) RelCount() int {
	n := 0
	for _, batch := range p.Rels {
		n += len(batch)
	}
	return n
}

// BuildPlan collects the typed nodes and the structural edges of view. A node typed
// with several curriculum classes is written under the most specific one. Edges whose
// endpoints are not typed nodes are left out.
func BuildPlan(view *curriculum.View, version string) Plan {
	ns := view.Namespace()
	g := view.Graph()

	plan := Plan{
		Nodes: make(map[domain.NodeKind][]map[string]any),
		Rels:  make(map[string][]map[string]any),
	}

	known := make(map[graph.Term]bool)
	classes := map[domain.NodeKind]string{
		domain.NodeKindSubject: ns.Subject(),
		domain.NodeKindChapter: ns.Chapter(),
		domain.NodeKindSection: ns.Section(),
		domain.NodeKindConcept: ns.Concept(),
	}
	for _, kind := range nodeKinds {
		for _, t := range g.InstancesOf(classes[kind]) {
			if !t.IsIRI() || known[t] || view.Kind(t) != kind {
				continue
			}
			known[t] = true
			n := view.Node(t)
			labels := n.Labels
			if labels == nil {
				labels = []string{}
			}
			plan.Nodes[kind] = append(plan.Nodes[kind], map[string]any{
				"iri":           n.IRI,
				"label":         n.Label,
				"labels":        labels,
				"comment":       n.Comment,
				"graph_version": version,
			})
		}
	}

	props := map[string]string{
		RelHasChapter:     ns.HasChapter(),
		RelHasSection:     ns.HasSection(),
		RelHasConcept:     ns.HasConcept(),
		RelPrerequisiteOf: ns.PrerequisiteOf(),
	}
	for _, rel := range relTypes {
		pred := graph.IRI(props[rel])
		for _, t := range g.Match(nil, &pred, nil) {
			if !known[t.S] || !known[t.O] {
				continue
			}
			plan.Rels[rel] = append(plan.Rels[rel], map[string]any{
				"from": t.S.Value,
				"to":   t.O.Value,
			})
		}
	}

	return plan
}

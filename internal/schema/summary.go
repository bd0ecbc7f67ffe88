// Package schema derives the textual ontology summary used to ground query synthesis.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// Options controls the size of the summary.
type Options struct {
	Namespace vocab.Namespace
	// SampleLabels is the number of labels listed per curriculum class.
	SampleLabels int
}

// DefaultOptions returns the options used by the service.
func DefaultOptions(ns vocab.Namespace) Options {
	return Options{Namespace: ns, SampleLabels: 15}
}

type count struct {
	iri string
	n   int
}

// Summarize describes the vocabulary of g: prefixes, classes with instance counts,
// properties with usage counts, hierarchy shapes and sample labels. The output only
// depends on g and opts.
func Summarize(g *graph.Graph, opts Options) string {
	ns := opts.Namespace
	if ns == "" {
		ns = vocab.DefaultNamespace
	}
	if opts.SampleLabels <= 0 {
		opts.SampleLabels = DefaultOptions(ns).SampleLabels
	}

	classes := make(map[string]int)
	properties := make(map[string]int)
	for _, t := range g.Triples() {
		properties[t.P.Value]++
		if t.P.Value == vocab.RDFType && t.O.IsIRI() && !isMetaClass(t.O.Value) {
			classes[t.O.Value]++
		}
	}

	var b strings.Builder
	b.WriteString("Prefixes:\n")
	fmt.Fprintf(&b, "  PREFIX : <%s>\n", ns)
	fmt.Fprintf(&b, "  PREFIX rdfs: <%s>\n", vocab.RDFSNamespace)

	b.WriteString("\nClasses (instances):\n")
	for _, c := range sorted(classes) {
		fmt.Fprintf(&b, "  %s (%d)\n", vocab.Compact(ns, c.iri), c.n)
	}

	b.WriteString("\nProperties (usages):\n")
	for _, p := range sorted(properties) {
		fmt.Fprintf(&b, "  %s (%d)\n", vocab.Compact(ns, p.iri), p.n)
	}

	b.WriteString("\nHierarchy:\n")
	for _, prop := range []string{ns.HasChapter(), ns.HasSection(), ns.HasConcept(), ns.PrerequisiteOf()} {
		for _, shape := range shapes(g, ns, prop) {
			fmt.Fprintf(&b, "  %s\n", shape)
		}
	}

	b.WriteString("\nSample labels:\n")
	for _, class := range []string{ns.Subject(), ns.Chapter(), ns.Section(), ns.Concept()} {
		labels := sampleLabels(g, class, opts.SampleLabels)
		if len(labels) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s: %s\n", vocab.Compact(ns, class), strings.Join(labels, ", "))
	}

	return b.String()
}

func isMetaClass(iri string) bool {
	switch iri {
	case vocab.OWLClass, vocab.OWLObjectProp, vocab.RDFSClass, vocab.RDFProperty:
		return true
	}
	return false
}

func sorted(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for k, v := range m {
		out = append(out, count{iri: k, n: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].iri < out[j].iri })
	return out
}

// shapes lists "?s a :A ; prop ?o . ?o a :B" pairs observed in the data, falling back to
// the declared rdfs:domain and rdfs:range when the property is unused.
func shapes(g *graph.Graph, ns vocab.Namespace, prop string) []string {
	pred := graph.IRI(prop)
	pairs := make(map[string]bool)
	for _, t := range g.Match(nil, &pred, nil) {
		for _, sc := range typesOf(g, t.S) {
			for _, oc := range typesOf(g, t.O) {
				pairs[fmt.Sprintf("%s %s %s", vocab.Compact(ns, sc), vocab.Compact(ns, prop), vocab.Compact(ns, oc))] = true
			}
		}
	}
	if len(pairs) == 0 {
		p := graph.IRI(prop)
		for _, d := range g.Objects(p, vocab.RDFSDomain) {
			for _, r := range g.Objects(p, vocab.RDFSRange) {
				pairs[fmt.Sprintf("%s %s %s", vocab.Compact(ns, d.Value), vocab.Compact(ns, prop), vocab.Compact(ns, r.Value))] = true
			}
		}
	}
	out := make([]string, 0, len(pairs))
	for p := range pairs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func typesOf(g *graph.Graph, node graph.Term) []string {
	var out []string
	for _, t := range g.Objects(node, vocab.RDFType) {
		if t.IsIRI() && !isMetaClass(t.Value) {
			out = append(out, t.Value)
		}
	}
	return out
}

func sampleLabels(g *graph.Graph, class string, limit int) []string {
	seen := make(map[string]bool)
	var labels []string
	for _, node := range g.InstancesOf(class) {
		if label, ok := g.Label(node); ok && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	if len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}

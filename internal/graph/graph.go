package graph

import (
	"sort"

	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// Graph is an immutable set of triples indexed by subject, predicate and object.
// Build one with a Builder; a built Graph is safe for concurrent readers.
type Graph struct {
	triples     []Triple
	bySubject   map[Term][]int
	byPredicate map[Term][]int
	byObject    map[Term][]int
}

// Builder accumulates triples for a new Graph. Identical triples collapse.
type Builder struct {
	seen    map[Triple]struct{}
	triples []Triple
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{seen: make(map[Triple]struct{})}
}

// Add appends triples that are not already present.
func (b *Builder) Add(ts ...Triple) *Builder {
	for _, t := range ts {
		if _, ok := b.seen[t]; ok {
			continue
		}
		b.seen[t] = struct{}{}
		b.triples = append(b.triples, t)
	}
	return b
}

// AddGraph appends every triple of g.
func (b *Builder) AddGraph(g *Graph) *Builder {
	if g == nil {
		return b
	}
	return b.Add(g.triples...)
}

// Len returns the number of distinct triples added so far.
func (b *Builder) Len() int {
	return len(b.triples)
}

// Build sorts and indexes the triples. The Builder can keep being used afterwards.
func (b *Builder) Build() *Graph {
	triples := make([]Triple, len(b.triples))
	copy(triples, b.triples)
	sort.Slice(triples, func(i, j int) bool { return tripleLess(triples[i], triples[j]) })

	g := &Graph{
		triples:     triples,
		bySubject:   make(map[Term][]int),
		byPredicate: make(map[Term][]int),
		byObject:    make(map[Term][]int),
	}
	for i, t := range triples {
		g.bySubject[t.S] = append(g.bySubject[t.S], i)
		g.byPredicate[t.P] = append(g.byPredicate[t.P], i)
		g.byObject[t.O] = append(g.byObject[t.O], i)
	}
	return g
}

// New builds a Graph from a list of triples.
func New(ts ...Triple) *Graph {
	return NewBuilder().Add(ts...).Build()
}

// Merge returns the union of the given graphs. Nil graphs are ignored.
func Merge(gs ...*Graph) *Graph {
	b := NewBuilder()
	for _, g := range gs {
		b.AddGraph(g)
	}
	return b.Build()
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	if g == nil {
		return 0
	}
	return len(g.triples)
}

// Triples returns a copy of all triples in sorted order.
func (g *Graph) Triples() []Triple {
	if g == nil {
		return nil
	}
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// Match returns the triples matching the pattern. A nil position matches anything.
func (g *Graph) Match(s, p, o *Term) []Triple {
	if g == nil {
		return nil
	}

	var candidates []int
	scan := true
	pick := func(idx map[Term][]int, t *Term) {
		if t == nil {
			return
		}
		list := idx[*t]
		if scan || len(list) < len(candidates) {
			candidates = list
			scan = false
		}
	}
	pick(g.bySubject, s)
	pick(g.byPredicate, p)
	pick(g.byObject, o)

	var out []Triple
	visit := func(t Triple) {
		if s != nil && t.S != *s {
			return
		}
		if p != nil && t.P != *p {
			return
		}
		if o != nil && t.O != *o {
			return
		}
		out = append(out, t)
	}
	if scan {
		for _, t := range g.triples {
			visit(t)
		}
		return out
	}
	for _, i := range candidates {
		visit(g.triples[i])
	}
	return out
}

// Has reports whether the triple is in the graph.
func (g *Graph) Has(t Triple) bool {
	return len(g.Match(&t.S, &t.P, &t.O)) > 0
}

// Objects returns the objects of (s, p, ?o) in sorted order.
func (g *Graph) Objects(s Term, p string) []Term {
	pred := IRI(p)
	var out []Term
	for _, t := range g.Match(&s, &pred, nil) {
		out = append(out, t.O)
	}
	return out
}

// Subjects returns the subjects of (?s, p, o) in sorted order.
func (g *Graph) Subjects(p string, o Term) []Term {
	pred := IRI(p)
	var out []Term
	for _, t := range g.Match(nil, &pred, &o) {
		out = append(out, t.S)
	}
	return out
}

// InstancesOf returns the subjects typed with class.
func (g *Graph) InstancesOf(class string) []Term {
	return g.Subjects(vocab.RDFType, IRI(class))
}

// HasType reports whether node has rdf:type class.
func (g *Graph) HasType(node Term, class string) bool {
	return g.Has(Triple{S: node, P: IRI(vocab.RDFType), O: IRI(class)})
}

// Labels returns every rdfs:label literal of node.
func (g *Graph) Labels(node Term) []string {
	var out []string
	for _, o := range g.Objects(node, vocab.RDFSLabel) {
		if o.IsLiteral() {
			out = append(out, o.Value)
		}
	}
	return out
}

// Label picks the display label of node: a Korean literal, then an untagged one,
// then the first in sort order.
func (g *Graph) Label(node Term) (string, bool) {
	var untagged, first string
	found := false
	for _, o := range g.Objects(node, vocab.RDFSLabel) {
		if !o.IsLiteral() {
			continue
		}
		if o.Lang == "ko" {
			return o.Value, true
		}
		if o.Lang == "" && untagged == "" {
			untagged = o.Value
		}
		if !found {
			first = o.Value
			found = true
		}
	}
	if untagged != "" {
		return untagged, true
	}
	return first, found
}

// Comment returns the first rdfs:comment literal of node.
func (g *Graph) Comment(node Term) string {
	for _, o := range g.Objects(node, vocab.RDFSComment) {
		if o.IsLiteral() {
			return o.Value
		}
	}
	return ""
}

// MapIRIs returns a new graph with every IRI passed through fn.
func (g *Graph) MapIRIs(fn func(string) string) *Graph {
	b := NewBuilder()
	conv := func(t Term) Term {
		if t.IsIRI() {
			return IRI(fn(t.Value))
		}
		if t.IsLiteral() && t.Datatype != "" {
			t.Datatype = fn(t.Datatype)
		}
		return t
	}
	for _, t := range g.Triples() {
		b.Add(Triple{S: conv(t.S), P: conv(t.P), O: conv(t.O)})
	}
	return b.Build()
}

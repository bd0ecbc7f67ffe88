package schema_test

import (
	"testing"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/schema"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	g := testutil.CurriculumGraph(t)

	summary := schema.Summarize(g, schema.DefaultOptions(vocab.DefaultNamespace))

	assert.Contains(t, summary, "PREFIX : <http://snu.ac.kr/math/>")
	assert.Contains(t, summary, ":Concept (7)")
	assert.Contains(t, summary, ":Subject (2)")
	assert.Contains(t, summary, ":Subject :hasChapter :Chapter")
	assert.Contains(t, summary, ":Section :hasConcept :Concept")
	assert.Contains(t, summary, ":Concept :prerequisiteOf :Concept")
	assert.Contains(t, summary, "rdfs:label")
	assert.Contains(t, summary, "합성함수의 미분")
	assert.NotContains(t, summary, "owl:Class (", "meta classes are not curriculum classes")
}

func TestSummarize_Idempotent(t *testing.T) {
	g := testutil.CurriculumGraph(t)
	opts := schema.DefaultOptions(vocab.DefaultNamespace)

	first := schema.Summarize(g, opts)
	second := schema.Summarize(g, opts)
	rebuilt := schema.Summarize(graph.Merge(g), opts)

	assert.Equal(t, first, second)
	assert.Equal(t, first, rebuilt)
}

func TestSummarize_SampleLimit(t *testing.T) {
	g := testutil.CurriculumGraph(t)

	summary := schema.Summarize(g, schema.Options{Namespace: vocab.DefaultNamespace, SampleLabels: 1})

	// The untagged Korean label is the display label, so "Chain rule" is not listed.
	assert.Contains(t, summary, ":Concept: 급수\n")
}

func TestSummarize_DeclaredShapesWhenUnused(t *testing.T) {
	ns := vocab.DefaultNamespace
	prop := graph.IRI(ns.HasChapter())
	g := graph.New(
		graph.Triple{S: prop, P: graph.IRI(vocab.RDFSDomain), O: graph.IRI(ns.Subject())},
		graph.Triple{S: prop, P: graph.IRI(vocab.RDFSRange), O: graph.IRI(ns.Chapter())},
	)

	summary := schema.Summarize(g, schema.DefaultOptions(ns))

	assert.Contains(t, summary, ":Subject :hasChapter :Chapter")
}

package graphsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

func TestBuildPlan(t *testing.T) {
	view := curriculum.NewView(testutil.CurriculumGraph(t), vocab.DefaultNamespace)
	plan := BuildPlan(view, "v1")

	assert.Len(t, plan.Nodes[domain.NodeKindSubject], 2)
	assert.Len(t, plan.Nodes[domain.NodeKindChapter], 4)
	assert.Len(t, plan.Nodes[domain.NodeKindSection], 4)
	assert.Len(t, plan.Nodes[domain.NodeKindConcept], 7)
	assert.Equal(t, 17, plan.NodeCount())

	assert.Len(t, plan.Rels[RelHasChapter], 3)
	assert.Len(t, plan.Rels[RelHasSection], 4)
	assert.Len(t, plan.Rels[RelHasConcept], 6)
	assert.Len(t, plan.Rels[RelPrerequisiteOf], 5)
	assert.Equal(t, 18, plan.RelCount())
}

func TestBuildPlan_NodeProperties(t *testing.T) {
	view := curriculum.NewView(testutil.CurriculumGraph(t), vocab.DefaultNamespace)
	plan := BuildPlan(view, "v7")

	var chain map[string]any
	for _, n := range plan.Nodes[domain.NodeKindConcept] {
		if n["iri"] == vocab.DefaultNamespace.Term("ChainRule") {
			chain = n
		}
	}
	require.NotNil(t, chain)
	assert.Equal(t, "합성함수의 미분", chain["label"])
	assert.Equal(t, "합성함수를 미분하는 법칙", chain["comment"])
	assert.Equal(t, "v7", chain["graph_version"])
	assert.ElementsMatch(t, []string{"합성함수의 미분", "Chain rule"}, chain["labels"])

	for _, n := range plan.Nodes[domain.NodeKindConcept] {
		assert.NotNil(t, n["labels"])
	}
}

func TestBuildPlan_SkipsUntypedEndpoints(t *testing.T) {
	g := testutil.CurriculumGraph(t)
	view := curriculum.NewView(g, vocab.DefaultNamespace)

	for _, r := range BuildPlan(view, "v1").Rels[RelPrerequisiteOf] {
		assert.Contains(t, r["from"], string(vocab.DefaultNamespace))
		assert.Contains(t, r["to"], string(vocab.DefaultNamespace))
	}
}

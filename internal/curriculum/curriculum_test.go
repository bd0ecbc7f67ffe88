package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/mathbot/internal/curriculum"
	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/testutil"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

const ns = vocab.DefaultNamespace

func concept(local string) graph.Term {
	return graph.IRI(ns.Term(local))
}

func labels(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestView_Concepts(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	concepts := v.Concepts()

	require.Len(t, concepts, 7)
	for i := 1; i < len(concepts); i++ {
		assert.LessOrEqual(t, concepts[i-1].Label, concepts[i].Label)
	}
	for _, c := range concepts {
		assert.Equal(t, domain.NodeKindConcept, c.Kind)
	}
}

func TestView_Hierarchy(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	tests := []struct {
		name    string
		concept string
		subject string
		chapter string
		section bool
	}{
		{"full hierarchy", "ChainRule", "수학Ⅱ", "미분", true},
		{"chapter without subject", "ProbDist", domain.Unknown, "통계", true},
		{"no hierarchy", "ContinuousDist", domain.Unknown, domain.Unknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := v.Hierarchy(concept(tt.concept))
			assert.Equal(t, tt.subject, h.SubjectLabel())
			assert.Equal(t, tt.chapter, h.ChapterLabel())
			assert.Equal(t, tt.section, h.Section != nil)
		})
	}
}

func TestView_FindConcept(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	c, ok := v.FindConcept("합성함수의 미분")
	require.True(t, ok)
	assert.Equal(t, ns.Term("ChainRule"), c.Value)

	c, ok = v.FindConcept("Chain rule")
	require.True(t, ok, "any label matches")
	assert.Equal(t, ns.Term("ChainRule"), c.Value)

	_, ok = v.FindConcept("합성함수")
	assert.False(t, ok, "lookup is exact")

	_, ok = v.FindConcept("미분")
	assert.False(t, ok, "chapters are not concepts")
}

func TestView_Prerequisites(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	assert.Equal(t, []string{"합성함수의 미분", "도함수"}, labels(v.Prerequisites(concept("SecondDerivative"))))
	assert.Equal(t, []string{"합성함수의 미분", "이계도함수"}, labels(v.Dependents(concept("Derivative"))))
	assert.Empty(t, v.Prerequisites(concept("Derivative")))
}

func TestView_Walk(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	walk := v.Walk(concept("SecondDerivative"), 0)

	assert.Equal(t, "이계도함수", walk.Concept.Label)
	require.Len(t, walk.Levels, 1)
	assert.Equal(t, 1, walk.Levels[0].Depth)
	assert.Equal(t, []string{"합성함수의 미분", "도함수"}, labels(walk.Levels[0].Concepts))
	// 도함수 is reached directly and through 합성함수의 미분.
	assert.Len(t, walk.Edges, 3)
}

func TestView_WalkDepthLimit(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	walk := v.Walk(concept("Series"), 1)

	require.Len(t, walk.Levels, 1)
	assert.Equal(t, []string{"수열의 극한"}, labels(walk.Levels[0].Concepts))
}

func TestView_WalkCycle(t *testing.T) {
	pred := graph.IRI(ns.PrerequisiteOf())
	g := graph.Merge(testutil.CurriculumGraph(t), graph.New(
		graph.Triple{S: concept("SecondDerivative"), P: pred, O: concept("Derivative")},
	))
	v := curriculum.NewView(g, ns)

	walk := v.Walk(concept("Derivative"), 0)

	var seen []string
	for _, l := range walk.Levels {
		seen = append(seen, labels(l.Concepts)...)
	}
	assert.ElementsMatch(t, []string{"이계도함수", "합성함수의 미분"}, seen)
}

func TestView_Path(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	assert.Equal(t, []string{"도함수", "이계도함수"}, labels(v.Path(concept("Derivative"), concept("SecondDerivative"))))
	assert.Equal(t, []string{"급수"}, labels(v.Path(concept("Series"), concept("Series"))))
	assert.Nil(t, v.Path(concept("SeqLimit"), concept("ChainRule")))
}

func TestView_MatchLabels(t *testing.T) {
	v := curriculum.NewView(testutil.CurriculumGraph(t), ns)

	assert.Equal(t, []string{"합성함수의 미분"}, v.MatchLabels("합성함수의미분은 어떻게 하나요?"))
	assert.Equal(t, []string{"수열의 극한", "급수"}, v.MatchLabels("수열의 극한과 급수의 관계"))
	assert.Equal(t, []string{"Chain rule"}, v.MatchLabels("what is the CHAIN RULE"))
	assert.Empty(t, v.MatchLabels("양자역학"))
	assert.Empty(t, v.MatchLabels("  "))
}

func TestApply(t *testing.T) {
	g := testutil.CurriculumGraph(t)
	links := []curriculum.Link{
		{Parent: "도함수", Child: "급수"},
		{Parent: "도함수", Child: "합성함수의 미분"},
		{Parent: "없는 개념", Child: "급수"},
	}

	linked, report := curriculum.Apply(g, ns, links)

	assert.Equal(t, links[:1], report.Added)
	assert.Equal(t, links[1:2], report.Existing)
	assert.Equal(t, links[2:], report.Skipped)

	edge := graph.Triple{S: concept("Derivative"), P: graph.IRI(ns.PrerequisiteOf()), O: concept("Series")}
	assert.True(t, linked.Has(edge))
	assert.False(t, g.Has(edge), "input graph is unchanged")
	assert.Equal(t, g.Len()+1, linked.Len())
}

func TestApply_Idempotent(t *testing.T) {
	links := []curriculum.Link{{Parent: "수열의 극한", Child: "이계도함수"}}

	once, _ := curriculum.Apply(testutil.CurriculumGraph(t), ns, links)
	twice, report := curriculum.Apply(once, ns, links)

	assert.Equal(t, once.Triples(), twice.Triples())
	assert.Empty(t, report.Added)
}

func TestDefaultLinks(t *testing.T) {
	links := curriculum.DefaultLinks()

	assert.Len(t, links, 64)
	assert.Contains(t, links, curriculum.Link{Parent: "수열의 극한", Child: "급수", Group: "미적분2"})
	for _, l := range links {
		assert.NotEmpty(t, l.Group)
	}
}

func TestParseLinks_Invalid(t *testing.T) {
	_, err := curriculum.ParseLinks([]byte("groups:\n  - name: x\n    links:\n      - {parent: a}\n"))
	assert.Error(t, err)

	_, err = curriculum.ParseLinks([]byte("groups: ["))
	assert.Error(t, err)
}

func TestLoadLinks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups:\n  - name: g\n    links:\n      - {parent: a, child: b}\n"), 0o600))

	links, err := curriculum.LoadLinks(path)

	require.NoError(t, err)
	assert.Equal(t, []curriculum.Link{{Parent: "a", Child: "b", Group: "g"}}, links)
}

func TestRenameNamespace(t *testing.T) {
	g := testutil.CurriculumGraph(t)
	to := vocab.Namespace("http://example.org/curriculum#")

	renamed := curriculum.RenameNamespace(g, ns, to)

	assert.Equal(t, g.Len(), renamed.Len())
	v := curriculum.NewView(renamed, to)
	c, ok := v.FindConcept("급수")
	require.True(t, ok)
	assert.Equal(t, "http://example.org/curriculum#Series", c.Value)
	assert.Empty(t, curriculum.NewView(renamed, ns).Concepts())
}

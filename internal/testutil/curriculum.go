package testutil

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/stretchr/testify/require"
)

// CurriculumTBox is a small schema graph in Turtle.
const CurriculumTBox = `@prefix : <http://snu.ac.kr/math/> .
@prefix rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix owl: <http://www.w3.org/2002/07/owl#> .

:Subject a owl:Class ; rdfs:label "과목"@ko .
:Chapter a owl:Class ; rdfs:label "대단원"@ko .
:Section a owl:Class ; rdfs:label "소단원"@ko .
:Concept a owl:Class ; rdfs:label "개념"@ko .

:hasChapter a owl:ObjectProperty ; rdfs:domain :Subject ; rdfs:range :Chapter .
:hasSection a owl:ObjectProperty ; rdfs:domain :Chapter ; rdfs:range :Section .
:hasConcept a owl:ObjectProperty ; rdfs:domain :Section ; rdfs:range :Concept .
:prerequisiteOf a owl:ObjectProperty ; rdfs:domain :Concept ; rdfs:range :Concept .
`

// CurriculumABox is a small instance graph in Turtle. It contains a concept with a
// full hierarchy (합성함수의 미분), advanced-topic prerequisites (급수, 이계도함수),
// a concept without hierarchy (연속확률분포) and a chapter without a subject.
const CurriculumABox = `@prefix : <http://snu.ac.kr/math/> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .

:Math2 a :Subject ; rdfs:label "수학Ⅱ" ; :hasChapter :Math2_Diff .
:Math2_Diff a :Chapter ; rdfs:label "미분" ; :hasSection :Math2_Diff_S1 .
:Math2_Diff_S1 a :Section ; rdfs:label "미분계수와 도함수" ; :hasConcept :ChainRule , :Derivative .

:Calculus a :Subject ; rdfs:label "미적분" ; :hasChapter :Calc_Seq , :Calc_Diff .
:Calc_Seq a :Chapter ; rdfs:label "수열의 극한" ; :hasSection :Calc_Seq_S1 .
:Calc_Seq_S1 a :Section ; rdfs:label "급수" ; :hasConcept :Series , :SeqLimit .
:Calc_Diff a :Chapter ; rdfs:label "미분법" ; :hasSection :Calc_Diff_S1 .
:Calc_Diff_S1 a :Section ; rdfs:label "여러 가지 미분법" ; :hasConcept :SecondDerivative .

:Orphan_Chapter a :Chapter ; rdfs:label "통계" ; :hasSection :Stats_S1 .
:Stats_S1 a :Section ; rdfs:label "확률분포" ; :hasConcept :ProbDist .

:ChainRule a :Concept ; rdfs:label "합성함수의 미분" , "Chain rule"@en ; rdfs:comment "합성함수를 미분하는 법칙" .
:Derivative a :Concept ; rdfs:label "도함수" .
:Series a :Concept ; rdfs:label "급수" .
:SeqLimit a :Concept ; rdfs:label "수열의 극한" .
:SecondDerivative a :Concept ; rdfs:label "이계도함수" .
:ProbDist a :Concept ; rdfs:label "확률분포" .
:ContinuousDist a :Concept ; rdfs:label "연속확률분포" .

:Derivative :prerequisiteOf :ChainRule , :SecondDerivative .
:SeqLimit :prerequisiteOf :Series .
:ChainRule :prerequisiteOf :SecondDerivative .
:ProbDist :prerequisiteOf :ContinuousDist .
`

// CurriculumGraph decodes the fixture documents and merges them.
func CurriculumGraph(t testing.TB) *graph.Graph {
	t.Helper()

	tbox, err := graph.Decode(strings.NewReader(CurriculumTBox), graph.FormatTurtle)
	require.NoError(t, err)
	abox, err := graph.Decode(strings.NewReader(CurriculumABox), graph.FormatTurtle)
	require.NoError(t, err)

	return graph.Merge(tbox, abox)
}

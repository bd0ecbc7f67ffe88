package service

import (
	"strings"
	"text/template"

	"github.com/cloo-solutions/mathbot/internal/domain"
)

const querySystemPrompt = `You are an expert Math Ontology Engineer.
Your task is to convert a natural language question into a SPARQL query over a Korean high-school mathematics ontology.
Always reply with a single JSON object: {"query": string, "explanation": string, "terms": string[]}.`

var queryPrompt = template.Must(template.New("query").Parse(`### Ontology Schema
{{.Schema}}

### Guidelines
1. Context: the ontology ONLY contains high-school math concepts.
2. Concept mapping:
   - High-school concept: query it directly.
   - University or advanced concept: INFER the high-school prerequisites (e.g. "Taylor series" -> "급수|합성함수의 미분|이계도함수") and query those.
3. Out-of-curriculum detection:
   - If the question is about a concept that is NOT in the high-school curriculum, you MUST include the exact phrase "{{.OutMarker}}" in the explanation field.
   - You MUST still generate a query that retrieves the relevant high-school prerequisites. Never return an empty query.
4. Same name, different depth: if the concept exists in high school but the question asks for its university-level generalization, include the exact phrase "{{.AmbiguousMarker}}" in the explanation field and query the high-school concept.
5. Output goal: retrieve ?targetLabel, ?targetSubject and ?targetChapter.
   - Match labels with FILTER(regex(?targetLabel, 'Term1|Term2', 'i')).
   - If a term has synonyms, include them in the alternation (e.g. '미분계수|순간변화율').
   - ALWAYS use the prefix: PREFIX : <{{.Namespace}}>
   - Also list every alternation term in the "terms" array.
{{- if .Hints}}

### Candidate concept labels
These labels exist in the ontology and look related to the question. Prefer them when they fit:
{{range .Hints}}- {{.}}
{{end}}
{{- end}}

### Example 1 (high-school question)
Question: "합성함수 미분이 뭐야?"
Response:
{"query": "PREFIX : <{{.Namespace}}> PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#> SELECT ?targetLabel ?targetSubject ?targetChapter WHERE { ?target a :Concept ; rdfs:label ?targetLabel . FILTER(regex(?targetLabel, '합성함수의 미분', 'i')) OPTIONAL { ?targetSection :hasConcept ?target . ?targetChapNode :hasSection ?targetSection . ?targetChapNode rdfs:label ?targetChapter . OPTIONAL { ?targetSubNode :hasChapter ?targetChapNode . ?targetSubNode rdfs:label ?targetSubject . } } }", "explanation": "'합성함수의 미분'은 고교 과정에 있으므로 직접 검색합니다.", "terms": ["합성함수의 미분"]}

### Example 2 (university question, mapped to prerequisites)
Question: "테일러 급수가 너무 어려워."
Response:
{"query": "PREFIX : <{{.Namespace}}> PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#> SELECT ?targetLabel ?targetSubject ?targetChapter WHERE { ?target a :Concept ; rdfs:label ?targetLabel . FILTER(regex(?targetLabel, '급수|합성함수의 미분|이계도함수', 'i')) OPTIONAL { ?targetSection :hasConcept ?target . ?targetChapNode :hasSection ?targetSection . ?targetChapNode rdfs:label ?targetChapter . OPTIONAL { ?targetSubNode :hasChapter ?targetChapNode . ?targetSubNode rdfs:label ?targetSubject . } } }", "explanation": "{{.OutMarker}}: '테일러 급수'는 온톨로지에 없으므로, 이를 이해하기 위해 필요한 고교 과정인 '급수', '합성함수의 미분', '이계도함수'를 검색합니다.", "terms": ["급수", "합성함수의 미분", "이계도함수"]}

### User Question
{{.Question}}

### Response
`))

type queryPromptData struct {
	Schema          string
	Namespace       string
	Question        string
	Hints           []string
	OutMarker       string
	AmbiguousMarker string
}

const answerSystemPrompt = `You are a Math Mentor Chatbot for Korean high-school students.
Always reply with a single JSON object: {"answer": string, "evidence": [{"subject": string, "chapter": string, "concept": string, "desc": string}]}.`

var answerPrompt = template.Must(template.New("answer").Parse(`### User Question
{{.Question}}

### Retrieved Knowledge (query results)
{{.Data}}
(Logic: {{.Logic}})

### Instructions
1. Analyze: carefully evaluate the retrieved concepts and the logic string.
2. Scope and ambiguity check:
   - Case A, out of curriculum{{if .OutOfCurriculum}} (THIS QUESTION IS OUT OF CURRICULUM){{end}}:
     - Start the answer with: "{{.Disclosure}}"
     - Explain that the concept is advanced and connect it to the retrieved high-school prerequisites{{if .Prerequisites}} ({{.Prerequisites}}){{end}}.
     - You MUST still provide the evidence list containing those prerequisites.
   - Case B, concept ambiguity (same name, different depth){{if .Ambiguous}} (MANDATORY FOR THIS QUESTION){{end}}:
     - If the concept exists in high school but the question implies its university-level depth, do NOT simply say "study the high-school version".
     - Explicitly state the scope boundary: "고등학교 과정에서는 ~만 다루지만, 대학 과정에서는 ~까지 확장됩니다."
     - Then guide the student to the high-school concepts available in the ontology.
3. Answer style and language:
   - Write the entire answer in Korean.
   - Keep an encouraging, empathetic and helpful mentor persona.
   - Use the retrieved knowledge to suggest which high-school foundations to review.
4. Evidence:
   - Build the evidence list strictly from the retrieved knowledge.
   - Even when the concept is out of curriculum or ambiguous, list the retrieved related concepts.
   - Map the data to subject, chapter, concept and desc (a short reason for relevance).
   - If subject or chapter is missing, do NOT infer it. Use "{{.Unknown}}".
`))

type answerPromptData struct {
	Question        string
	Data            string
	Logic           string
	OutOfCurriculum bool
	Ambiguous       bool
	Prerequisites   string
	Disclosure      string
	Unknown         string
}

func renderPrompt(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func newAnswerPromptData(question, data string, q domain.SynthesizedQuery) answerPromptData {
	logic := domain.StripMarkers(q.Explanation)
	if logic == "" {
		logic = "none"
	}
	return answerPromptData{
		Question:        question,
		Data:            data,
		Logic:           logic,
		OutOfCurriculum: q.Scope.IsOutOfCurriculum(),
		Ambiguous:       q.Scope.IsAmbiguous(),
		Prerequisites:   strings.Join(q.Scope.Prerequisites, ", "),
		Disclosure:      domain.OutOfCurriculumDisclosure,
		Unknown:         domain.Unknown,
	}
}

package domain

import "strings"

// Markers the query model writes into its explanation. They are translated into a Scope
// by the query synthesizer and stripped before an explanation is shown to users.
const (
	OutOfCurriculumMarker = "OUT_OF_CURRICULUM"
	AmbiguousScopeMarker  = "AMBIGUOUS_SCOPE"
)

// ScopeKind is the tag of a Scope.
type ScopeKind string

const (
	ScopeInCurriculum    ScopeKind = "in_curriculum"
	ScopeOutOfCurriculum ScopeKind = "out_of_curriculum"
	ScopeAmbiguous       ScopeKind = "ambiguous"
)

// Scope says whether a question is covered by the curriculum. Prerequisites is only
// set for ScopeOutOfCurriculum and lists the in-curriculum terms queried instead.
type Scope struct {
	Kind          ScopeKind `json:"kind"`
	Prerequisites []string  `json:"prerequisites,omitempty"`
}

// InCurriculum returns the scope of a question answered directly by the curriculum.
func InCurriculum() Scope {
	return Scope{Kind: ScopeInCurriculum}
}

// OutOfCurriculum returns the scope of an advanced question mapped to prerequisites.
func OutOfCurriculum(prerequisites []string) Scope {
	return Scope{Kind: ScopeOutOfCurriculum, Prerequisites: prerequisites}
}

// Ambiguous returns the scope of a concept that exists at high-school and university depth.
func Ambiguous() Scope {
	return Scope{Kind: ScopeAmbiguous}
}

func (s Scope) IsOutOfCurriculum() bool { return s.Kind == ScopeOutOfCurriculum }
func (s Scope) IsAmbiguous() bool       { return s.Kind == ScopeAmbiguous }

// ScopeFromExplanation derives the scope from the markers in a model explanation.
func ScopeFromExplanation(explanation string, terms []string) Scope {
	switch {
	case strings.Contains(explanation, OutOfCurriculumMarker):
		return OutOfCurriculum(terms)
	case strings.Contains(explanation, AmbiguousScopeMarker):
		return Ambiguous()
	default:
		return InCurriculum()
	}
}

// StripMarkers removes scope markers from an explanation for display.
func StripMarkers(explanation string) string {
	out := strings.ReplaceAll(explanation, OutOfCurriculumMarker, "")
	out = strings.ReplaceAll(out, AmbiguousScopeMarker, "")
	out = strings.Join(strings.Fields(out), " ")
	out = strings.TrimLeft(out, ":-, ")
	return strings.TrimSpace(out)
}

// SynthesizedQuery is the outcome of turning a question into a graph query.
// On failure Query is empty, Failure holds the reason and Explanation starts with "Error: ".
type SynthesizedQuery struct {
	Query       string   `json:"query"`
	Explanation string   `json:"explanation"`
	Scope       Scope    `json:"scope"`
	Terms       []string `json:"terms,omitempty"`
	Failure     string   `json:"failure,omitempty"`
}

// Failed reports whether synthesis failed.
func (q SynthesizedQuery) Failed() bool {
	return q.Failure != ""
}

// FailedQuery builds the degraded result of a failed synthesis.
func FailedQuery(reason string) SynthesizedQuery {
	return SynthesizedQuery{
		Query:       "",
		Explanation: "Error: " + reason,
		Scope:       InCurriculum(),
		Failure:     reason,
	}
}

// Row is one query solution: variable name to display string, nil when unbound.
type Row map[string]*string

// Value returns the bound value of a variable.
func (r Row) Value(name string) (string, bool) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// StringPtr returns a pointer to s. Handy for building rows.
func StringPtr(s string) *string {
	return &s
}

package domain

import "time"

// Unknown is rendered for hierarchy fields that the graph does not provide.
const Unknown = "Unknown"

// NodeKind classifies a curriculum node by its rdf:type.
type NodeKind string

const (
	NodeKindSubject NodeKind = "Subject"
	NodeKindChapter NodeKind = "Chapter"
	NodeKindSection NodeKind = "Section"
	NodeKindConcept NodeKind = "Concept"
	NodeKindOther   NodeKind = "Other"
)

// IsValid checks if the NodeKind is one of the known kinds
func (k NodeKind) IsValid() bool {
	switch k {
	case NodeKindSubject, NodeKindChapter, NodeKindSection, NodeKindConcept, NodeKindOther:
		return true
	}
	return false
}

// Node is a labeled curriculum node (Subject, Chapter, Section or Concept).
type Node struct {
	IRI     string   `json:"iri"`
	Kind    NodeKind `json:"kind"`
	Label   string   `json:"label"`
	Labels  []string `json:"labels,omitempty"`
	Comment string   `json:"comment,omitempty"`
}

// Hierarchy holds the ancestors of a concept. A nil level is unknown and is never inferred.
type Hierarchy struct {
	Section *Node `json:"section,omitempty"`
	Chapter *Node `json:"chapter,omitempty"`
	Subject *Node `json:"subject,omitempty"`
}

// SubjectLabel returns the subject label or Unknown.
func (h Hierarchy) SubjectLabel() string {
	if h.Subject == nil || h.Subject.Label == "" {
		return Unknown
	}
	return h.Subject.Label
}

// ChapterLabel returns the chapter label or Unknown.
func (h Hierarchy) ChapterLabel() string {
	if h.Chapter == nil || h.Chapter.Label == "" {
		return Unknown
	}
	return h.Chapter.Label
}

// Concept is a curriculum concept together with its resolved hierarchy.
type Concept struct {
	Node
	Hierarchy Hierarchy `json:"hierarchy"`
}

// PrerequisiteLevel groups the concepts found at one BFS distance from the start concept.
type PrerequisiteLevel struct {
	Depth    int    `json:"depth"`
	Concepts []Node `json:"concepts"`
}

// PrerequisiteEdge is one prerequisiteOf edge: From must be understood before To.
type PrerequisiteEdge struct {
	From Node `json:"from"`
	To   Node `json:"to"`
}

// PrerequisiteWalk is the result of walking prerequisites backwards from a concept.
// Edges keeps every traversed edge, so a concept reached along two paths is listed
// once per level but appears in more than one edge.
type PrerequisiteWalk struct {
	Concept Node                `json:"concept"`
	Levels  []PrerequisiteLevel `json:"levels"`
	Edges   []PrerequisiteEdge  `json:"edges"`
}

// PrerequisitePath is the shortest chain of prerequisiteOf edges from one concept
// to another. Steps is empty when To cannot be reached from From.
type PrerequisitePath struct {
	From  Node   `json:"from"`
	To    Node   `json:"to"`
	Steps []Node `json:"steps"`
}

// ConceptEmbedding is the stored embedding of a concept's label and comment.
// TextHash identifies the text the vector was computed from.
type ConceptEmbedding struct {
	IRI       string
	Label     string
	TextHash  string
	Embedding []float32
	UpdatedAt time.Time
}

// ConceptMatch is a concept found by embedding similarity.
type ConceptMatch struct {
	IRI      string  `json:"iri"`
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

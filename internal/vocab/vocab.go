// Package vocab holds the IRIs of the curriculum ontology and the W3C vocabularies it uses.
package vocab

import "strings"

// W3C vocabulary namespaces
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// RDF and RDFS terms used by the curriculum graph
const (
	RDFType       = RDFNamespace + "type"
	RDFProperty   = RDFNamespace + "Property"
	RDFSLabel     = RDFSNamespace + "label"
	RDFSComment   = RDFSNamespace + "comment"
	RDFSClass     = RDFSNamespace + "Class"
	RDFSDomain    = RDFSNamespace + "domain"
	RDFSRange     = RDFSNamespace + "range"
	RDFSSubClass  = RDFSNamespace + "subClassOf"
	OWLClass      = OWLNamespace + "Class"
	OWLObjectProp = OWLNamespace + "ObjectProperty"
	XSDString     = XSDNamespace + "string"
)

// DefaultNamespace is the namespace of the published curriculum ontology.
const DefaultNamespace Namespace = "http://snu.ac.kr/math/"

// Local names of the curriculum classes and properties.
const (
	ClassSubject = "Subject"
	ClassChapter = "Chapter"
	ClassSection = "Section"
	ClassConcept = "Concept"

	PropHasChapter     = "hasChapter"
	PropHasSection     = "hasSection"
	PropHasConcept     = "hasConcept"
	PropPrerequisiteOf = "prerequisiteOf"
)

// Namespace is an IRI prefix for the curriculum vocabulary.
type Namespace string

// Term returns the full IRI of a local name in the namespace.
func (n Namespace) Term(local string) string {
	return string(n) + local
}

// Contains reports whether iri lives in the namespace.
func (n Namespace) Contains(iri string) bool {
	return n != "" && strings.HasPrefix(iri, string(n))
}

func (n Namespace) Subject() string        { return n.Term(ClassSubject) }
func (n Namespace) Chapter() string        { return n.Term(ClassChapter) }
func (n Namespace) Section() string        { return n.Term(ClassSection) }
func (n Namespace) Concept() string        { return n.Term(ClassConcept) }
func (n Namespace) HasChapter() string     { return n.Term(PropHasChapter) }
func (n Namespace) HasSection() string     { return n.Term(PropHasSection) }
func (n Namespace) HasConcept() string     { return n.Term(PropHasConcept) }
func (n Namespace) PrerequisiteOf() string { return n.Term(PropPrerequisiteOf) }

// Normalize makes sure the namespace ends with a separator so Term concatenation is valid.
func Normalize(ns string) Namespace {
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return DefaultNamespace
	}
	if !strings.HasSuffix(ns, "/") && !strings.HasSuffix(ns, "#") {
		ns += "/"
	}
	return Namespace(ns)
}

// LocalName returns the part of an IRI after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// Prefixes maps the prefixes written into generated queries and summaries to namespaces.
func Prefixes(ns Namespace) map[string]string {
	return map[string]string{
		"":     string(ns),
		"rdf":  RDFNamespace,
		"rdfs": RDFSNamespace,
		"owl":  OWLNamespace,
		"xsd":  XSDNamespace,
	}
}

// Compact renders an IRI with a known prefix, or in angle brackets.
func Compact(ns Namespace, iri string) string {
	if ns.Contains(iri) {
		return ":" + strings.TrimPrefix(iri, string(ns))
	}
	for _, p := range []struct{ prefix, base string }{
		{"rdf", RDFNamespace},
		{"rdfs", RDFSNamespace},
		{"owl", OWLNamespace},
		{"xsd", XSDNamespace},
	} {
		if strings.HasPrefix(iri, p.base) {
			return p.prefix + ":" + strings.TrimPrefix(iri, p.base)
		}
	}
	return "<" + iri + ">"
}

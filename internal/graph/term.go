// Package graph is an immutable, indexed in-memory RDF graph.
package graph

import (
	"strings"

	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// TermKind is the RDF term type.
type TermKind uint8

const (
	KindIRI TermKind = iota + 1
	KindBlank
	KindLiteral
)

func (k TermKind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is an RDF term. Terms are comparable and usable as map keys.
type Term struct {
	Kind     TermKind
	Value    string
	Lang     string
	Datatype string
}

// IRI returns an IRI term.
func IRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// Blank returns a blank node term. A leading "_:" is dropped.
func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")}
}

// Literal returns a plain literal.
func Literal(v string) Term {
	return Term{Kind: KindLiteral, Value: v}
}

// LangLiteral returns a language-tagged literal.
func LangLiteral(v, lang string) Term {
	return Term{Kind: KindLiteral, Value: v, Lang: strings.ToLower(lang)}
}

// TypedLiteral returns a literal with a datatype. xsd:string is stored as a plain literal.
func TypedLiteral(v, datatype string) Term {
	if datatype == vocab.XSDString {
		datatype = ""
	}
	return Term{Kind: KindLiteral, Value: v, Datatype: datatype}
}

func (t Term) IsIRI() bool     { return t.Kind == KindIRI }
func (t Term) IsBlank() bool   { return t.Kind == KindBlank }
func (t Term) IsLiteral() bool { return t.Kind == KindLiteral }
func (t Term) IsZero() bool    { return t.Kind == 0 }

// String returns the display string of the term: the IRI, the lexical form, or _:id.
func (t Term) String() string {
	if t.Kind == KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

// Triple is one subject, predicate, object statement.
type Triple struct {
	S, P, O Term
}

func less(a, b Term) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	if a.Lang != b.Lang {
		return a.Lang < b.Lang
	}
	return a.Datatype < b.Datatype
}

func tripleLess(a, b Triple) bool {
	if a.S != b.S {
		return less(a.S, b.S)
	}
	if a.P != b.P {
		return less(a.P, b.P)
	}
	return less(a.O, b.O)
}

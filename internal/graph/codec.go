package graph

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/knakk/rdf"
)

// Format is a graph serialization format.
type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
)

var ErrUnsupportedFormat = errors.New("unsupported graph format")

// FormatFromPath picks the serialization format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ttl", ".turtle":
		return FormatTurtle, nil
	case ".nt", ".ntriples":
		return FormatNTriples, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (f Format) rdfFormat() (rdf.Format, error) {
	switch f {
	case FormatTurtle:
		return rdf.Turtle, nil
	case FormatNTriples:
		return rdf.NTriples, nil
	default:
		var zero rdf.Format
		return zero, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

// Decode parses a serialized graph document.
func Decode(r io.Reader, f Format) (*Graph, error) {
	rf, err := f.rdfFormat()
	if err != nil {
		return nil, err
	}

	dec := rdf.NewTripleDecoder(r, rf)
	b := NewBuilder()
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", f, err)
		}
		b.Add(Triple{S: fromRDF(t.Subj), P: fromRDF(t.Pred), O: fromRDF(t.Obj)})
	}
	return b.Build(), nil
}

// Encode writes the graph in sorted triple order.
func Encode(w io.Writer, g *Graph, f Format) error {
	rf, err := f.rdfFormat()
	if err != nil {
		return err
	}

	enc := rdf.NewTripleEncoder(w, rf)
	for _, t := range g.Triples() {
		rt, err := toRDF(t)
		if err != nil {
			return err
		}
		if err := enc.Encode(rt); err != nil {
			return fmt.Errorf("failed to encode triple: %w", err)
		}
	}
	return enc.Close()
}

func fromRDF(t rdf.Term) Term {
	switch v := t.(type) {
	case rdf.IRI:
		return IRI(v.String())
	case rdf.Blank:
		return Blank(v.String())
	case rdf.Literal:
		if lang := v.Lang(); lang != "" {
			return LangLiteral(v.String(), lang)
		}
		return TypedLiteral(v.String(), v.DataType.String())
	default:
		return Literal(t.String())
	}
}

func toRDF(t Triple) (rdf.Triple, error) {
	subj, err := toRDFTerm(t.S)
	if err != nil {
		return rdf.Triple{}, err
	}
	pred, err := rdf.NewIRI(t.P.Value)
	if err != nil {
		return rdf.Triple{}, fmt.Errorf("invalid predicate %q: %w", t.P.Value, err)
	}
	obj, err := toRDFTerm(t.O)
	if err != nil {
		return rdf.Triple{}, err
	}

	s, ok := subj.(rdf.Subject)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("literal %q cannot be a subject", t.S.Value)
	}
	o, ok := obj.(rdf.Object)
	if !ok {
		return rdf.Triple{}, fmt.Errorf("term %q cannot be an object", t.O.Value)
	}
	return rdf.Triple{Subj: s, Pred: pred, Obj: o}, nil
}

func toRDFTerm(t Term) (rdf.Term, error) {
	switch t.Kind {
	case KindIRI:
		iri, err := rdf.NewIRI(t.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid IRI %q: %w", t.Value, err)
		}
		return iri, nil
	case KindBlank:
		b, err := rdf.NewBlank(t.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid blank node %q: %w", t.Value, err)
		}
		return b, nil
	case KindLiteral:
		if t.Lang != "" {
			lit, err := rdf.NewLangLiteral(t.Value, t.Lang)
			if err != nil {
				return nil, fmt.Errorf("invalid literal %q@%s: %w", t.Value, t.Lang, err)
			}
			return lit, nil
		}
		if t.Datatype != "" {
			dt, err := rdf.NewIRI(t.Datatype)
			if err != nil {
				return nil, fmt.Errorf("invalid datatype %q: %w", t.Datatype, err)
			}
			return rdf.NewTypedLiteral(t.Value, dt), nil
		}
		lit, err := rdf.NewLiteral(t.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid literal %q: %w", t.Value, err)
		}
		return lit, nil
	default:
		return nil, fmt.Errorf("invalid term kind %d", t.Kind)
	}
}

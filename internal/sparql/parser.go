package sparql

import (
	"errors"
	"strconv"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

// ErrEmptyQuery is returned for blank query text.
var ErrEmptyQuery = errors.New("sparql: empty query")

// defaultPrefixes are available without a PREFIX declaration.
var defaultPrefixes = map[string]string{
	"rdf":  vocab.RDFNamespace,
	"rdfs": vocab.RDFSNamespace,
	"owl":  vocab.OWLNamespace,
	"xsd":  vocab.XSDNamespace,
}

type parser struct {
	toks     []token
	i        int
	prefixes map[string]string
}

// Parse parses a SELECT query of the supported subset.
func Parse(text string) (*Query, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	toks, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, prefixes: make(map[string]string, len(defaultPrefixes))}
	for k, v := range defaultPrefixes {
		p.prefixes[k] = v
	}
	return p.query()
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) advance() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) isKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) isPunct(s string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		t := p.peek()
		return errorf(t.pos, "expected %q, found %s", s, t)
	}
	p.advance()
	return nil
}

func (p *parser) query() (*Query, error) {
	q := &Query{Limit: -1}

	for {
		switch {
		case p.isKeyword("PREFIX"):
			p.advance()
			name := p.advance()
			if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
				return nil, errorf(name.pos, "expected prefix name, found %s", name)
			}
			iri := p.advance()
			if iri.kind != tokIRI {
				return nil, errorf(iri.pos, "expected IRI, found %s", iri)
			}
			p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
			continue
		case p.isKeyword("BASE"):
			p.advance()
			if t := p.advance(); t.kind != tokIRI {
				return nil, errorf(t.pos, "expected IRI, found %s", t)
			}
			continue
		}
		break
	}

	if !p.isKeyword("SELECT") {
		t := p.peek()
		return nil, errorf(t.pos, "only SELECT queries are supported, found %s", t)
	}
	p.advance()

	if p.isKeyword("DISTINCT") {
		p.advance()
		q.Distinct = true
	} else if p.isKeyword("REDUCED") {
		p.advance()
	}

	if p.isPunct("*") {
		p.advance()
	} else {
		for p.peek().kind == tokVar {
			q.Vars = append(q.Vars, p.advance().text)
		}
		if len(q.Vars) == 0 {
			t := p.peek()
			return nil, errorf(t.pos, "expected projection variables, found %s", t)
		}
	}

	if p.isKeyword("WHERE") {
		p.advance()
	}
	where, err := p.group()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if p.isKeyword("LIMIT") {
		p.advance()
		t := p.advance()
		n, err := strconv.Atoi(t.text)
		if t.kind != tokNumber || err != nil {
			return nil, errorf(t.pos, "expected LIMIT count, found %s", t)
		}
		q.Limit = n
	}

	if t := p.peek(); t.kind != tokEOF {
		return nil, errorf(t.pos, "unexpected %s after query", t)
	}

	q.Prefixes = p.prefixes
	return q, nil
}

func (p *parser) group() (*Group, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	g := &Group{}
	for {
		switch {
		case p.isPunct("}"):
			p.advance()
			return g, nil
		case p.isPunct("."):
			p.advance()
		case p.isPunct("{"):
			sub, err := p.group()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, sub)
		case p.isKeyword("OPTIONAL"):
			p.advance()
			sub, err := p.group()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, &Optional{Group: sub})
		case p.isKeyword("FILTER"):
			p.advance()
			e, err := p.filter()
			if err != nil {
				return nil, err
			}
			g.Filters = append(g.Filters, e)
		case p.peek().kind == tokEOF:
			return nil, errorf(p.peek().pos, "unterminated group")
		default:
			patterns, err := p.triples()
			if err != nil {
				return nil, err
			}
			for _, tp := range patterns {
				g.Elements = append(g.Elements, tp)
			}
		}
	}
}

// triples parses one subject with its predicate-object list.
func (p *parser) triples() ([]*TriplePattern, error) {
	subj, err := p.node(false)
	if err != nil {
		return nil, err
	}
	if !subj.IsVar() && subj.Term.IsLiteral() {
		return nil, errorf(p.toks[p.i-1].pos, "literal subject")
	}

	var out []*TriplePattern
	for {
		pred, err := p.node(true)
		if err != nil {
			return nil, err
		}
		if !pred.IsVar() && !pred.Term.IsIRI() {
			return nil, errorf(p.toks[p.i-1].pos, "predicate must be an IRI")
		}
		for {
			obj, err := p.node(false)
			if err != nil {
				return nil, err
			}
			out = append(out, &TriplePattern{S: subj, P: pred, O: obj})
			if !p.isPunct(",") {
				break
			}
			p.advance()
		}
		if !p.isPunct(";") {
			return out, nil
		}
		for p.isPunct(";") {
			p.advance()
		}
		if p.isPunct(".") || p.isPunct("}") {
			return out, nil
		}
	}
}

func (p *parser) node(predicate bool) (Node, error) {
	t := p.advance()
	switch t.kind {
	case tokVar:
		return Node{Var: t.text}, nil
	case tokIRI:
		return Node{Term: graph.IRI(t.text)}, nil
	case tokPName:
		iri, err := p.expand(t)
		if err != nil {
			return Node{}, err
		}
		return Node{Term: graph.IRI(iri)}, nil
	case tokIdent:
		if predicate && t.text == "a" {
			return Node{Term: graph.IRI(vocab.RDFType)}, nil
		}
		if strings.EqualFold(t.text, "true") || strings.EqualFold(t.text, "false") {
			return Node{Term: boolTerm(strings.EqualFold(t.text, "true"))}, nil
		}
	case tokString:
		lit, err := p.literalSuffix(t.text)
		if err != nil {
			return Node{}, err
		}
		return Node{Term: lit}, nil
	case tokNumber:
		return Node{Term: graph.TypedLiteral(t.text, xsdInteger)}, nil
	}
	return Node{}, errorf(t.pos, "unexpected %s in triple pattern", t)
}

func (p *parser) literalSuffix(value string) (graph.Term, error) {
	switch p.peek().kind {
	case tokLang:
		return graph.LangLiteral(value, p.advance().text), nil
	case tokCaret:
		p.advance()
		t := p.advance()
		switch t.kind {
		case tokIRI:
			return graph.TypedLiteral(value, t.text), nil
		case tokPName:
			iri, err := p.expand(t)
			if err != nil {
				return graph.Term{}, err
			}
			return graph.TypedLiteral(value, iri), nil
		default:
			return graph.Term{}, errorf(t.pos, "expected datatype IRI, found %s", t)
		}
	}
	return graph.Literal(value), nil
}

func (p *parser) expand(t token) (string, error) {
	prefix, local, _ := strings.Cut(t.text, ":")
	if prefix == "_" {
		return "", errorf(t.pos, "blank nodes are not supported")
	}
	ns, ok := p.prefixes[prefix]
	if !ok {
		return "", errorf(t.pos, "undeclared prefix %q", prefix)
	}
	return ns + local, nil
}

func (p *parser) filter() (Expr, error) {
	// FILTER regex(...) without parentheses is allowed.
	if p.peek().kind == tokIdent {
		return p.primary()
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	e, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *parser) orExpr() (Expr, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		p.advance()
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) andExpr() (Expr, error) {
	left, err := p.relExpr()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		p.advance()
		right, err := p.relExpr()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) relExpr() (Expr, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "!=", "<", ">", "<=", ">="} {
		if p.isPunct(op) {
			p.advance()
			right, err := p.unary()
			if err != nil {
				return nil, err
			}
			return &BinaryExpr{Op: op, Left: left, Right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) unary() (Expr, error) {
	if p.isPunct("!") {
		p.advance()
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &NotExpr{X: x}, nil
	}
	return p.primary()
}

func (p *parser) primary() (Expr, error) {
	t := p.peek()
	switch t.kind {
	case tokPunct:
		if t.text == "(" {
			p.advance()
			e, err := p.orExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	case tokVar:
		p.advance()
		return &VarExpr{Name: t.text}, nil
	case tokIdent:
		name := strings.ToLower(t.text)
		if name == "true" || name == "false" {
			p.advance()
			return &ConstExpr{Term: boolTerm(name == "true")}, nil
		}
		if _, ok := builtinArity[name]; ok {
			return p.call(name)
		}
		return nil, errorf(t.pos, "unsupported function %q", t.text)
	case tokString, tokIRI, tokPName, tokNumber:
		n, err := p.node(false)
		if err != nil {
			return nil, err
		}
		return &ConstExpr{Term: n.Term}, nil
	}
	return nil, errorf(t.pos, "unexpected %s in expression", t)
}

func (p *parser) call(name string) (Expr, error) {
	start := p.advance()
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []Expr
	for !p.isPunct(")") {
		if len(args) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		a, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	p.advance()

	arity := builtinArity[name]
	if len(args) < arity[0] || len(args) > arity[1] {
		return nil, errorf(start.pos, "%s expects %d to %d arguments, got %d", name, arity[0], arity[1], len(args))
	}
	c := &CallExpr{Name: name, Args: args}
	if name == "bound" {
		if _, ok := args[0].(*VarExpr); !ok {
			return nil, errorf(start.pos, "bound expects a variable")
		}
	}
	if name == "regex" {
		if err := precompile(c); err != nil {
			return nil, errorf(start.pos, "%v", err)
		}
	}
	return c, nil
}

// precompile compiles constant regex patterns at parse time so invalid patterns
// are reported as parse errors.
func precompile(c *CallExpr) error {
	pat, ok := c.Args[1].(*ConstExpr)
	if !ok {
		return nil
	}
	flags := ""
	if len(c.Args) == 3 {
		f, ok := c.Args[2].(*ConstExpr)
		if !ok {
			return nil
		}
		flags = f.Term.Value
	}
	re, err := compileRegex(pat.Term.Value, flags)
	if err != nil {
		return err
	}
	c.re = re
	return nil
}

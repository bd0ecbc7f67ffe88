package sparql

import "github.com/cloo-solutions/mathbot/internal/graph"

// Query is a parsed SELECT query.
type Query struct {
	Prefixes map[string]string
	Distinct bool
	// Vars lists the projected variables; nil means SELECT *.
	Vars  []string
	Where *Group
	// Limit is -1 when absent.
	Limit int
}

// Group is a brace-delimited graph pattern. Elements are evaluated in order;
// filters apply to the whole group.
type Group struct {
	Elements []Element
	Filters  []Expr
}

// Element is a member of a group: *TriplePattern, *Group or *Optional.
type Element interface {
	element()
}

// Node is a pattern position: a variable when Var is set, otherwise a constant term.
type Node struct {
	Var  string
	Term graph.Term
}

func (n Node) IsVar() bool { return n.Var != "" }

// TriplePattern matches triples; variables bind on match.
type TriplePattern struct {
	S, P, O Node
}

// Optional is a left-joined group.
type Optional struct {
	Group *Group
}

func (*TriplePattern) element() {}
func (*Group) element()         {}
func (*Optional) element()      {}

// Variables returns the variables of a group in order of first appearance.
func (g *Group) Variables() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(n Node) {
		if n.IsVar() && !seen[n.Var] {
			seen[n.Var] = true
			out = append(out, n.Var)
		}
	}
	var walk func(*Group)
	walk = func(g *Group) {
		for _, el := range g.Elements {
			switch e := el.(type) {
			case *TriplePattern:
				add(e.S)
				add(e.P)
				add(e.O)
			case *Group:
				walk(e)
			case *Optional:
				walk(e.Group)
			}
		}
	}
	walk(g)
	return out
}

// Filters returns every filter expression in the query, outermost group first.
func (q *Query) Filters() []Expr {
	var out []Expr
	var walk func(*Group)
	walk = func(g *Group) {
		out = append(out, g.Filters...)
		for _, el := range g.Elements {
			switch e := el.(type) {
			case *Group:
				walk(e)
			case *Optional:
				walk(e.Group)
			}
		}
	}
	if q.Where != nil {
		walk(q.Where)
	}
	return out
}

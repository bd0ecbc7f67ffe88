package sparql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/domain"
	"github.com/cloo-solutions/mathbot/internal/graph"
)

// ErrTooManyRows is returned when intermediate solutions exceed Options.MaxSolutions.
var ErrTooManyRows = errors.New("sparql: too many intermediate solutions")

// Options bounds evaluation.
type Options struct {
	// MaxRows truncates the final result. Zero means unlimited.
	MaxRows int
	// MaxSolutions aborts evaluation when a join produces more solutions. Zero means 100000.
	MaxSolutions int
}

const defaultMaxSolutions = 100000

// Results holds the projected solutions of a query.
type Results struct {
	Vars      []string
	Solutions []Binding
}

// Rows converts solutions to display rows. Unbound variables map to nil.
func (r *Results) Rows() []domain.Row {
	rows := make([]domain.Row, 0, len(r.Solutions))
	for _, sol := range r.Solutions {
		row := make(domain.Row, len(r.Vars))
		for _, v := range r.Vars {
			if t, ok := sol[v]; ok {
				s := t.String()
				row[v] = &s
			} else {
				row[v] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Execute parses and evaluates text against g.
func Execute(ctx context.Context, g *graph.Graph, text string, opts Options) (*Results, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Evaluate(ctx, g, q, opts)
}

type evaluator struct {
	ctx context.Context
	g   *graph.Graph
	max int
	ops int
}

// Evaluate runs a parsed query against g.
func Evaluate(ctx context.Context, g *graph.Graph, q *Query, opts Options) (*Results, error) {
	ev := &evaluator{ctx: ctx, g: g, max: opts.MaxSolutions}
	if ev.max <= 0 {
		ev.max = defaultMaxSolutions
	}

	sols, err := ev.group(q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}

	vars := q.Vars
	if vars == nil {
		vars = q.Where.Variables()
	}

	res := &Results{Vars: vars}
	seen := make(map[string]bool)
	for _, sol := range sols {
		if q.Limit >= 0 && len(res.Solutions) >= q.Limit {
			break
		}
		if opts.MaxRows > 0 && len(res.Solutions) >= opts.MaxRows {
			break
		}
		proj := make(Binding, len(vars))
		for _, v := range vars {
			if t, ok := sol[v]; ok {
				proj[v] = t
			}
		}
		if q.Distinct {
			key := solutionKey(vars, proj)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		res.Solutions = append(res.Solutions, proj)
	}
	return res, nil
}

func (ev *evaluator) group(g *Group, input []Binding) ([]Binding, error) {
	sols := input
	for _, el := range g.Elements {
		if err := ev.ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		switch e := el.(type) {
		case *TriplePattern:
			sols, err = ev.join(sols, e)
		case *Group:
			sols, err = ev.group(e, sols)
		case *Optional:
			sols, err = ev.leftJoin(sols, e.Group)
		default:
			err = fmt.Errorf("sparql: unknown group element %T", el)
		}
		if err != nil {
			return nil, err
		}
		if len(sols) == 0 {
			break
		}
	}

	if len(g.Filters) == 0 {
		return sols, nil
	}
	out := sols[:0:0]
	for _, sol := range sols {
		keep := true
		for _, f := range g.Filters {
			ok, err := ebv(f, sol)
			if err != nil || !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, sol)
		}
	}
	return out, nil
}

func (ev *evaluator) join(sols []Binding, tp *TriplePattern) ([]Binding, error) {
	var out []Binding
	for _, sol := range sols {
		if err := ev.tick(); err != nil {
			return nil, err
		}
		s, p, o := resolve(tp.S, sol), resolve(tp.P, sol), resolve(tp.O, sol)
		for _, t := range ev.g.Match(s, p, o) {
			next, ok := extend(sol, tp, t)
			if !ok {
				continue
			}
			out = append(out, next)
			if len(out) > ev.max {
				return nil, ErrTooManyRows
			}
		}
	}
	return out, nil
}

func (ev *evaluator) leftJoin(sols []Binding, g *Group) ([]Binding, error) {
	var out []Binding
	for _, sol := range sols {
		ext, err := ev.group(g, []Binding{sol})
		if err != nil {
			return nil, err
		}
		if len(ext) == 0 {
			out = append(out, sol)
		} else {
			out = append(out, ext...)
		}
		if len(out) > ev.max {
			return nil, ErrTooManyRows
		}
	}
	return out, nil
}

func (ev *evaluator) tick() error {
	ev.ops++
	if ev.ops%256 == 0 {
		return ev.ctx.Err()
	}
	return nil
}

func resolve(n Node, sol Binding) *graph.Term {
	if !n.IsVar() {
		t := n.Term
		return &t
	}
	if t, ok := sol[n.Var]; ok {
		return &t
	}
	return nil
}

// extend binds the pattern variables to the matched triple. A variable used twice
// in one pattern must bind to the same term.
func extend(sol Binding, tp *TriplePattern, t graph.Triple) (Binding, bool) {
	next := make(Binding, len(sol)+3)
	for k, v := range sol {
		next[k] = v
	}
	for _, pair := range []struct {
		n Node
		t graph.Term
	}{{tp.S, t.S}, {tp.P, t.P}, {tp.O, t.O}} {
		if !pair.n.IsVar() {
			continue
		}
		if cur, ok := next[pair.n.Var]; ok && cur != pair.t {
			return nil, false
		}
		next[pair.n.Var] = pair.t
	}
	return next, true
}

func solutionKey(vars []string, sol Binding) string {
	var b strings.Builder
	for _, v := range vars {
		t, ok := sol[v]
		if ok {
			fmt.Fprintf(&b, "%d|%s|%s|%s", t.Kind, t.Value, t.Lang, t.Datatype)
		}
		b.WriteByte(0)
	}
	return b.String()
}

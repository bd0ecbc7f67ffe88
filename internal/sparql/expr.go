package sparql

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/mathbot/internal/graph"
	"github.com/cloo-solutions/mathbot/internal/vocab"
)

const xsdBoolean = vocab.XSDNamespace + "boolean"
const xsdInteger = vocab.XSDNamespace + "integer"

// maxRegexBytes bounds patterns compiled at evaluation time.
const maxRegexBytes = 4096

var (
	errUnbound   = errors.New("unbound variable")
	errTypeError = errors.New("type error")
)

// Binding maps variable names to bound terms. Missing keys are unbound.
type Binding map[string]graph.Term

// Expr is a FILTER expression.
type Expr interface {
	eval(b Binding) (graph.Term, error)
}

// VarExpr reads a variable.
type VarExpr struct {
	Name string
}

// ConstExpr is a constant term.
type ConstExpr struct {
	Term graph.Term
}

// CallExpr is a builtin function call. Name is lower case.
type CallExpr struct {
	Name string
	Args []Expr
	re   *regexp.Regexp
}

// BinaryExpr is a comparison or logical operator.
type BinaryExpr struct {
	Op          string
	Left, Right Expr
}

// NotExpr negates its operand.
type NotExpr struct {
	X Expr
}

var builtinArity = map[string][2]int{
	"regex":     {2, 3},
	"contains":  {2, 2},
	"strstarts": {2, 2},
	"strends":   {2, 2},
	"lcase":     {1, 1},
	"ucase":     {1, 1},
	"str":       {1, 1},
	"lang":      {1, 1},
	"bound":     {1, 1},
}

func boolTerm(v bool) graph.Term {
	return graph.TypedLiteral(strconv.FormatBool(v), xsdBoolean)
}

func (e *VarExpr) eval(b Binding) (graph.Term, error) {
	t, ok := b[e.Name]
	if !ok {
		return graph.Term{}, errUnbound
	}
	return t, nil
}

func (e *ConstExpr) eval(Binding) (graph.Term, error) {
	return e.Term, nil
}

func (e *NotExpr) eval(b Binding) (graph.Term, error) {
	v, err := ebv(e.X, b)
	if err != nil {
		return graph.Term{}, err
	}
	return boolTerm(!v), nil
}

func (e *BinaryExpr) eval(b Binding) (graph.Term, error) {
	switch e.Op {
	case "&&":
		l, lerr := ebv(e.Left, b)
		r, rerr := ebv(e.Right, b)
		if (lerr == nil && !l) || (rerr == nil && !r) {
			return boolTerm(false), nil
		}
		if lerr != nil {
			return graph.Term{}, lerr
		}
		if rerr != nil {
			return graph.Term{}, rerr
		}
		return boolTerm(true), nil
	case "||":
		l, lerr := ebv(e.Left, b)
		r, rerr := ebv(e.Right, b)
		if (lerr == nil && l) || (rerr == nil && r) {
			return boolTerm(true), nil
		}
		if lerr != nil {
			return graph.Term{}, lerr
		}
		if rerr != nil {
			return graph.Term{}, rerr
		}
		return boolTerm(false), nil
	}

	l, err := e.Left.eval(b)
	if err != nil {
		return graph.Term{}, err
	}
	r, err := e.Right.eval(b)
	if err != nil {
		return graph.Term{}, err
	}
	switch e.Op {
	case "=":
		return boolTerm(l == r), nil
	case "!=":
		return boolTerm(l != r), nil
	}

	cmp, err := compare(l, r)
	if err != nil {
		return graph.Term{}, err
	}
	switch e.Op {
	case "<":
		return boolTerm(cmp < 0), nil
	case "<=":
		return boolTerm(cmp <= 0), nil
	case ">":
		return boolTerm(cmp > 0), nil
	case ">=":
		return boolTerm(cmp >= 0), nil
	default:
		return graph.Term{}, fmt.Errorf("%w: operator %s", errTypeError, e.Op)
	}
}

func compare(l, r graph.Term) (int, error) {
	if !l.IsLiteral() || !r.IsLiteral() {
		return 0, errTypeError
	}
	li, lerr := strconv.ParseInt(l.Value, 10, 64)
	ri, rerr := strconv.ParseInt(r.Value, 10, 64)
	if lerr == nil && rerr == nil {
		switch {
		case li < ri:
			return -1, nil
		case li > ri:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return strings.Compare(l.Value, r.Value), nil
}

func (e *CallExpr) eval(b Binding) (graph.Term, error) {
	if e.Name == "bound" {
		v, ok := e.Args[0].(*VarExpr)
		if !ok {
			return graph.Term{}, errTypeError
		}
		_, bound := b[v.Name]
		return boolTerm(bound), nil
	}

	args := make([]graph.Term, len(e.Args))
	for i, a := range e.Args {
		t, err := a.eval(b)
		if err != nil {
			return graph.Term{}, err
		}
		args[i] = t
	}

	switch e.Name {
	case "str":
		if args[0].IsBlank() {
			return graph.Term{}, errTypeError
		}
		return graph.Literal(args[0].Value), nil
	case "lang":
		if !args[0].IsLiteral() {
			return graph.Term{}, errTypeError
		}
		return graph.Literal(args[0].Lang), nil
	case "lcase", "ucase":
		if !args[0].IsLiteral() {
			return graph.Term{}, errTypeError
		}
		out := args[0]
		if e.Name == "lcase" {
			out.Value = strings.ToLower(out.Value)
		} else {
			out.Value = strings.ToUpper(out.Value)
		}
		return out, nil
	}

	for _, a := range args {
		if !a.IsLiteral() {
			return graph.Term{}, errTypeError
		}
	}
	switch e.Name {
	case "contains":
		return boolTerm(strings.Contains(args[0].Value, args[1].Value)), nil
	case "strstarts":
		return boolTerm(strings.HasPrefix(args[0].Value, args[1].Value)), nil
	case "strends":
		return boolTerm(strings.HasSuffix(args[0].Value, args[1].Value)), nil
	case "regex":
		re := e.re
		if re == nil {
			flags := ""
			if len(args) == 3 {
				flags = args[2].Value
			}
			var err error
			if re, err = compileRegex(args[1].Value, flags); err != nil {
				return graph.Term{}, err
			}
		}
		return boolTerm(re.MatchString(args[0].Value)), nil
	default:
		return graph.Term{}, fmt.Errorf("%w: unknown function %s", errTypeError, e.Name)
	}
}

// compileRegex compiles a SPARQL regex with its flags. Go's RE2 engine matches in
// time linear to the input.
func compileRegex(pattern, flags string) (*regexp.Regexp, error) {
	if len(pattern) > maxRegexBytes {
		return nil, fmt.Errorf("regex pattern exceeds %d bytes", maxRegexBytes)
	}
	var mods strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			mods.WriteRune(f)
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", f)
		}
	}
	if mods.Len() > 0 {
		pattern = "(?" + mods.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}
	return re, nil
}

// ebv computes the effective boolean value of an expression.
func ebv(e Expr, b Binding) (bool, error) {
	t, err := e.eval(b)
	if err != nil {
		return false, err
	}
	if !t.IsLiteral() {
		return false, errTypeError
	}
	switch t.Datatype {
	case xsdBoolean:
		return t.Value == "true", nil
	case xsdInteger:
		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return false, errTypeError
		}
		return n != 0, nil
	default:
		return t.Value != "", nil
	}
}

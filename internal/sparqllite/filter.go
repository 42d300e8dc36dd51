package sparqllite

import (
	"fmt"
	"strconv"

	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// expression is a compiled FILTER expression fragment. Evaluate operates
// against one candidate solution's pre-projection bindings.
type expression interface {
	Evaluate(bindings map[string]rdf.Term) (rdf.Term, error)
}

// filterEvaluator adapts a compiled expression tree to query.FilterEvaluator,
// reducing its result to an effective boolean value the way SPARQL's FILTER
// does: a present, non-"false", non-zero-length, non-"0" literal is true.
type filterEvaluator struct {
	expr expression
}

func (f *filterEvaluator) Evaluate(bindings map[string]rdf.Term) (bool, error) {
	v, err := f.expr.Evaluate(bindings)
	if err != nil {
		return false, err
	}
	return effectiveBooleanValue(v)
}

func effectiveBooleanValue(v rdf.Term) (bool, error) {
	b, ok := v.(*boolValue)
	if ok {
		return bool(*b), nil
	}
	lit, ok := v.(*rdf.Literal)
	if !ok {
		return false, fmt.Errorf("cannot coerce %s to a boolean", v.String())
	}
	return lit.Value != "" && lit.Value != "false" && lit.Value != "0", nil
}

// boolValue is an internal rdf.Term implementation used only to carry
// comparison/logical results through expression evaluation; it never
// escapes into a Pattern or a Handler's result map.
type boolValue bool

func (b *boolValue) Type() rdf.TermType { return rdf.TermTypeLiteral }
func (b *boolValue) String() string {
	if *b {
		return "true"
	}
	return "false"
}
func (b *boolValue) Equals(other rdf.Term) bool {
	o, ok := other.(*boolValue)
	return ok && *b == *o
}

func newBool(v bool) *boolValue { b := boolValue(v); return &b }

// variableExpr looks up a variable's current binding.
type variableExpr struct{ name string }

func (e *variableExpr) Evaluate(bindings map[string]rdf.Term) (rdf.Term, error) {
	v, ok := bindings[e.name]
	if !ok {
		return nil, fmt.Errorf("unbound variable ?%s", e.name)
	}
	return v, nil
}

// constantExpr always evaluates to the same RDF term.
type constantExpr struct{ value rdf.Term }

func (e *constantExpr) Evaluate(map[string]rdf.Term) (rdf.Term, error) {
	return e.value, nil
}

// boundExpr implements the bound(?v) built-in, which never errors even when
// the variable is unbound — that is exactly the case it tests for.
type boundExpr struct{ name string }

func (e *boundExpr) Evaluate(bindings map[string]rdf.Term) (rdf.Term, error) {
	_, ok := bindings[e.name]
	return newBool(ok), nil
}

// notExpr implements unary `!`.
type notExpr struct{ operand expression }

func (e *notExpr) Evaluate(bindings map[string]rdf.Term) (rdf.Term, error) {
	v, err := e.operand.Evaluate(bindings)
	if err != nil {
		return nil, err
	}
	b, err := effectiveBooleanValue(v)
	if err != nil {
		return nil, err
	}
	return newBool(!b), nil
}

type binaryOp int

const (
	opEqual binaryOp = iota
	opNotEqual
	opLess
	opLessOrEqual
	opGreater
	opGreaterOrEqual
	opAnd
	opOr
)

// binaryExpr implements comparison and logical operators. Logical operators
// short-circuit, matching the teacher's evaluateAnd/evaluateOr
// (pkg/sparql/evaluator/operators.go): `left && right` never evaluates
// right once left is false, and `left || right` never evaluates right once
// left is true.
type binaryExpr struct {
	left, right expression
	op          binaryOp
}

func (e *binaryExpr) Evaluate(bindings map[string]rdf.Term) (rdf.Term, error) {
	switch e.op {
	case opAnd:
		l, err := e.left.Evaluate(bindings)
		if err != nil {
			return nil, err
		}
		lb, err := effectiveBooleanValue(l)
		if err != nil {
			return nil, err
		}
		if !lb {
			return newBool(false), nil
		}
		r, err := e.right.Evaluate(bindings)
		if err != nil {
			return nil, err
		}
		rb, err := effectiveBooleanValue(r)
		if err != nil {
			return nil, err
		}
		return newBool(rb), nil

	case opOr:
		l, err := e.left.Evaluate(bindings)
		if err != nil {
			return nil, err
		}
		lb, err := effectiveBooleanValue(l)
		if err != nil {
			return nil, err
		}
		if lb {
			return newBool(true), nil
		}
		r, err := e.right.Evaluate(bindings)
		if err != nil {
			return nil, err
		}
		rb, err := effectiveBooleanValue(r)
		if err != nil {
			return nil, err
		}
		return newBool(rb), nil
	}

	l, err := e.left.Evaluate(bindings)
	if err != nil {
		return nil, err
	}
	r, err := e.right.Evaluate(bindings)
	if err != nil {
		return nil, err
	}

	switch e.op {
	case opEqual:
		return newBool(l.Equals(r)), nil
	case opNotEqual:
		return newBool(!l.Equals(r)), nil
	case opLess, opLessOrEqual, opGreater, opGreaterOrEqual:
		return compareOrdered(l, r, e.op)
	default:
		return nil, fmt.Errorf("unsupported operator")
	}
}

// compareOrdered implements <, <=, >, >=. Two literals that both parse as
// numbers compare numerically; otherwise the comparison falls back to
// lexical order on the literal's value, matching SPARQL's string ordering
// for non-numeric literals.
func compareOrdered(l, r rdf.Term, op binaryOp) (rdf.Term, error) {
	ll, lok := l.(*rdf.Literal)
	rl, rok := r.(*rdf.Literal)
	if !lok || !rok {
		return nil, fmt.Errorf("ordering operators require literal operands, got %s and %s", l.String(), r.String())
	}

	var cmp int
	lf, lerr := strconv.ParseFloat(ll.Value, 64)
	rf, rerr := strconv.ParseFloat(rl.Value, 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		switch {
		case ll.Value < rl.Value:
			cmp = -1
		case ll.Value > rl.Value:
			cmp = 1
		default:
			cmp = 0
		}
	}

	switch op {
	case opLess:
		return newBool(cmp < 0), nil
	case opLessOrEqual:
		return newBool(cmp <= 0), nil
	case opGreater:
		return newBool(cmp > 0), nil
	case opGreaterOrEqual:
		return newBool(cmp >= 0), nil
	default:
		return nil, fmt.Errorf("unsupported ordering operator")
	}
}

// parseFilterClause parses `FILTER (expr)` or `FILTER funcCall(...)`
// (e.g. `FILTER bound(?v)`, which has its own delimiters).
func (p *Parser) parseFilterClause() (expression, error) {
	p.skipWhitespace()
	needsParens := p.peek() == '('
	if needsParens {
		p.advance()
	}
	expr, err := p.parseOrExpression()
	if err != nil {
		return nil, fmt.Errorf("FILTER expression: %w", err)
	}
	if needsParens {
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' to close FILTER expression")
		}
		p.advance()
	}
	return expr, nil
}

func (p *Parser) parseOrExpression() (expression, error) {
	left, err := p.parseAndExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("||") {
			break
		}
		right, err := p.parseAndExpression()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{left: left, right: right, op: opOr}
	}
	return left, nil
}

func (p *Parser) parseAndExpression() (expression, error) {
	left, err := p.parseComparisonExpression()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.match("&&") {
			break
		}
		right, err := p.parseComparisonExpression()
		if err != nil {
			return nil, err
		}
		left = &binaryExpr{left: left, right: right, op: opAnd}
	}
	return left, nil
}

func (p *Parser) parseComparisonExpression() (expression, error) {
	left, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()

	var op binaryOp
	switch {
	case p.match("<="):
		op = opLessOrEqual
	case p.match(">="):
		op = opGreaterOrEqual
	case p.match("!="):
		op = opNotEqual
	case p.match("=="), p.match("="):
		op = opEqual
	case p.match("<"):
		op = opLess
	case p.match(">"):
		op = opGreater
	default:
		return left, nil
	}

	right, err := p.parseUnaryExpression()
	if err != nil {
		return nil, err
	}
	return &binaryExpr{left: left, right: right, op: op}, nil
}

func (p *Parser) parseUnaryExpression() (expression, error) {
	p.skipWhitespace()
	if p.peek() == '!' {
		p.advance()
		operand, err := p.parseUnaryExpression()
		if err != nil {
			return nil, err
		}
		return &notExpr{operand: operand}, nil
	}
	return p.parsePrimaryExpression()
}

func (p *Parser) parsePrimaryExpression() (expression, error) {
	p.skipWhitespace()
	ch := p.peek()

	if ch == '(' {
		p.advance()
		expr, err := p.parseOrExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' in expression")
		}
		p.advance()
		return expr, nil
	}

	if ch == '?' || ch == '$' {
		name, err := p.parseVariable()
		if err != nil {
			return nil, err
		}
		return &variableExpr{name: name}, nil
	}

	if p.matchKeyword("BOUND") {
		p.skipWhitespace()
		if p.peek() != '(' {
			return nil, fmt.Errorf("expected '(' after BOUND")
		}
		p.advance()
		p.skipWhitespace()
		name, err := p.parseVariable()
		if err != nil {
			return nil, fmt.Errorf("BOUND argument: %w", err)
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' after BOUND argument")
		}
		p.advance()
		return &boundExpr{name: name}, nil
	}

	term, err := p.parseTermOrVariable()
	if err != nil {
		return nil, err
	}
	if term.IsVariable() {
		return &variableExpr{name: term.Variable}, nil
	}
	return &constantExpr{value: term.Constant}, nil
}

// match consumes s if the input continues with it, without requiring a
// word boundary (used for operators, unlike matchKeyword).
func (p *Parser) match(s string) bool {
	p.skipWhitespace()
	if p.pos+len(s) > p.length {
		return false
	}
	if p.input[p.pos:p.pos+len(s)] != s {
		return false
	}
	p.pos += len(s)
	return true
}

var _ query.FilterEvaluator = (*filterEvaluator)(nil)

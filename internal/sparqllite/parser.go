// Package sparqllite is the restricted SPARQL SELECT front-end SPEC_FULL.md
// asks for: enough grammar to produce a pkg/query.Query — projection list,
// triple patterns, FILTER expressions, DISTINCT/REDUCED/LIMIT/OFFSET — and
// nothing past it. Anything outside that subset (UNION, OPTIONAL, GRAPH,
// BIND, GROUP BY, ORDER BY, ASK/CONSTRUCT/DESCRIBE/MODIFY, nested
// SELECT) is rejected with query.IncompatibleQueryError rather than
// silently accepted and mishandled; the matching engine itself never learns
// SPARQL syntax exists. EXISTS and NOT EXISTS inside a FILTER are rejected
// too, but as a query.InvalidQueryError: the FILTER expression parser does
// not recognise them as keywords.
//
// The scanner style — pos/length over the raw input string, skipWhitespace,
// matchKeyword, readWhile — follows the teacher's pkg/sparql/parser/parser.go
// directly; this package is a deliberately small fraction of it.
package sparqllite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sesamestream/sesamestream/internal/model"
	"github.com/sesamestream/sesamestream/pkg/query"
	"github.com/sesamestream/sesamestream/pkg/rdf"
)

// Parser scans one SPARQL SELECT query text.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
	baseIRI  string

	// blankVars assigns a stable internal variable name to each blank node
	// label seen in this query, so `_:b` joins across the query the way a
	// non-distinguished SPARQL variable would, without ever being eligible
	// for projection.
	blankVars map[string]string
	nextBlank int
}

// NewParser creates a parser over input.
func NewParser(input string) *Parser {
	return &Parser{
		input:     input,
		length:    len(input),
		prefixes:  make(map[string]string),
		blankVars: make(map[string]string),
	}
}

// Parse parses a single SELECT query into a pkg/query.Query. The returned
// Query has no ID, ExpiresAt, or Constants set — pkg/index.AddQuery fills
// in ID and ExpiresAt at admission time; Constants stays empty.
func Parse(input string) (*query.Query, error) {
	p := NewParser(input)
	q, err := p.parse()
	if err != nil {
		if _, ok := err.(*query.IncompatibleQueryError); ok {
			return nil, err
		}
		return nil, &query.InvalidQueryError{Text: input, Cause: err}
	}
	return q, nil
}

func (p *Parser) parse() (*query.Query, error) {
	p.skipWhitespace()
	for {
		p.skipWhitespace()
		if p.matchKeyword("PREFIX") {
			if err := p.parsePrefix(); err != nil {
				return nil, err
			}
		} else if p.matchKeyword("BASE") {
			if err := p.parseBase(); err != nil {
				return nil, err
			}
		} else {
			break
		}
	}

	for _, kw := range []string{"ASK", "CONSTRUCT", "DESCRIBE", "INSERT", "DELETE"} {
		if p.matchKeyword(kw) {
			return nil, &query.IncompatibleQueryError{Node: kw}
		}
	}
	if !p.matchKeyword("SELECT") {
		return nil, fmt.Errorf("expected SELECT")
	}

	q := &query.Query{}

	var reduced bool
	distinct := p.matchKeyword("DISTINCT")
	if !distinct {
		reduced = p.matchKeyword("REDUCED")
	}

	names, renames, star, err := p.parseProjection()
	if err != nil {
		return nil, err
	}
	q.NameRenames = renames

	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("expected WHERE")
	}

	patterns, filterExprs, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.InitialPatterns = patterns

	if star {
		q.OrderedProjectedNames = projectedVariableNames(patterns)
	} else {
		q.OrderedProjectedNames = names
	}

	for _, unsupported := range []string{"GROUP BY", "HAVING", "ORDER BY"} {
		if p.matchKeyword(strings.Fields(unsupported)[0]) {
			return nil, &query.IncompatibleQueryError{Node: unsupported}
		}
	}

	limit, offset, err := p.parseLimitOffset()
	if err != nil {
		return nil, err
	}

	for _, expr := range filterExprs {
		q.Filters = append(q.Filters, &filterEvaluator{expr: expr})
	}

	if distinct || reduced || limit != nil || offset > 0 {
		q.SequenceModifier = NewSequenceModifier(distinct, reduced, limit, offset)
	}

	p.skipWhitespace()
	if p.pos < p.length {
		return nil, fmt.Errorf("unexpected trailing input at position %d", p.pos)
	}

	return q, nil
}

// parseProjection parses the SELECT list: `*`, a run of `?var`s, or
// `(?src AS ?dst)` renames (any mixture of the latter two).
func (p *Parser) parseProjection() (names []string, renames map[string]string, star bool, err error) {
	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		return nil, nil, true, nil
	}

	renames = make(map[string]string)
	for {
		p.skipWhitespace()
		ch := p.peek()
		if ch == '(' {
			p.advance()
			p.skipWhitespace()
			src, err := p.parseVariable()
			if err != nil {
				return nil, nil, false, err
			}
			p.skipWhitespace()
			if !p.matchKeyword("AS") {
				return nil, nil, false, fmt.Errorf("expected AS inside projection expression")
			}
			p.skipWhitespace()
			dst, err := p.parseVariable()
			if err != nil {
				return nil, nil, false, err
			}
			p.skipWhitespace()
			if p.peek() != ')' {
				return nil, nil, false, fmt.Errorf("expected ')' after AS projection")
			}
			p.advance()
			names = append(names, dst)
			renames[dst] = src
			continue
		}
		if ch != '?' && ch != '$' {
			break
		}
		v, err := p.parseVariable()
		if err != nil {
			return nil, nil, false, err
		}
		names = append(names, v)
	}

	if len(names) == 0 {
		return nil, nil, false, fmt.Errorf("expected at least one projected variable or '*'")
	}
	return names, renames, false, nil
}

// parseGroupGraphPattern parses `{ triplepattern ('.' triplepattern)*
// (FILTER(expr))* }`. Anything else inside the braces (OPTIONAL, UNION,
// GRAPH, BIND, MINUS, sub-SELECT) is rejected.
func (p *Parser) parseGroupGraphPattern() ([]*model.Pattern, []expression, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, nil, fmt.Errorf("expected '{' to start WHERE pattern")
	}
	p.advance()

	var patterns []*model.Pattern
	var filters []expression

	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		if p.pos >= p.length {
			return nil, nil, fmt.Errorf("unterminated WHERE pattern")
		}
		if p.peek() == '{' {
			return nil, nil, &query.IncompatibleQueryError{Node: "nested group graph pattern"}
		}

		for _, kw := range []string{"OPTIONAL", "UNION", "GRAPH", "BIND", "MINUS", "SELECT", "SERVICE"} {
			if p.matchKeyword(kw) {
				return nil, nil, &query.IncompatibleQueryError{Node: kw}
			}
		}

		if p.matchKeyword("FILTER") {
			expr, err := p.parseFilterClause()
			if err != nil {
				return nil, nil, err
			}
			filters = append(filters, expr)
			continue
		}

		triple, err := p.parseTriplePattern()
		if err != nil {
			return nil, nil, err
		}
		patterns = append(patterns, triple)

		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}

	if len(patterns) == 0 {
		return nil, nil, fmt.Errorf("WHERE pattern must contain at least one triple pattern")
	}
	return patterns, filters, nil
}

func (p *Parser) parseTriplePattern() (*model.Pattern, error) {
	s, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("subject: %w", err)
	}
	p.skipWhitespace()
	pr, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("predicate: %w", err)
	}
	p.skipWhitespace()
	o, err := p.parseTermOrVariable()
	if err != nil {
		return nil, fmt.Errorf("object: %w", err)
	}
	return model.NewPattern(s, pr, o), nil
}

func (p *Parser) parseTermOrVariable() (model.Term, error) {
	p.skipWhitespace()
	ch := p.peek()

	switch {
	case ch == '?' || ch == '$':
		name, err := p.parseVariable()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewVariable(name), nil
	case ch == '<':
		iri, err := p.parseIRI()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewConstant(rdf.NewNamedNode(iri)), nil
	case ch == '"' || ch == '\'':
		lit, err := p.parseLiteral()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewConstant(lit), nil
	case ch == '_':
		label, err := p.parseBlankNodeLabel()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewVariable(p.blankVariableName(label)), nil
	case ch >= '0' && ch <= '9' || ch == '-' || ch == '+':
		lit, err := p.parseNumericLiteral()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewConstant(lit), nil
	case ch == 'a' && !p.followedByNameChar(1):
		p.advance()
		return model.NewConstant(rdf.NewNamedNode("http://www.w3.org/1999/02/22-rdf-syntax-ns#type")), nil
	case ch == ':' || isNameStartChar(ch):
		iri, err := p.parsePrefixedName()
		if err != nil {
			return model.Term{}, err
		}
		return model.NewConstant(rdf.NewNamedNode(iri)), nil
	default:
		return model.Term{}, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
	}
}

func (p *Parser) blankVariableName(label string) string {
	if name, ok := p.blankVars[label]; ok {
		return name
	}
	name := fmt.Sprintf("_blank%d", p.nextBlank)
	p.nextBlank++
	p.blankVars[label] = name
	return name
}

func (p *Parser) parseVariable() (string, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return "", fmt.Errorf("expected variable starting with ? or $")
	}
	p.advance()
	name := p.readWhile(isNameChar)
	if name == "" {
		return "", fmt.Errorf("invalid variable name")
	}
	return name, nil
}

func (p *Parser) parseIRI() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' to start IRI")
	}
	p.advance()
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if p.peek() != '>' {
		return "", fmt.Errorf("expected '>' to end IRI")
	}
	p.advance()
	return p.resolveIRI(iri), nil
}

func (p *Parser) resolveIRI(iri string) string {
	if p.baseIRI == "" || strings.Contains(iri, "://") {
		return iri
	}
	return p.baseIRI + iri
}

func (p *Parser) parseBlankNodeLabel() (string, error) {
	if p.peek() != '_' {
		return "", fmt.Errorf("expected '_' to start blank node")
	}
	p.advance()
	if p.peek() != ':' {
		return "", fmt.Errorf("expected ':' after '_' in blank node")
	}
	p.advance()
	label := p.readWhile(isNameChar)
	if label == "" {
		return "", fmt.Errorf("invalid blank node label")
	}
	return label, nil
}

func (p *Parser) parseLiteral() (rdf.Term, error) {
	quote := p.peek()
	p.advance()
	var sb strings.Builder
	for p.pos < p.length && p.input[p.pos] != quote {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < p.length {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '"', '\'', '\\':
				sb.WriteByte(p.input[p.pos])
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		sb.WriteByte(ch)
		p.pos++
	}
	if p.pos >= p.length {
		return nil, fmt.Errorf("unterminated string literal")
	}
	p.advance() // closing quote

	if p.peek() == '@' {
		p.advance()
		lang := p.readWhile(func(ch byte) bool {
			return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '-'
		})
		return rdf.NewLiteralWithLanguage(sb.String(), lang), nil
	}
	if p.peek() == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^' {
		p.pos += 2
		var dtIRI string
		var err error
		if p.peek() == '<' {
			dtIRI, err = p.parseIRI()
		} else {
			dtIRI, err = p.parsePrefixedName()
		}
		if err != nil {
			return nil, fmt.Errorf("datatype: %w", err)
		}
		return rdf.NewLiteralWithDatatype(sb.String(), rdf.NewNamedNode(dtIRI)), nil
	}
	return rdf.NewLiteral(sb.String()), nil
}

func (p *Parser) parseNumericLiteral() (rdf.Term, error) {
	start := p.pos
	if p.peek() == '+' || p.peek() == '-' {
		p.advance()
	}
	p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	isDouble := false
	if p.peek() == '.' {
		isDouble = true
		p.advance()
		p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	}
	if p.peek() == 'e' || p.peek() == 'E' {
		isDouble = true
		p.advance()
		if p.peek() == '+' || p.peek() == '-' {
			p.advance()
		}
		p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	}
	text := p.input[start:p.pos]
	if text == "" {
		return nil, fmt.Errorf("expected numeric literal")
	}
	datatype := "http://www.w3.org/2001/XMLSchema#integer"
	if isDouble {
		datatype = "http://www.w3.org/2001/XMLSchema#double"
	}
	return rdf.NewLiteralWithDatatype(text, rdf.NewNamedNode(datatype)), nil
}

func (p *Parser) parsePrefixedName() (string, error) {
	prefix := p.readWhile(func(ch byte) bool { return isNameChar(ch) })
	if p.peek() != ':' {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	p.advance()
	local := p.readWhile(isNameChar)
	base, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return base + local, nil
}

func (p *Parser) parseInteger() (int, error) {
	p.skipWhitespace()
	numStr := p.readWhile(func(ch byte) bool { return ch >= '0' && ch <= '9' })
	if numStr == "" {
		return 0, fmt.Errorf("expected integer")
	}
	return strconv.Atoi(numStr)
}

// parseLimitOffset scans the remainder of the query for LIMIT/OFFSET
// clauses in either order, leaving the parser positioned after both.
func (p *Parser) parseLimitOffset() (limit *int, offset int, err error) {
	for {
		p.skipWhitespace()
		if p.matchKeyword("LIMIT") {
			n, err := p.parseInteger()
			if err != nil {
				return nil, 0, fmt.Errorf("invalid LIMIT: %w", err)
			}
			limit = &n
			continue
		}
		if p.matchKeyword("OFFSET") {
			n, err := p.parseInteger()
			if err != nil {
				return nil, 0, fmt.Errorf("invalid OFFSET: %w", err)
			}
			offset = n
			continue
		}
		break
	}
	return limit, offset, nil
}

func (p *Parser) parsePrefix() error {
	p.skipWhitespace()
	start := p.pos
	for p.pos < p.length && p.input[p.pos] != ':' {
		p.advance()
	}
	prefix := p.input[start:p.pos]
	if p.pos >= p.length {
		return fmt.Errorf("expected ':' in PREFIX declaration")
	}
	p.advance()
	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("PREFIX IRI: %w", err)
	}
	p.prefixes[prefix] = iri
	return nil
}

func (p *Parser) parseBase() error {
	p.skipWhitespace()
	iri, err := p.parseIRI()
	if err != nil {
		return fmt.Errorf("BASE IRI: %w", err)
	}
	p.baseIRI = iri
	return nil
}

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) readWhile(predicate func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && predicate(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()
	remaining := p.input[p.pos:]
	pattern := `(?i)^` + regexp.QuoteMeta(keyword) + `\b`
	if matched, _ := regexp.MatchString(pattern, remaining); matched {
		p.pos += len(keyword)
		return true
	}
	return false
}

func (p *Parser) followedByNameChar(offset int) bool {
	if p.pos+offset >= p.length {
		return false
	}
	return isNameChar(p.input[p.pos+offset])
}

func isNameStartChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isNameChar(ch byte) bool {
	return isNameStartChar(ch) || (ch >= '0' && ch <= '9') || ch == '_' || ch == '-'
}

// projectedVariableNames collects every distinct variable name across
// patterns, in first-appearance order, for `SELECT *`. Blank-node-derived
// internal variables are excluded: they were never written by the user and
// SPARQL's `SELECT *` only projects in-scope named variables.
func projectedVariableNames(patterns []*model.Pattern) []string {
	var names []string
	seen := make(map[string]bool)
	for _, pat := range patterns {
		for _, t := range pat.Terms {
			if !t.IsVariable() || strings.HasPrefix(t.Variable, "_blank") {
				continue
			}
			if !seen[t.Variable] {
				seen[t.Variable] = true
				names = append(names, t.Variable)
			}
		}
	}
	return names
}
